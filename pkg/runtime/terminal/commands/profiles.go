package commands

import (
	"fmt"

	"github.com/de-tools/umami-digest/pkg/models/domain"
	"github.com/de-tools/umami-digest/pkg/services/config"
	"github.com/spf13/cobra"
)

type ProfilesCmd struct{}

func NewProfilesCmd() *cobra.Command {
	pc := &ProfilesCmd{}
	return &cobra.Command{
		Use:   "profiles",
		Short: "List the profiles defined in the profiles file",
		Args:  cobra.NoArgs,
		RunE:  pc.run,
	}
}

func (pc *ProfilesCmd) run(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("profiles-file")
	if path == "" {
		path = config.DefaultProfilesPath()
	}

	registry, err := config.NewRegistry(path)
	if err != nil {
		return &domain.ConfigError{Field: "profiles-file", Msg: fmt.Sprintf("failed to load %s: %v", path, err)}
	}

	profiles, err := registry.GetProfiles(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list profiles: %w", err)
	}

	if len(profiles) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No profiles found in %s\n", path)
		return nil
	}

	for _, p := range profiles {
		fmt.Fprintln(cmd.OutOrStdout(), p.String())
	}
	return nil
}
