package commands

import (
	"net/http"
	"os"
	"time"

	"github.com/de-tools/umami-digest/pkg/services/config"
	"github.com/de-tools/umami-digest/pkg/services/summary"
	"github.com/de-tools/umami-digest/pkg/store/client"
	"github.com/spf13/cobra"
)

// Runtime carries the process dependencies shared by all commands.
type Runtime struct {
	LookupEnv  func(key string) (string, bool)
	Now        func() time.Time
	HTTPClient *http.Client
}

func (rt Runtime) now() time.Time {
	if rt.Now == nil {
		return time.Now()
	}
	return rt.Now()
}

func (rt Runtime) lookupEnv() func(string) (string, bool) {
	if rt.LookupEnv == nil {
		return os.LookupEnv
	}
	return rt.LookupEnv
}

// loadSettings resolves settings from the command's flags and the persistent source flags.
func (rt Runtime) loadSettings(cmd *cobra.Command) (*config.Settings, error) {
	flags := cmd.Flags()
	envFile, _ := flags.GetString("env-file")
	profilesFile, _ := flags.GetString("profiles-file")
	profile, _ := flags.GetString("profile")

	return config.Load(cmd.Context(), config.Sources{
		Flags:        flags,
		EnvFile:      envFile,
		ProfilesFile: profilesFile,
		Profile:      profile,
		LookupEnv:    rt.lookupEnv(),
	})
}

func (rt Runtime) newService(settings *config.Settings) (summary.Service, error) {
	opts := settings.ClientOptions()
	opts.HTTPClient = rt.HTTPClient
	c, err := client.NewUmamiClient(opts)
	if err != nil {
		return nil, err
	}
	return summary.NewService(settings, c, rt.now), nil
}
