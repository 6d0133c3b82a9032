package commands

import (
	"github.com/de-tools/umami-digest/pkg/runtime/terminal/export"
	"github.com/spf13/cobra"
)

type FunnelsCmd struct {
	runtime Runtime
}

func NewFunnelsCmd(rt Runtime) *cobra.Command {
	fc := &FunnelsCmd{runtime: rt}
	return &cobra.Command{
		Use:   "funnels",
		Short: "List the funnel reports stored for the website",
		Args:  cobra.NoArgs,
		RunE:  fc.run,
	}
}

func (fc *FunnelsCmd) run(cmd *cobra.Command, _ []string) error {
	settings, err := fc.runtime.loadSettings(cmd)
	if err != nil {
		return err
	}

	svc, err := fc.runtime.newService(settings)
	if err != nil {
		return err
	}

	reports, err := svc.FunnelReports(cmd.Context())
	if err != nil {
		return err
	}

	return export.NewFunnelReporter(cmd.OutOrStdout(), settings.Format).Handle(reports)
}
