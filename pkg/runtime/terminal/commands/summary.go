package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/de-tools/umami-digest/pkg/runtime/terminal/export"
	"github.com/de-tools/umami-digest/pkg/services/notify"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type SummaryCmd struct {
	noWebhook bool
	runtime   Runtime
}

// NewSummaryCmd builds the command that renders and delivers one day's summary.
func NewSummaryCmd(rt Runtime) *cobra.Command {
	sc := &SummaryCmd{runtime: rt}
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Render the daily Umami summary and post it to the webhook",
		Args:  cobra.NoArgs,
		RunE:  sc.run,
	}

	cmd.Flags().BoolVar(&sc.noWebhook, "no-webhook", false, "Skip webhook delivery even when a webhook URL is configured")

	return cmd
}

func (sc *SummaryCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := zerolog.Ctx(ctx)

	settings, err := sc.runtime.loadSettings(cmd)
	if err != nil {
		return err
	}

	// Validated before any Umami request.
	var publisher *notify.Publisher
	if settings.WebhookURL != "" && !sc.noWebhook {
		publisher, err = notify.NewPublisher(notify.Options{
			URL:        settings.WebhookURL,
			Secret:     settings.WebhookSecret,
			Kind:       settings.WebhookKind,
			HTTPClient: sc.runtime.HTTPClient,
			Now:        sc.runtime.Now,
		})
		if err != nil {
			return err
		}
	}

	svc, err := sc.runtime.newService(settings)
	if err != nil {
		return err
	}

	doc, err := svc.Summary(ctx, settings.Date)
	if err != nil {
		return err
	}

	out, err := export.Render(doc, settings.Format)
	if err != nil {
		return err
	}

	if settings.OutputPath != "" {
		if err := writeFile(settings.OutputPath, out); err != nil {
			return err
		}
		logger.Info().Str("path", settings.OutputPath).Msg("summary written")
	} else if _, err := cmd.OutOrStdout().Write(out); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	if publisher == nil {
		logger.Debug().Msg("webhook delivery skipped")
		return nil
	}
	return publisher.Publish(ctx, string(out), settings.Format)
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
