package terminal

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/de-tools/umami-digest/pkg/models/domain"
	"github.com/de-tools/umami-digest/pkg/runtime/terminal/commands"
	"github.com/de-tools/umami-digest/pkg/services/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitConfig   = 2
	ExitDelivery = 3
)

// CLI represents the command-line interface
type CLI struct {
	opts    Options
	verbose bool
	rootCmd *cobra.Command
}

// Options contain configuration for the CLI
type Options struct {
	Output    io.Writer
	ErrOutput io.Writer
	LookupEnv func(key string) (string, bool)
	Now       func() time.Time
	// HTTPClient is shared by the Umami client and the webhook publisher.
	HTTPClient *http.Client
}

// NewCLI creates a new CLI instance
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.ErrOutput == nil {
		opts.ErrOutput = os.Stderr
	}

	cli := &CLI{opts: opts}
	cli.rootCmd = cli.newRootCmd()
	return cli
}

func (cli *CLI) Execute() error {
	return cli.ExecuteContext(context.Background())
}

func (cli *CLI) ExecuteContext(ctx context.Context) error {
	return cli.rootCmd.ExecuteContext(ctx)
}

func (cli *CLI) SetArgs(args []string) {
	cli.rootCmd.SetArgs(args)
}

func (cli *CLI) newRootCmd() *cobra.Command {
	rt := commands.Runtime{
		LookupEnv:  cli.opts.LookupEnv,
		Now:        cli.opts.Now,
		HTTPClient: cli.opts.HTTPClient,
	}

	cmd := commands.NewSummaryCmd(rt)
	cmd.Use = "umami-digest"
	cmd.Long = "Fetch yesterday's Umami metrics and funnel conversions, render them as markdown or JSON " +
		"and post the result to a chat webhook."
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetOut(cli.opts.Output)
	cmd.SetErr(cli.opts.ErrOutput)
	cmd.PersistentPreRun = cli.setupLogger

	flags := cmd.PersistentFlags()
	flags.String("env-file", "", "Read settings from a dotenv file")
	flags.String("profile", "", "Profile section to use from the profiles file")
	flags.String("profiles-file", "", "Path to the profiles file (default $HOME/"+config.ProfilesFileName+")")
	flags.BoolVarP(&cli.verbose, "verbose", "v", false, "Enable debug logging")
	config.RegisterFlags(flags)
	cmd.SetGlobalNormalizationFunc(normalizeFlagName)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &domain.ConfigError{Field: "flags", Msg: err.Error()}
	})

	cmd.AddCommand(commands.NewFunnelsCmd(rt))
	cmd.AddCommand(commands.NewProfilesCmd())

	return cmd
}

func (cli *CLI) setupLogger(cmd *cobra.Command, _ []string) {
	level := zerolog.InfoLevel
	if cli.verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: cli.opts.ErrOutput, TimeFormat: time.TimeOnly}).
		Level(level).
		With().
		Timestamp().
		Logger()
	cmd.SetContext(logger.WithContext(cmd.Context()))
}

// normalizeFlagName keeps --day as an alias of --date.
func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	if name == "day" {
		name = "date"
	}
	return pflag.NormalizedName(name)
}

// ExitCode maps an execution error to the process exit status.
func ExitCode(err error) int {
	var (
		cfgErr      *domain.ConfigError
		deliveryErr *domain.DeliveryError
	)
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &cfgErr):
		return ExitConfig
	case errors.As(err, &deliveryErr):
		return ExitDelivery
	default:
		return ExitFailure
	}
}
