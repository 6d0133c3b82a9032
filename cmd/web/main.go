package main

import (
	"fmt"
	"net"
	"os"
	_ "time/tzdata"

	"github.com/de-tools/umami-digest/pkg/server"
	"github.com/de-tools/umami-digest/pkg/services/config"
	"github.com/de-tools/umami-digest/pkg/services/summary"
	"github.com/de-tools/umami-digest/pkg/store/client"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	envFile      string
	profile      string
	profilesFile string
)

func main() {
	var rootCmd = &cobra.Command{
		Use:          "web",
		Short:        "Serve Umami daily summaries over HTTP",
		SilenceUsage: true,
		RunE:         runServer,
	}

	rootCmd.Flags().StringVar(&envFile, "env-file", "", "Read settings from a dotenv file")
	rootCmd.Flags().StringVar(&profile, "profile", "", "Profile section to use from the profiles file")
	rootCmd.Flags().StringVar(&profilesFile, "profiles-file", "",
		"Path to the profiles file (default $HOME/"+config.ProfilesFileName+")")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(cmd.Context())

	settings, err := config.Load(ctx, config.Sources{
		EnvFile:      envFile,
		ProfilesFile: profilesFile,
		Profile:      profile,
	})
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	umami, err := client.NewUmamiClient(settings.ClientOptions())
	if err != nil {
		return fmt.Errorf("failed to create umami client: %w", err)
	}

	logger.Info().
		Str("website", settings.WebsiteID).
		Str("base_url", settings.BaseURL).
		Str("timezone", settings.Timezone).
		Strs("funnels", settings.FunnelNames).
		Msg("settings loaded")

	host := os.Getenv("SERVER_HOST")
	port := os.Getenv("SERVER_PORT")

	if host == "" || port == "" {
		return fmt.Errorf("missing SERVER_HOST or SERVER_PORT")
	}

	api := server.NewWebAPI(server.Config{
		Addr: net.JoinHostPort(host, port),
		Dependencies: server.Dependencies{
			Summary: summary.NewService(settings, umami, nil),
			Logger:  logger,
		},
	})

	return api.Start()
}
