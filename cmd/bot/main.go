package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/suspectuso/earn-bot/internal/config"
)

var (
	cfg *config.Config
	log *slog.Logger
)

// rootCmd runs the webhook server when called without a subcommand
var rootCmd = &cobra.Command{
	Use:           "bot",
	Short:         "Points ledger Telegram bot",
	Long:          "Telegram bot that lets users earn points, invite friends and request withdrawals.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load .env file
		envErr := godotenv.Load()

		cfg = config.Load()

		// Setup logger
		log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.LogLevel,
		}))
		slog.SetDefault(log)

		if envErr != nil {
			log.Debug("no .env file found")
		}

		return cfg.Validate()
	},
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(webhookCmd)
	rootCmd.AddCommand(backupCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
