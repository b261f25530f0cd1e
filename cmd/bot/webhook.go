package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/suspectuso/earn-bot/internal/telegram"
	"github.com/suspectuso/earn-bot/internal/webhook"
)

// webhookCmd groups webhook registration commands
var webhookCmd = &cobra.Command{
	Use:   "webhook",
	Short: "Manage the Telegram webhook registration",
}

var webhookSetCmd = &cobra.Command{
	Use:   "set [url]",
	Short: "Register the webhook URL (defaults to WEBHOOK_URL)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url := cfg.WebhookURL
		if len(args) == 1 {
			url = args[0]
		}
		m, err := newWebhookManager(url)
		if err != nil {
			return err
		}
		if err := m.Setup(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Webhook set to %s\n", url)
		return nil
	},
}

var webhookDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the webhook registration",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newWebhookManager(cfg.WebhookURL)
		if err != nil {
			return err
		}
		if err := m.Delete(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Webhook deleted")
		return nil
	},
}

var webhookInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the current webhook registration",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newWebhookManager(cfg.WebhookURL)
		if err != nil {
			return err
		}
		info, err := m.Info(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		url := info.URL
		if url == "" {
			url = "(none)"
		}
		fmt.Fprintf(out, "URL: %s\n", url)
		fmt.Fprintf(out, "Pending updates: %d\n", info.PendingUpdateCount)
		if info.LastErrorMessage != "" {
			fmt.Fprintf(out, "Last error: %s\n", info.LastErrorMessage)
		}
		return nil
	},
}

func init() {
	webhookCmd.AddCommand(webhookSetCmd)
	webhookCmd.AddCommand(webhookDeleteCmd)
	webhookCmd.AddCommand(webhookInfoCmd)
}

func newWebhookManager(url string) (*webhook.Manager, error) {
	bot, err := telegram.New(cfg.BotToken, log)
	if err != nil {
		return nil, err
	}
	return webhook.NewManager(bot, url, log), nil
}
