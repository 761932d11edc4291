// Command telegram registers, inspects and removes the bot webhook.
package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/crm/dashboard/internal/infrastructure/config"
	"github.com/crm/dashboard/internal/infrastructure/logger"
	"github.com/crm/dashboard/internal/infrastructure/telegram"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	webhookURL     string
	secretToken    string
	dropPending    bool
	allowedUpdates []string
)

var rootCmd = &cobra.Command{
	Use:          "telegram",
	Short:        "Manage the Telegram bot webhook",
	SilenceUsage: true,
}

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Register the webhook URL",
	Long: `Register the webhook URL with the Bot API.

The URL and secret default to telegram.webhook_url and telegram.secret_token.

Examples:
  telegram set
  telegram set --url https://crm.example.com/api/telegram/webhook --drop-pending`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *telegram.Client, cfg *config.Config) error {
			url := webhookURL
			if url == "" {
				url = cfg.Telegram.WebhookURL
			}
			secret := secretToken
			if secret == "" {
				secret = cfg.Telegram.SecretToken
			}
			if err := c.SetWebhook(ctx, telegram.SetWebhookParams{
				URL:                url,
				SecretToken:        secret,
				DropPendingUpdates: dropPending,
				AllowedUpdates:     allowedUpdates,
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Webhook set: %s\n", url)
			return nil
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the webhook",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *telegram.Client, _ *config.Config) error {
			if err := c.DeleteWebhook(ctx, dropPending); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Webhook deleted")
			return nil
		})
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the current webhook status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *telegram.Client, _ *config.Config) error {
			info, err := c.GetWebhookInfo(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "URL\t%s\n", orNone(info.URL))
			fmt.Fprintf(w, "Pending updates\t%d\n", info.PendingUpdateCount)
			fmt.Fprintf(w, "Custom certificate\t%t\n", info.HasCustomCertificate)
			if info.MaxConnections > 0 {
				fmt.Fprintf(w, "Max connections\t%d\n", info.MaxConnections)
			}
			if at := info.LastError(); at != nil {
				fmt.Fprintf(w, "Last error\t%s (%s)\n", info.LastErrorMessage, at.Format(time.RFC3339))
			}
			return w.Flush()
		})
	},
}

func init() {
	setCmd.Flags().StringVar(&webhookURL, "url", "", "Webhook URL (https)")
	setCmd.Flags().StringVar(&secretToken, "secret", "", "Secret sent in X-Telegram-Bot-Api-Secret-Token")
	setCmd.Flags().StringSliceVar(&allowedUpdates, "allowed-updates", nil, "Update types to receive")
	setCmd.Flags().BoolVar(&dropPending, "drop-pending", false, "Drop pending updates")
	deleteCmd.Flags().BoolVar(&dropPending, "drop-pending", false, "Drop pending updates")

	rootCmd.AddCommand(setCmd, deleteCmd, infoCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func withClient(cmd *cobra.Command, fn func(context.Context, *telegram.Client, *config.Config) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: "console",
		Output: "stderr",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	client, err := telegram.NewClient(cfg.Telegram.APIBaseURL, cfg.Telegram.BotToken, cfg.Telegram.Timeout, log.Named("telegram"))
	if err != nil {
		return err
	}

	if err := fn(cmd.Context(), client, cfg); err != nil {
		log.Error("Telegram request failed", zap.String("command", cmd.Name()), zap.Error(err))
		return err
	}
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
