package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"podnotes/internal/notifications"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test push notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			service := notifications.NewService(cfg)
			if err := service.TestNotification(cmd.Context()); err != nil {
				return fmt.Errorf("send test notification: %w", err)
			}
			if cfg.Notifications.NtfyTopic == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "No ntfy topic configured; nothing was sent")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Test notification sent to topic %s\n", cfg.Notifications.NtfyTopic)
			return nil
		},
	}
}
