package main

import (
	"github.com/spf13/cobra"

	"podnotes/internal/daemonrun"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var logLevel string
	var console bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the podcast pipeline in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel: logLevel,
				Console:  console,
			})
		},
	}

	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
	cmd.Flags().BoolVar(&console, "console", false, "Log to stdout in console format as well")
	return cmd
}
