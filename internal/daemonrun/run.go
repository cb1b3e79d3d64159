// Package daemonrun wires configuration, logging, the ledger, and the
// workflow into a running daemon process and blocks until shutdown.
package daemonrun

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"podnotes/internal/config"
	"podnotes/internal/daemon"
	"podnotes/internal/ledger"
	"podnotes/internal/logging"
	"podnotes/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
	Console  bool
}

// Run starts the podnotes daemon and blocks until the context is cancelled
// or a termination signal arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}

	level := strings.TrimSpace(opts.LogLevel)
	if level == "" {
		level = cfg.Logging.Level
	}
	format := cfg.Logging.Format
	if opts.Console {
		format = "console"
	}
	runID := time.Now().UTC().Format("20060102T150405Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("podnotes-%s.log", runID))
	outputs := []string{logPath}
	if opts.Console || format == "console" {
		outputs = append(outputs, "stdout")
	}

	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      format,
		OutputPaths: outputs,
	})
	if err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}

	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "podnotes-*.log", Exclude: []string{logPath}},
	)

	store, err := ledger.Open(cfg)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer store.Close()

	manager := workflow.NewManager(cfg, store, logger)
	d, err := daemon.New(cfg, store, logger, manager)
	if err != nil {
		return err
	}

	if err := d.Start(signalCtx); err != nil {
		return err
	}

	for _, check := range manager.Health(signalCtx) {
		if !check.Ready {
			logger.Warn(
				"stage not ready",
				logging.String("stage", check.Name),
				logging.String("detail", check.Detail),
			)
		}
	}

	<-signalCtx.Done()
	logger.Info("shutdown requested")
	d.Stop()
	return nil
}
