package main

import (
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"corkboard/internal/config"
	"corkboard/internal/daemon"
	"corkboard/internal/logging"
)

func newServeCommand(configFlag *string) *cobra.Command {
	var foregroundLogs bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the board server until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(configFlag)
			if err != nil {
				return err
			}
			return runServe(cmd, cfg, foregroundLogs)
		},
	}

	cmd.Flags().BoolVar(&foregroundLogs, "log-stdout", false, "Log to stdout in addition to the log file")

	return cmd
}

func runServe(cmd *cobra.Command, cfg *config.Config, foregroundLogs bool) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	runID := time.Now().UTC().Format("20060102T150405Z")
	outputs := []string{filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("corkboard-%s.log", runID))}
	if foregroundLogs {
		outputs = append(outputs, "stdout")
	}

	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: outputs,
	})
	if err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}

	d, err := daemon.New(cfg, logger)
	if err != nil {
		return err
	}
	if err := d.Start(ctx); err != nil {
		if errors.Is(err, daemon.ErrAlreadyRunning) {
			return fmt.Errorf("%w (lock: %s)", err, d.LockPath())
		}
		return err
	}
	defer d.Stop()

	fmt.Fprintf(cmd.OutOrStdout(), "corkboard listening on %s\n", d.Addr())

	<-ctx.Done()
	return nil
}
