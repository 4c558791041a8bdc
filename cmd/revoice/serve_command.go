package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"revoice/internal/daemon"
	"revoice/internal/deps"
	"revoice/internal/logging"
	"revoice/internal/preflight"
	"revoice/internal/workflow"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the voice replacement API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			for _, missing := range deps.Missing(preflight.CheckSystemDeps(signalCtx, cfg)) {
				logging.WarnWithContext(logger, "required binary not available", "missing_dependency",
					logging.String("dependency", missing.Name),
					logging.String("command", missing.Command),
					logging.String(logging.FieldErrorHint, missing.Detail),
				)
			}

			store, err := ctx.openStore()
			if err != nil {
				logger.Error("open catalog", logging.Error(err))
				return err
			}

			providers, err := workflow.NewDependencies(cfg, store)
			if err != nil {
				_ = store.Close()
				return fmt.Errorf("configure providers: %w", err)
			}
			mgr := workflow.NewManager(cfg, providers, logger)

			d, err := daemon.New(cfg, store, logger, mgr)
			if err != nil {
				_ = store.Close()
				return fmt.Errorf("create daemon: %w", err)
			}
			defer d.Close()

			if err := d.Start(signalCtx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "revoice listening on %s\n", d.Status().APIAddress)

			<-signalCtx.Done()
			logger.Info("revoice server shutting down")
			return nil
		},
	}
}
