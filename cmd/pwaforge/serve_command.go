package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"pwaforge/internal/entity"
	"pwaforge/internal/logging"
	"pwaforge/internal/server"
)

func newServeCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the pwaforge API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			lock := flock.New(filepath.Join(cfg.Paths.DataDir, "pwaforge.lock"))
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire instance lock: %w", err)
			}
			if !locked {
				return fmt.Errorf("another pwaforge instance holds %s", lock.Path())
			}
			defer func() {
				_ = lock.Unlock()
			}()

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("configure logging: %w", err)
			}

			store, err := entity.Open(cfg)
			if err != nil {
				return fmt.Errorf("open entity store: %w", err)
			}
			defer store.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(cfg, store, logger)
			if err := srv.Start(ctx); err != nil {
				return err
			}

			<-ctx.Done()
			logger.Info("shutting down")
			srv.Stop()
			return nil
		},
	}
}
