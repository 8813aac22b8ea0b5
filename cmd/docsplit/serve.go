package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docsplit/internal/api"
	"github.com/dgallion1/docsplit/internal/docerr"
	"github.com/dgallion1/docsplit/internal/pipeline"
)

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the split HTTP service",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if err := cfg.Validate(); err != nil {
				return docerr.Wrap(docerr.KindInvalidArguments, "serve", err, "invalid configuration")
			}
			if err := os.MkdirAll(cfg.OutputRoot, 0o755); err != nil {
				return docerr.Wrap(docerr.KindOutputDirectoryUnavailable, "serve", err, "cannot create %s", cfg.OutputRoot)
			}

			log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			// Initialize pipeline.
			orch := pipeline.NewOrchestrator(cfg, log)
			orch.Start(ctx)

			// Initialize HTTP server.
			srv := api.NewServer(orch, log, cfg)

			httpServer := &http.Server{
				Addr:         ":" + cfg.Port,
				Handler:      srv,
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 120 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			// Graceful shutdown.
			go func() {
				sigCh := make(chan os.Signal, 1)
				signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
				<-sigCh
				log.Info("shutting down...")

				// Stop accepting uploads before the queue closes.
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer shutdownCancel()
				httpServer.Shutdown(shutdownCtx)

				orch.Stop()
			}()

			log.Info("starting docsplit", "port", cfg.Port, "output_root", cfg.OutputRoot, "workers", cfg.WorkerCount)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return docerr.Wrap(docerr.KindIOFailure, "serve", err, "server error")
			}
			return nil
		},
	}
}
