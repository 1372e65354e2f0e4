package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	idb "landten/internal/infra/database"
	"landten/internal/infra/httpapi"
	"landten/internal/infra/logger"
	"landten/internal/infra/scheduler"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the daily sweep and the Telegram bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer db.Close()

			log := logger.Component("main")
			applied, err := idb.Migrate(cmd.Context(), db)
			if err != nil {
				return err
			}
			if len(applied) > 0 {
				log.WithField("migrations", applied).Info("Database migrations applied")
			}

			a, err := buildApplication(cfg, db)
			if err != nil {
				return err
			}

			api := httpapi.NewServer(httpapi.Services{
				Auth:          a.services.auth,
				Properties:    a.services.properties,
				Tenants:       a.services.tenants,
				Payments:      a.services.payments,
				Receipts:      a.services.receipts,
				Notifications: a.notifications,
				Analytics:     a.services.analytics,
			}, a.hub, httpapi.Options{
				LoginRatePerMinute: cfg.LoginRatePerMinute,
				PingInterval:       cfg.SSEPingInterval,
				MaxReceiptBytes:    cfg.ReceiptMaxBytes,
			}, logger.Component("http"))

			srv := &http.Server{
				Addr:              cfg.HTTPAddr,
				Handler:           api.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			sweeps := scheduler.NewSweepScheduler(a.sweeper, cfg.CronSpecSweep, cfg.SweepTimeout, logger.Component("scheduler")).
				WithStartupRun(cfg.SweepOnStart)
			if err := sweeps.Start(); err != nil {
				return err
			}
			defer sweeps.Stop()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				log.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			if a.bot != nil {
				g.Go(func() error {
					log.Info("Telegram bot polling")
					a.bot.Start()
					return nil
				})
			} else {
				log.Warn("TELEGRAM_TOKEN not set, Telegram channel disabled")
			}
			g.Go(func() error {
				<-gctx.Done()
				log.Info("Shutting down application...")
				if a.bot != nil {
					a.bot.Stop()
				}
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})

			if err := g.Wait(); err != nil {
				return err
			}
			log.Info("Application shut down gracefully")
			return nil
		},
	}
}
