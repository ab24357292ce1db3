package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"minical/internal/config"
	appLog "minical/internal/log"
	"minical/internal/remind"
	"minical/internal/storage"
	"minical/internal/store"
	"minical/internal/web"
)

func newServeCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the calendar daemon (HTTP API + reminder timers)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), listen)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}

func runServe(parent context.Context, listen string) error {
	appLog.Info("minical starting", "config_path", configFlag)

	cfg, err := config.Load(configFlag)
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Listen = listen
	}

	appLog.Info("effective config",
		"listen", cfg.Listen,
		"timezone", cfg.Timezone,
		"storage_driver", cfg.Storage.Driver,
		"storage_path", cfg.Storage.Path,
		"reminder_refresh", cfg.ReminderRefresh,
		"reminder_horizon_hours", cfg.ReminderHorizonHours,
	)

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	backend, err := storage.Open(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer backend.Close()

	st, err := store.Open(ctx, backend)
	if err != nil {
		return err
	}

	recorder := remind.NewRecorder(0)
	sched := remind.New(st, recorder,
		remind.WithHorizon(time.Duration(cfg.ReminderHorizonHours)*time.Hour))
	st.SetRescheduler(sched)
	defer sched.Stop()

	// Initial pass plus a cron-driven refresh so the horizon keeps
	// rolling forward while the daemon runs.
	sched.RescheduleAll()
	c := cron.New()
	if _, err := c.AddFunc(cfg.ReminderRefresh, sched.RescheduleAll); err != nil {
		appLog.Error("invalid reminder_refresh schedule; periodic refresh disabled", err,
			"schedule", cfg.ReminderRefresh)
	} else {
		c.Start()
		defer c.Stop()
	}

	srv := &http.Server{
		Addr:    cfg.Listen,
		Handler: web.NewServer(cfg, st, recorder).Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			appLog.Error("HTTP server shutdown failed", err)
		}
		<-errCh
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	appLog.Info("minical exiting")
	return nil
}
