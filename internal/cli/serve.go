package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/baysound/sf-events/internal/logger"
	"github.com/baysound/sf-events/internal/metrics"
	"github.com/baysound/sf-events/internal/pipeline"
	"github.com/baysound/sf-events/internal/scheduler"
	"github.com/baysound/sf-events/internal/server"
	"github.com/baysound/sf-events/internal/storage"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(root *rootFlags) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run extraction on a schedule and serve status over HTTP",
		Long: `Run extraction immediately and then every schedule.interval_minutes,
storing each run, while serving /healthz, /metrics, /calendar.ics and the
/api/runs endpoints.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, root)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("bind") {
				a.cfg.Server.Bind = bind
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, a)
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (default from config, 127.0.0.1:8089)")
	return cmd
}

func runServe(ctx context.Context, a *app) error {
	lock, err := lockDataDir(a.cfg.DataDir)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	store, err := storage.Open(a.cfg.DataDir)
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	defer store.Close()

	m := metrics.New()
	p := pipeline.New(fetcherFactory(a.cfg), pipeline.Options{
		Radius:       a.cfg.Extract.WindowRadius,
		AssumedYear:  a.cfg.Extract.AssumedYear,
		Workers:      a.cfg.Extract.Workers,
		FetchTimeout: a.cfg.FetchTimeout(),
		Logger:       a.log,
		Metrics:      m,
	})

	sched := scheduler.New(scheduledRun(a, p, store), a.cfg.Interval())
	sched.SetLogger(a.log.With(logger.Fields{"component": "scheduler"}))

	handler := server.New(server.Deps{
		Store:      store,
		Scheduler:  sched,
		Metrics:    m.Handler(),
		Logger:     a.log,
		RunContext: ctx,
	})
	srv := &http.Server{
		Addr:              a.cfg.Server.Bind,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("HTTP server listening", logger.Fields{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	a.log.Info("Shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// scheduledRun runs every enabled venue and stores the result.
func scheduledRun(a *app, p *pipeline.Pipeline, store *storage.Store) scheduler.RunFunc {
	return func(ctx context.Context) error {
		res, err := p.Run(ctx, a.registry.Enabled())
		if err != nil {
			return err
		}
		if err := store.SaveRun(ctx, res); err != nil {
			return fmt.Errorf("saving run: %w", err)
		}
		if keep := a.cfg.Schedule.KeepRuns; keep > 0 {
			removed, err := store.Prune(ctx, keep)
			if err != nil {
				a.log.Warn("Failed to prune run history", nil, err)
			} else if removed > 0 {
				a.log.Debug("Pruned run history", logger.Fields{"removed": removed})
			}
		}
		return nil
	}
}
