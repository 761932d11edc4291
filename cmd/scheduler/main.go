// Command scheduler triggers the analytics refresh jobs on their cron schedule.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crm/dashboard/internal/infrastructure/config"
	"github.com/crm/dashboard/internal/infrastructure/logger"
	"github.com/crm/dashboard/internal/infrastructure/scheduler"
	"github.com/crm/dashboard/internal/infrastructure/telemetry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "time/tzdata" // Europe/Moscow on hosts without a zoneinfo database
)

var metricsAddr string

var rootCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Analytics refresh scheduler",
	Long: `Calls the analytics service on a fixed cron schedule:

  daily-refresh     POST refresh, daily at 02:00
  periodic-refresh  POST refresh, every 4 hours
  health-check      GET health, every 30 minutes

Schedules are evaluated in the configured timezone (Europe/Moscow by default).`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scheduler until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withScheduler(func(s *scheduler.Scheduler, metrics *telemetry.Metrics, log *zap.Logger) error {
			return runScheduler(s, metrics, log)
		})
	},
}

var runNowCmd = &cobra.Command{
	Use:   "run-now <job>",
	Short: "Execute one job immediately and exit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withScheduler(func(s *scheduler.Scheduler, _ *telemetry.Metrics, log *zap.Logger) error {
			res, err := s.RunNow(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: HTTP %d in %s\n", args[0], res.StatusCode, res.Latency)
			return nil
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print configured jobs and their next run",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withScheduler(func(s *scheduler.Scheduler, _ *telemetry.Metrics, _ *zap.Logger) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(s.Status())
		})
	},
}

func init() {
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9102)")
	rootCmd.AddCommand(runCmd, runNowCmd, listCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func withScheduler(fn func(*scheduler.Scheduler, *telemetry.Metrics, *zap.Logger) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(&logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Service: cfg.App.Name + "-scheduler",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync(log)
	}()
	log = log.Named("scheduler")

	tp, err := telemetry.NewTracerProvider(context.Background(), telemetry.FromConfig(cfg.App, cfg.Telemetry, "scheduler"), log)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Warn("Tracer provider shutdown failed", zap.Error(err))
		}
	}()

	metrics := telemetry.NewMetrics()
	executor := scheduler.NewHTTPExecutor(cfg.Scheduler.AnalyticsURL, nil, cfg.Scheduler.RequestTimeout, log)
	s, err := scheduler.NewScheduler(scheduler.SchedulerConfig{
		Timezone:       cfg.Scheduler.Timezone,
		TickInterval:   cfg.Scheduler.TickInterval,
		RequestTimeout: cfg.Scheduler.RequestTimeout,
		RunOnStart:     cfg.Scheduler.RunOnStart,
		Jobs: scheduler.AnalyticsJobs(
			cfg.Scheduler.DailyRefreshCron,
			cfg.Scheduler.PeriodicRefreshCron,
			cfg.Scheduler.HealthCheckCron,
			cfg.Scheduler.RefreshPath,
			cfg.Scheduler.HealthPath,
		),
	}, executor, log, scheduler.WithObserver(metrics))
	if err != nil {
		return err
	}

	return fn(s, metrics, log)
}

func runScheduler(s *scheduler.Scheduler, metrics *telemetry.Metrics, log *zap.Logger) error {
	var srv *http.Server
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv = &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Info("Metrics listener starting", zap.String("addr", metricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Metrics listener failed", zap.Error(err))
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	log.Info("Shutting down scheduler...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if srv != nil {
		_ = srv.Shutdown(shutdownCtx)
	}
	return s.Stop(shutdownCtx)
}
