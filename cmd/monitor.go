package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/growthsignals/redditwatch/internal/analyzer"
	"github.com/growthsignals/redditwatch/internal/api"
	"github.com/growthsignals/redditwatch/internal/app"
	"github.com/growthsignals/redditwatch/internal/monitor"
	"github.com/growthsignals/redditwatch/internal/runner"
	"github.com/growthsignals/redditwatch/internal/scheduler"
	"github.com/growthsignals/redditwatch/internal/scorer/openai"
)

func newMonitorCmd() *cobra.Command {
	var (
		once bool
		ai   bool
	)

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Run the monitoring pipeline",
		Long: `Run monitoring cycles over the configured subreddits. By default the
scheduler triggers a cycle every configured interval until interrupted;
--once runs a single cycle immediately and exits.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if ai {
				appInstance.Config.AI.Enabled = true
				if appInstance.Config.AI.APIKey == "" {
					return fmt.Errorf("ai.api_key must be set to enable AI scoring")
				}
			}
			return runMonitor(cmd.Context(), appInstance, once)
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "run a single cycle and exit")
	cmd.Flags().BoolVar(&ai, "ai", false, "enable the AI secondary scorer for this run")

	return cmd
}

func runMonitor(ctx context.Context, a *app.App, once bool) error {
	cfg := a.Config

	var secondary monitor.SecondaryScorer
	if cfg.AI.Enabled {
		secondary = openai.New(openai.Config{
			Endpoint: cfg.AI.Endpoint,
			Model:    cfg.AI.Model,
			APIKey:   cfg.AI.APIKey,
			Timeout:  cfg.AITimeout(),
		}, a.Logger.Named("scorer"))
		a.Logger.Info("AI secondary scoring enabled", zap.String("model", cfg.AI.Model))
	}

	scoring := analyzer.New(cfg.Monitor.Keywords, secondary, a.Logger.Named("analyzer"))
	cycles := runner.New(a.Source, a.Store, scoring, a.Notifier, a.Clock, runner.Config{
		Subreddits: cfg.Monitor.Subreddits,
		PageSize:   cfg.Monitor.PageSize,
		Sort:       cfg.Monitor.Sort,
	}, a.Logger.Named("runner"))

	sched := scheduler.New(cycles, cfg.Interval(), a.Logger.Named("scheduler"))

	if once {
		a.Logger.Info("running a single monitoring cycle")
		sched.RunOnce(ctx)
		sched.Wait()
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv *http.Server
	if cfg.Server.Enabled {
		statusAPI := api.NewServer(a.Store, sched, a.Logger.Named("api"))
		srv = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           statusAPI.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			a.Logger.Info("status server listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.Logger.Error("status server failed", zap.Error(err))
			}
		}()
	}

	sched.Start(ctx)
	a.Logger.Info("monitoring started",
		zap.Strings("subreddits", cfg.Monitor.Subreddits),
		zap.Duration("interval", cfg.Interval()))

	<-ctx.Done()
	a.Logger.Info("shutdown signal received")

	// Stop taking new cycles, then let any in-flight cycle finish.
	sched.Stop()
	sched.Wait()

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.Logger.Warn("status server shutdown", zap.Error(err))
		}
	}

	a.Logger.Info("monitoring stopped")
	return nil
}
