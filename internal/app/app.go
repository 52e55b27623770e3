// Package app initializes and holds long-lived application services,
// acting as a dependency injection container.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/growthsignals/redditwatch/internal/clock/system"
	"github.com/growthsignals/redditwatch/internal/config"
	"github.com/growthsignals/redditwatch/internal/logging"
	"github.com/growthsignals/redditwatch/internal/metrics"
	"github.com/growthsignals/redditwatch/internal/monitor"
	"github.com/growthsignals/redditwatch/internal/notify"
	notifypubsub "github.com/growthsignals/redditwatch/internal/notify/pubsub"
	"github.com/growthsignals/redditwatch/internal/reddit"
	"github.com/growthsignals/redditwatch/internal/storage/postgres"
)

// App holds the shared, long-lived services. It is initialized once at
// startup and handed to the commands that need it.
type App struct {
	Config   config.Config
	Logger   *zap.Logger
	Store    monitor.Store
	Source   *reddit.Client
	Notifier monitor.Notifier
	Clock    monitor.Clock
}

// New builds the service container from configuration, failing fast if any
// critical dependency cannot be initialized.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	metrics.Init()

	clk := system.New()

	store, err := postgres.New(ctx, postgres.Config{
		DSN:      cfg.DB.DSN,
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	}, clk, logger.Named("store"))
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	source := reddit.New(reddit.Config{
		ClientID:     cfg.Reddit.ClientID,
		ClientSecret: cfg.Reddit.ClientSecret,
		Username:     cfg.Reddit.Username,
		Password:     cfg.Reddit.Password,
		UserAgent:    cfg.Reddit.UserAgent,
	}, logger.Named("reddit"))

	notifier, err := newNotifier(ctx, cfg, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &App{
		Config:   cfg,
		Logger:   logger,
		Store:    store,
		Source:   source,
		Notifier: notifier,
		Clock:    clk,
	}, nil
}

func newNotifier(ctx context.Context, cfg config.Config, logger *zap.Logger) (monitor.Notifier, error) {
	switch cfg.Notify.Provider {
	case "", "none":
		return notify.Nop{}, nil
	case "memory":
		return notify.NewMemory(), nil
	case "pubsub":
		logger.Info("connecting to pubsub", zap.String("topic", cfg.Notify.TopicID))
		pub, err := notifypubsub.New(ctx, cfg.Notify.ProjectID, cfg.Notify.TopicID, logger.Named("notify"))
		if err != nil {
			return nil, fmt.Errorf("init pubsub notifier: %w", err)
		}
		return pub, nil
	default:
		return nil, fmt.Errorf("unknown notify provider: %s", cfg.Notify.Provider)
	}
}

// Close gracefully shuts down all services in the container.
func (a *App) Close() {
	if err := a.Notifier.Close(); err != nil {
		a.Logger.Warn("close notifier", zap.Error(err))
	}
	a.Store.Close()
	_ = a.Logger.Sync() //nolint:errcheck // best-effort flush
}
