package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/voicebot/consultd/config"
	"github.com/voicebot/consultd/internal/adapters/dispatchscheduler"
	"github.com/voicebot/consultd/internal/adapters/reaper"
	"github.com/voicebot/consultd/internal/core"
	"github.com/voicebot/consultd/internal/observability/statsd"
	"github.com/voicebot/consultd/internal/service"
)

// DispatchSchedulerConfig contains configuration for the cron-driven start trigger.
type DispatchSchedulerConfig struct {
	Starter dispatchscheduler.Starter
	Lock    core.CacheRepository
	Config  config.DispatchSchedulerConfig
	Logger  *slog.Logger
	Metrics statsd.Sink
}

// RunDispatchScheduler starts the dispatch scheduler and blocks until ctx ends.
func RunDispatchScheduler(ctx context.Context, cfg DispatchSchedulerConfig) error {
	runner, err := dispatchscheduler.NewRunner(dispatchscheduler.RunnerOptions{
		Starter: cfg.Starter,
		Lock:    cfg.Lock,
		Config:  cfg.Config,
		Logger:  cfg.Logger,
		Metrics: cfg.Metrics,
	})
	if err != nil {
		return fmt.Errorf("create dispatch scheduler: %w", err)
	}

	return runner.Run(ctx)
}

// ReaperConfig contains configuration for reaper.
type ReaperConfig struct {
	DB        *sql.DB
	Redis     redis.UniversalClient
	Publisher core.StatusPublisher
	Notifier  service.FailureNotifier
	Logger    *slog.Logger
	Config    config.ReaperConfig
	Metrics   statsd.Sink
}

// RunReaper starts the reaper service.
func RunReaper(ctx context.Context, cfg ReaperConfig) error {
	runner, err := reaper.NewRunner(reaper.RunnerOptions{
		DB:        cfg.DB,
		Redis:     cfg.Redis,
		Publisher: cfg.Publisher,
		Notifier:  cfg.Notifier,
		Config:    cfg.Config,
		Logger:    cfg.Logger,
		Metrics:   cfg.Metrics,
	})
	if err != nil {
		return fmt.Errorf("create reaper runner: %w", err)
	}

	return runner.Run(ctx)
}
