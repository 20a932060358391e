// Package reaper provides adapters for running the consultation reaper.
package reaper

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/voicebot/consultd/config"
	"github.com/voicebot/consultd/internal/core"
	"github.com/voicebot/consultd/internal/data"
	"github.com/voicebot/consultd/internal/observability/statsd"
	"github.com/voicebot/consultd/internal/service"
)

// Runner provides a simple adapter to run the reaper loop.
// It constructs the reaper service and runs the cleanup loop.
type Runner struct {
	reaper *service.ReaperService
	logger *slog.Logger
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	DB        *sql.DB
	Redis     redis.UniversalClient
	Publisher core.StatusPublisher
	Notifier  service.FailureNotifier
	Config    config.ReaperConfig
	Logger    *slog.Logger
	Metrics   statsd.Sink

	// Optional dependency injection for testing/decoupling
	InFlight     core.InFlightTracker
	Correlations core.CorrelationStore
	History      core.HistoryRetention
}

// NewRunner creates a new reaper runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if err := validateRunnerOptions(&opts); err != nil {
		return nil, err
	}

	reaper, err := wireReaperService(opts)
	if err != nil {
		return nil, fmt.Errorf("wire reaper service: %w", err)
	}

	return &Runner{reaper: reaper, logger: opts.Logger}, nil
}

// validateRunnerOptions validates and sets defaults for RunnerOptions.
func validateRunnerOptions(opts *RunnerOptions) error {
	if opts.History == nil && opts.DB == nil {
		return errors.New("database connection is required")
	}
	if (opts.InFlight == nil || opts.Correlations == nil) && opts.Redis == nil {
		return errors.New("redis client is required")
	}
	if opts.Publisher == nil {
		return errors.New("status publisher is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return nil
}

// wireReaperService fills unset stores from the shared connections.
func wireReaperService(opts RunnerOptions) (*service.ReaperService, error) {
	inFlight := opts.InFlight
	if inFlight == nil {
		inFlight = data.NewRedisInFlightTracker(opts.Redis)
	}
	correlations := opts.Correlations
	if correlations == nil {
		correlations = data.NewRedisCorrelationStore(opts.Redis)
	}
	history := opts.History
	if history == nil {
		history = data.NewConsultationRepo(opts.DB)
	}

	return service.NewReaperService(service.ReaperServiceOptions{
		InFlight:     inFlight,
		Correlations: correlations,
		History:      history,
		Publisher:    opts.Publisher,
		Notifier:     opts.Notifier,
		Config:       opts.Config,
		Logger:       opts.Logger,
		Metrics:      opts.Metrics,
	})
}

// Run starts the reaper loop and runs until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting reaper runner")
	return r.reaper.Run(ctx)
}
