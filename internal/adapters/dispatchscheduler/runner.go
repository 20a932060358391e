// Package dispatchscheduler fires the start trigger on a cron schedule.
package dispatchscheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/voicebot/consultd/config"
	"github.com/voicebot/consultd/internal/core"
	"github.com/voicebot/consultd/internal/domain/model"
	obserrors "github.com/voicebot/consultd/internal/observability/errors"
	"github.com/voicebot/consultd/internal/observability/metrics"
	"github.com/voicebot/consultd/internal/observability/statsd"
	"github.com/voicebot/consultd/internal/service"
)

const (
	lockKey = "lock:dispatch-scheduler"
	// abandonAllowance bounds StartNext calls per started job when the queue head keeps being abandoned.
	abandonAllowance = 4
)

// Starter starts the next waiting job.
type Starter interface {
	StartNext(ctx context.Context, accountID string) (*model.Job, error)
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	Starter Starter              // Required
	Lock    core.CacheRepository // Required: SET NX EX per tick
	Config  config.DispatchSchedulerConfig
	Logger  *slog.Logger
	Metrics statsd.Sink

	// InstanceID is stored as the lock value; defaults to the hostname.
	InstanceID string
}

// Runner starts up to PerTick jobs on every firing of the schedule. Only the
// instance that wins the tick lock dispatches.
type Runner struct {
	starter  Starter
	lock     core.CacheRepository
	schedule cron.Schedule
	cfg      config.DispatchSchedulerConfig
	logger   *slog.Logger
	metrics  statsd.Sink
	instance string
}

// NewRunner creates a new dispatch scheduler runner.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Starter == nil {
		return nil, errors.New("starter is required")
	}
	if opts.Lock == nil {
		return nil, errors.New("lock store is required")
	}
	cfg := opts.Config
	cfg.Sanitize()

	schedule, err := cron.ParseStandard(cfg.Schedule)
	if err != nil {
		return nil, fmt.Errorf("parse dispatch schedule %q: %w", cfg.Schedule, err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	instance := opts.InstanceID
	if instance == "" {
		instance, _ = os.Hostname()
	}

	return &Runner{
		starter:  opts.Starter,
		lock:     opts.Lock,
		schedule: schedule,
		cfg:      cfg,
		logger:   logger.With("component", "dispatch_scheduler"),
		metrics:  opts.Metrics,
		instance: instance,
	}, nil
}

// Run fires Tick on the schedule until ctx is cancelled, then waits for a
// running tick to finish. Returns nil on graceful shutdown.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting dispatch scheduler",
		"schedule", r.cfg.Schedule,
		"per_tick", r.cfg.PerTick,
	)

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(r.schedule, cron.FuncJob(func() {
		started, err := r.Tick(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			r.logger.ErrorContext(ctx, "dispatch tick failed", "started", started, "error", err)
		}
	}))
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()

	r.logger.InfoContext(ctx, "dispatch scheduler stopping", "reason", ctx.Err())
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}

// Tick acquires the tick lock and starts up to PerTick jobs, stopping early on
// an empty queue. Abandoned jobs do not count against PerTick.
func (r *Runner) Tick(ctx context.Context) (int, error) {
	start := time.Now()
	acquired, err := r.lock.SetIfNotExists(ctx, lockKey, []byte(r.instance), r.cfg.LockTTL)
	if err != nil {
		err = fmt.Errorf("acquire tick lock: %w", err)
		r.emitTickMetrics(0, time.Since(start), err)
		return 0, err
	}
	if !acquired {
		r.logger.DebugContext(ctx, "tick lock held elsewhere, skipping")
		return 0, nil
	}

	started := 0
	attempts := 0
	for started < r.cfg.PerTick && attempts < r.cfg.PerTick*abandonAllowance {
		attempts++
		job, err := r.starter.StartNext(ctx, "")
		if errors.Is(err, service.ErrAbandoned) {
			continue
		}
		if err != nil {
			r.emitTickMetrics(started, time.Since(start), err)
			return started, err
		}
		if job == nil {
			break
		}
		started++
	}

	if started > 0 {
		r.logger.InfoContext(ctx, "dispatch tick started jobs", "count", started)
	}
	r.emitTickMetrics(started, time.Since(start), nil)
	return started, nil
}

func (r *Runner) emitTickMetrics(started int, elapsed time.Duration, err error) {
	if r.metrics == nil {
		return
	}

	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	} else if started == 0 {
		result = metrics.ResultNoop
	}

	tags := map[string]string{"result": result}
	if err != nil {
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	}

	r.metrics.Count("dispatch_scheduler.tick", 1, tags)
	if started > 0 {
		r.metrics.Count("dispatch_scheduler.jobs_started", int64(started), tags)
	}
	if elapsed > 0 {
		r.metrics.Timing("dispatch_scheduler.tick_duration", elapsed, metrics.CloneTags(tags))
	}
	if err == nil {
		r.metrics.Gauge("dispatch_scheduler.last_success_epoch", float64(time.Now().Unix()), nil)
	}
}
