package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/voicebot/consultd/config"
	"github.com/voicebot/consultd/internal/core"
	"github.com/voicebot/consultd/internal/domain/model"
	obserrors "github.com/voicebot/consultd/internal/observability/errors"
	"github.com/voicebot/consultd/internal/observability/metrics"
	"github.com/voicebot/consultd/internal/observability/notify"
	"github.com/voicebot/consultd/internal/observability/statsd"
)

// ReaperServiceOptions groups dependencies for ReaperService.
type ReaperServiceOptions struct {
	InFlight     core.InFlightTracker  // Required: dispatches awaiting a callback
	Correlations core.CorrelationStore // Required: display context for failed dispatches
	History      core.HistoryRetention // Required: consultation history pruning
	Publisher    core.StatusPublisher  // Required: FAILED broadcasts for stale dispatches
	Notifier     FailureNotifier       // Optional
	Config       config.ReaperConfig   // Required: reaper configuration
	Logger       *slog.Logger          // Optional: structured logger
	Metrics      statsd.Sink           // Optional: metrics sink (StatsD-compatible)
	Now          func() time.Time      // Optional: clock override for tests
}

// ReaperService provides periodic cleanup.
//
// This service manages:
// - Failing dispatches whose result callback never arrived.
// - Deleting consultation history past its retention window.
type ReaperService struct {
	inFlight     core.InFlightTracker
	correlations core.CorrelationStore
	history      core.HistoryRetention
	publisher    core.StatusPublisher
	notifier     FailureNotifier
	config       config.ReaperConfig
	logger       *slog.Logger
	metrics      statsd.Sink
	now          func() time.Time
}

// NewReaperService constructs a new ReaperService.
func NewReaperService(opts ReaperServiceOptions) (*ReaperService, error) {
	switch {
	case opts.InFlight == nil:
		return nil, errors.New("InFlightTracker is required")
	case opts.Correlations == nil:
		return nil, errors.New("CorrelationStore is required")
	case opts.History == nil:
		return nil, errors.New("HistoryRetention is required")
	case opts.Publisher == nil:
		return nil, errors.New("StatusPublisher is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "reaper_service")
		logger.Debug("ReaperService initialized",
			"interval", opts.Config.Interval,
			"in_flight_max_age", opts.Config.InFlightMaxAge,
			"history_max_age", opts.Config.HistoryMaxAge,
		)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &ReaperService{
		inFlight:     opts.InFlight,
		correlations: opts.Correlations,
		history:      opts.History,
		publisher:    opts.Publisher,
		notifier:     opts.Notifier,
		config:       opts.Config,
		logger:       logger,
		metrics:      opts.Metrics,
		now:          now,
	}, nil
}

// Run starts the reaper loop and runs until the context is cancelled.
// It performs cleanup operations at the configured interval.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *ReaperService) Run(ctx context.Context) error {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "starting reaper service", "interval", s.config.Interval)
	}

	// Add jitter to prevent thundering herd if multiple instances start together
	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if err := s.RunOnce(ctx); err != nil {
		s.logCleanupError(err, "initial cleanup")
	}

	return s.runLoop(ctx, ticker)
}

// waitWithJitter adds a random delay up to 10% of the interval to prevent thundering herd.
func (s *ReaperService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		}
		return
	}

	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos)) // #nosec G115 - bounded by maxJitter which is int64

	select {
	case <-time.After(jitter):
	case <-ctx.Done():
	}
}

func (s *ReaperService) runLoop(ctx context.Context, ticker *time.Ticker) error {
	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.InfoContext(ctx, "reaper service stopping", "reason", ctx.Err())
			}
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logCleanupError(err, "cleanup")
			}
		}
	}
}

// RunOnce performs every cleanup step once.
func (s *ReaperService) RunOnce(ctx context.Context) error {
	start := time.Now()
	var (
		errs               []error
		allContextCanceled = true
		metricsData        = cleanupMetrics{}
	)

	steps := []cleanupStep{
		{
			fn:        s.failStaleDispatches,
			label:     "fail stale dispatches",
			count:     &metricsData.StaleCount,
			metricErr: &metricsData.StaleErr,
		},
		{
			fn:        s.deleteOldHistory,
			label:     "delete old consultation history",
			count:     &metricsData.HistoryCount,
			metricErr: &metricsData.HistoryErr,
		},
	}

	for _, step := range steps {
		outcome := s.executeCleanupStep(ctx, step.fn, step.label)
		*step.count = outcome.count
		*step.metricErr = outcome.metricErr
		if outcome.aggregateErr != nil {
			errs = append(errs, outcome.aggregateErr)
			allContextCanceled = allContextCanceled && outcome.canceled
		}
	}

	metricsData.Elapsed = time.Since(start)
	s.emitCleanupMetrics(metricsData)

	if len(errs) > 0 {
		joined := errors.Join(errs...)
		if allContextCanceled && isContextCancellation(joined) {
			return context.Canceled
		}
		return fmt.Errorf("cleanup failed: %w", joined)
	}

	return nil
}

type cleanupFunc func(context.Context) (int64, error)

type cleanupStep struct {
	fn        cleanupFunc
	label     string
	count     *int64
	metricErr *error
}

type cleanupStepOutcome struct {
	count        int64
	metricErr    error
	aggregateErr error
	canceled     bool
}

func (s *ReaperService) executeCleanupStep(
	ctx context.Context,
	fn cleanupFunc,
	label string,
) cleanupStepOutcome {
	count, err := fn(ctx)
	outcome := cleanupStepOutcome{
		count:     count,
		metricErr: suppressContextCancellation(err),
		canceled:  isContextCancellation(err),
	}
	if err != nil {
		outcome.aggregateErr = fmt.Errorf("%s: %w", label, err)
	}
	return outcome
}

// failStaleDispatches fails dispatches that have waited longer than the configured
// max age for their result callback. Batches repeat until a short batch is returned.
func (s *ReaperService) failStaleDispatches(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.config.InFlightMaxAge)
	var totalCount int64
	for {
		stale, err := s.inFlight.Stale(ctx, cutoff, s.config.BatchSize)
		if err != nil {
			return totalCount, err
		}
		for _, d := range stale {
			removed, err := s.inFlight.Untrack(ctx, d)
			if err != nil {
				return totalCount, err
			}
			if !removed {
				// Reconciled between Stale and Untrack.
				continue
			}
			s.failDispatch(ctx, d)
			totalCount++
		}
		if len(stale) < s.config.BatchSize {
			break
		}
		if ctx.Err() != nil {
			return totalCount, ctx.Err()
		}
	}

	if totalCount > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "failed stale dispatches",
			"count", totalCount,
			"max_age", s.config.InFlightMaxAge,
		)
	}
	metrics.EmitReaped(s.metrics, "stale_dispatch", totalCount)
	return totalCount, nil
}

func (s *ReaperService) failDispatch(ctx context.Context, d model.InFlightDispatch) {
	corr, err := s.correlations.Resolve(ctx, d.ContactID, d.SessionIndex)
	if err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "correlation lookup failed",
			"contact_id", d.ContactID,
			"s_index", d.SessionIndex,
			"error", err,
		)
	}

	msg := fmt.Sprintf("no result received within %s", s.config.InFlightMaxAge)
	ev := model.StatusEvent{
		ContactID:    d.ContactID,
		State:        model.JobStateFailed,
		SessionIndex: d.SessionIndex,
		ErrorMessage: msg,
	}
	payload := notify.ConsultFailurePayload{
		ContactID:    d.ContactID,
		SessionIndex: d.SessionIndex,
		Reason:       notify.ReasonStaleDispatch,
		Error:        msg,
		ErrorClass:   "stale",
		OccurredAt:   s.now().UTC(),
	}
	if corr != nil {
		ev.JobID = corr.JobID
		ev.ContactName = corr.ContactName
		ev.QuestionSetTitle = corr.QuestionSetTitle
		payload.JobID = corr.JobID
		payload.ContactName = corr.ContactName
		payload.QuestionSetID = corr.QuestionSetID
	}
	s.publisher.Publish(ev)

	if s.notifier != nil {
		s.notifier.NotifyConsultFailure(ctx, payload)
	}
}

// deleteOldHistory deletes consultation records older than the retention window.
// Loops until no more rows are affected to handle large datasets in batches.
func (s *ReaperService) deleteOldHistory(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.config.HistoryMaxAge)
	var totalCount int64
	for {
		count, err := s.history.DeleteOlderThan(ctx, cutoff, s.config.BatchSize)
		if err != nil {
			return totalCount, err
		}
		totalCount += count
		if count == 0 {
			break
		}
		if ctx.Err() != nil {
			return totalCount, ctx.Err()
		}
	}

	if totalCount > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "deleted old consultation history",
			"count", totalCount,
			"max_age", s.config.HistoryMaxAge,
		)
	}
	metrics.EmitReaped(s.metrics, "history", totalCount)
	return totalCount, nil
}

type cleanupMetrics struct {
	StaleCount   int64
	StaleErr     error
	HistoryCount int64
	HistoryErr   error
	Elapsed      time.Duration
}

func (s *ReaperService) emitCleanupMetrics(m cleanupMetrics) {
	if s.metrics == nil {
		return
	}

	totalCount := m.StaleCount + m.HistoryCount
	firstErr := firstError(m.StaleErr, m.HistoryErr)

	result := metrics.ResultSuccess
	if firstErr != nil {
		result = metrics.ResultError
	} else if totalCount == 0 {
		result = metrics.ResultNoop
	}

	tags := map[string]string{"result": result}
	if firstErr != nil {
		if class := obserrors.Classify(firstErr); class != "" {
			tags["error_class"] = class
		}
	}

	s.metrics.Count("reaper.cleanup", 1, tags)
	if m.Elapsed > 0 {
		s.metrics.Timing("reaper.cleanup_duration", m.Elapsed, metrics.CloneTags(tags))
	}
	if firstErr == nil {
		s.metrics.Gauge("reaper.last_success_epoch", float64(s.now().Unix()), nil)
	}
}

func (s *ReaperService) logCleanupError(err error, label string) {
	if err == nil || s.logger == nil {
		return
	}
	if isContextCancellation(err) {
		s.logger.Debug(label+" cancelled by context", "error", err)
		return
	}
	s.logger.Error(label+" failed", "error", err)
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func isContextCancellation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func suppressContextCancellation(err error) error {
	if isContextCancellation(err) {
		return nil
	}
	return err
}
