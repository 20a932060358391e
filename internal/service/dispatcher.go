package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/voicebot/consultd/config"
	"github.com/voicebot/consultd/internal/core"
	"github.com/voicebot/consultd/internal/domain/model"
	apperrors "github.com/voicebot/consultd/internal/errors"
	obserrors "github.com/voicebot/consultd/internal/observability/errors"
	"github.com/voicebot/consultd/internal/observability/metrics"
	"github.com/voicebot/consultd/internal/observability/notify"
	"github.com/voicebot/consultd/internal/observability/statsd"
)

const tracerName = "github.com/voicebot/consultd/internal/service"

// QuestionSetResolver returns a cached question set snapshot, reading through to the catalog on a miss.
type QuestionSetResolver interface {
	Resolve(ctx context.Context, id string) (*model.QuestionSetSnapshot, error)
}

// FailureNotifier receives consultation failures that need operator attention.
type FailureNotifier interface {
	NotifyConsultFailure(ctx context.Context, payload notify.ConsultFailurePayload)
}

// DispatcherOptions groups dependencies for Dispatcher.
type DispatcherOptions struct {
	Queue        core.WaitingQueue          // Required
	Contacts     core.ContactDirectory      // Required
	QuestionSets QuestionSetResolver        // Required
	Sessions     core.SessionIndexAllocator // Required
	Correlations core.CorrelationStore      // Required
	Orchestrator core.OrchestratorClient    // Required
	Publisher    core.StatusPublisher       // Required
	InFlight     core.InFlightTracker       // Optional: feeds the reaper
	Notifier     FailureNotifier            // Optional
	Config       config.DispatchConfig
	Logger       *slog.Logger
	Metrics      statsd.Sink
	Tracer       trace.Tracer
	Now          func() time.Time
}

// Dispatcher pops jobs from the waiting queue and hands them to the orchestrator.
//
// StartNext resolves everything synchronously up to IN_PROGRESS and returns;
// the orchestrator call and its failure handling run in the background.
type Dispatcher struct {
	queue        core.WaitingQueue
	contacts     core.ContactDirectory
	questionSets QuestionSetResolver
	sessions     core.SessionIndexAllocator
	correlations core.CorrelationStore
	orchestrator core.OrchestratorClient
	publisher    core.StatusPublisher
	inFlight     core.InFlightTracker
	notifier     FailureNotifier
	cfg          config.DispatchConfig
	logger       *slog.Logger
	metrics      statsd.Sink
	tracer       trace.Tracer
	now          func() time.Time

	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(opts DispatcherOptions) (*Dispatcher, error) {
	switch {
	case opts.Queue == nil:
		return nil, errors.New("WaitingQueue is required")
	case opts.Contacts == nil:
		return nil, errors.New("ContactDirectory is required")
	case opts.QuestionSets == nil:
		return nil, errors.New("QuestionSetResolver is required")
	case opts.Sessions == nil:
		return nil, errors.New("SessionIndexAllocator is required")
	case opts.Correlations == nil:
		return nil, errors.New("CorrelationStore is required")
	case opts.Orchestrator == nil:
		return nil, errors.New("OrchestratorClient is required")
	case opts.Publisher == nil:
		return nil, errors.New("StatusPublisher is required")
	}

	cfg := opts.Config
	cfg.Sanitize()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Dispatcher{
		queue:        opts.Queue,
		contacts:     opts.Contacts,
		questionSets: opts.QuestionSets,
		sessions:     opts.Sessions,
		correlations: opts.Correlations,
		orchestrator: opts.Orchestrator,
		publisher:    opts.Publisher,
		inFlight:     opts.InFlight,
		notifier:     opts.Notifier,
		cfg:          cfg,
		logger:       logger.With("component", "dispatcher"),
		metrics:      opts.Metrics,
		tracer:       tracer,
		now:          now,
		sem:          semaphore.NewWeighted(int64(cfg.MaxInFlight)),
	}, nil
}

// StartNext pops the head of the waiting queue and begins its dispatch.
//
// It returns (nil, nil) when the queue is empty. On success the returned job is
// IN_PROGRESS and the orchestrator call is already running in the background.
//
// A job whose contact or question set does not exist is dropped, broadcast as
// FAILED, and the returned error wraps ErrAbandoned. Any other preparation error
// puts the job back at the head of the queue and wraps ErrDispatchUnavailable.
//
// accountID identifies the operator who pulled the trigger; when empty the
// submitting account recorded on the job is kept.
func (d *Dispatcher) StartNext(ctx context.Context, accountID string) (*model.Job, error) {
	job, err := d.queue.DequeueNext(ctx)
	if err != nil {
		return nil, fmt.Errorf("dequeue next job: %w", err)
	}
	if job == nil {
		return nil, nil
	}
	queued := *job
	if accountID != "" {
		job.AccountID = accountID
	}

	ctx, span := d.tracer.Start(ctx, "dispatch.start", trace.WithAttributes(
		attribute.String("consult.job_id", job.ID),
		attribute.String("consult.contact_id", job.ContactID),
		attribute.String("consult.question_set_id", job.QuestionSetID),
	))
	defer span.End()

	req, tracked, err := d.prepare(ctx, job)
	if err != nil {
		span.RecordError(err)
		if apperrors.IsNotFound(err) {
			span.SetStatus(codes.Error, "abandoned")
			return nil, d.abandon(ctx, job, req, err)
		}
		span.SetStatus(codes.Error, "requeued")
		return nil, d.requeue(ctx, &queued, req, err)
	}
	span.SetAttributes(attribute.Int("consult.session_index", req.SessionIndex))

	d.begin(ctx, job, req, tracked)
	return job, nil
}

// prepare resolves the contact, question set and session index, registers the
// in-flight entry, and records the correlation. It reports whether the in-flight
// entry was written. On error the returned request carries whatever display
// context was resolved before the failure.
func (d *Dispatcher) prepare(ctx context.Context, job *model.Job) (model.DispatchRequest, bool, error) {
	req := model.DispatchRequest{JobID: job.ID}

	contact, err := d.contacts.FindByID(ctx, job.ContactID)
	if err != nil {
		return req, false, fmt.Errorf("resolve contact %s: %w", job.ContactID, err)
	}
	req.Contact = *contact

	snap, err := d.questionSets.Resolve(ctx, job.QuestionSetID)
	if err != nil {
		return req, false, fmt.Errorf("resolve question set %s: %w", job.QuestionSetID, err)
	}
	req.QuestionSet = snap.QuestionSet

	idx, err := d.sessions.NextIndex(ctx, job.ContactID)
	if err != nil {
		return req, false, fmt.Errorf("allocate session index: %w", err)
	}
	req.SessionIndex = idx

	startedAt := d.now()
	corr := model.Correlation{
		AccountID:        job.AccountID,
		JobID:            job.ID,
		QuestionSetID:    job.QuestionSetID,
		ContactName:      contact.Name,
		QuestionSetTitle: snap.QuestionSet.Title,
		StartedAt:        startedAt.UnixMilli(),
	}
	if d.inFlight != nil {
		inflight := model.InFlightDispatch{ContactID: job.ContactID, SessionIndex: idx}
		if err := d.inFlight.Track(ctx, inflight, startedAt); err != nil {
			d.logger.WarnContext(ctx, "in-flight tracking failed", "job_id", job.ID, "error", err)
		} else {
			corr.Tracked = true
		}
	}
	if err := d.correlations.Remember(ctx, job.ContactID, idx, corr, d.cfg.CorrelationTTL); err != nil {
		// The reconciler falls back to the callback's own account when the entry is missing.
		d.logger.WarnContext(ctx, "correlation write failed",
			"job_id", job.ID,
			"contact_id", job.ContactID,
			"s_index", idx,
			"error", err,
		)
	}
	return req, corr.Tracked, nil
}

// begin moves the job to IN_PROGRESS, broadcasts it, and fires the orchestrator call.
func (d *Dispatcher) begin(ctx context.Context, job *model.Job, req model.DispatchRequest, tracked bool) {
	// prepare only succeeds for freshly dequeued WAITING jobs.
	_ = job.Start(d.now())

	d.publisher.Publish(model.StatusEvent{
		JobID:            job.ID,
		ContactID:        job.ContactID,
		ContactName:      req.Contact.Name,
		QuestionSetTitle: req.QuestionSet.Title,
		State:            job.State,
		SessionIndex:     req.SessionIndex,
	})

	d.logger.InfoContext(ctx, "dispatch started",
		"job_id", job.ID,
		"contact_id", job.ContactID,
		"question_set_id", job.QuestionSetID,
		"s_index", req.SessionIndex,
	)

	// The trigger's context ends when it returns; the call keeps its trace but not its deadline.
	callCtx := context.WithoutCancel(ctx)
	snapshot := *job
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.call(callCtx, &snapshot, req, tracked)
	}()
}

func (d *Dispatcher) call(ctx context.Context, job *model.Job, req model.DispatchRequest, tracked bool) {
	if err := d.sem.Acquire(ctx, 1); err != nil {
		d.fail(ctx, job, req, tracked, err, 0)
		return
	}
	defer d.sem.Release(1)

	ctx, span := d.tracer.Start(ctx, "orchestrator.dispatch", trace.WithAttributes(
		attribute.String("consult.job_id", job.ID),
		attribute.String("consult.contact_id", job.ContactID),
		attribute.Int("consult.session_index", req.SessionIndex),
	))
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	start := time.Now()
	err := d.orchestrator.Dispatch(callCtx, req)
	elapsed := time.Since(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dispatch failed")
		d.fail(ctx, job, req, tracked, err, elapsed)
		return
	}

	metrics.EmitDispatch(d.metrics, metrics.DispatchMetric{Outcome: metrics.OutcomeAccepted, Duration: elapsed})
	d.logger.InfoContext(ctx, "dispatch accepted",
		"job_id", job.ID,
		"contact_id", job.ContactID,
		"s_index", req.SessionIndex,
		"duration", elapsed,
	)
}

// fail finalizes a job whose orchestrator call did not succeed. No retry is attempted.
// When the in-flight entry is already gone a callback or the reaper finalized the
// job first, and no second terminal event is published.
func (d *Dispatcher) fail(
	ctx context.Context,
	job *model.Job,
	req model.DispatchRequest,
	tracked bool,
	cause error,
	elapsed time.Duration,
) {
	if errors.Is(cause, context.DeadlineExceeded) {
		cause = apperrors.Wrapf(cause, apperrors.ErrCodeTimeout, "orchestrator did not respond within %s", d.cfg.Timeout)
	}

	metrics.EmitDispatch(d.metrics, metrics.DispatchMetric{
		Outcome:  metrics.OutcomeFailed,
		Duration: elapsed,
		Err:      cause,
	})

	if d.inFlight != nil && tracked {
		removed, err := d.inFlight.Untrack(ctx, model.InFlightDispatch{ContactID: job.ContactID, SessionIndex: req.SessionIndex})
		switch {
		case err != nil:
			d.logger.WarnContext(ctx, "in-flight untrack failed", "job_id", job.ID, "error", err)
		case !removed:
			d.logger.WarnContext(ctx, "dispatch failed after job was already finalized",
				"job_id", job.ID,
				"contact_id", job.ContactID,
				"s_index", req.SessionIndex,
				"error", cause,
			)
			return
		}
	}

	_ = job.Fail(d.now())
	d.publisher.Publish(model.StatusEvent{
		JobID:            job.ID,
		ContactID:        job.ContactID,
		ContactName:      req.Contact.Name,
		QuestionSetTitle: req.QuestionSet.Title,
		State:            job.State,
		SessionIndex:     req.SessionIndex,
		ErrorMessage:     "dispatch failed: " + cause.Error(),
	})

	d.logger.ErrorContext(ctx, "dispatch failed",
		"job_id", job.ID,
		"contact_id", job.ContactID,
		"s_index", req.SessionIndex,
		"error_class", obserrors.Classify(cause),
		"error", cause,
	)
}

// abandon drops a job whose contact or question set does not exist. This is a
// configuration error: it is logged as fatal, broadcast as FAILED, and paged.
func (d *Dispatcher) abandon(ctx context.Context, job *model.Job, req model.DispatchRequest, cause error) error {
	class := obserrors.Classify(cause)
	d.logger.ErrorContext(ctx, "job abandoned",
		"job_id", job.ID,
		"contact_id", job.ContactID,
		"question_set_id", job.QuestionSetID,
		"fatal", true,
		"error_class", class,
		"error", cause,
	)
	metrics.EmitDispatch(d.metrics, metrics.DispatchMetric{Outcome: metrics.OutcomeAbandoned, Err: cause})

	_ = job.Abandon(d.now())
	d.publisher.Publish(model.StatusEvent{
		JobID:            job.ID,
		ContactID:        job.ContactID,
		ContactName:      req.Contact.Name,
		QuestionSetTitle: req.QuestionSet.Title,
		State:            job.State,
		ErrorMessage:     "abandoned: " + cause.Error(),
	})

	d.notify(ctx, job, notify.ReasonAbandoned, cause, class)
	return fmt.Errorf("%w: job %s: %w", ErrAbandoned, job.ID, cause)
}

// requeue returns a job to the head of the queue after a store outage. If the
// queue rejects it too, the job is finalized as FAILED so it is not lost silently.
func (d *Dispatcher) requeue(ctx context.Context, queued *model.Job, req model.DispatchRequest, cause error) error {
	class := obserrors.Classify(cause)
	// The job keeps its place even when the trigger was cancelled.
	qerr := d.queue.Requeue(context.WithoutCancel(ctx), queued)
	if qerr == nil {
		d.logger.WarnContext(ctx, "job requeued after preparation error",
			"job_id", queued.ID,
			"contact_id", queued.ContactID,
			"error_class", class,
			"error", cause,
		)
		metrics.EmitDispatch(d.metrics, metrics.DispatchMetric{Outcome: metrics.OutcomeRequeued, Err: cause})
		return fmt.Errorf("%w: job %s: %w", ErrDispatchUnavailable, queued.ID, cause)
	}

	cause = errors.Join(cause, fmt.Errorf("requeue: %w", qerr))
	d.logger.ErrorContext(ctx, "job lost to preparation error",
		"job_id", queued.ID,
		"contact_id", queued.ContactID,
		"error_class", class,
		"error", cause,
	)
	metrics.EmitDispatch(d.metrics, metrics.DispatchMetric{Outcome: metrics.OutcomeFailed, Err: cause})

	failed := *queued
	_ = failed.Abandon(d.now())
	d.publisher.Publish(model.StatusEvent{
		JobID:            failed.ID,
		ContactID:        failed.ContactID,
		ContactName:      req.Contact.Name,
		QuestionSetTitle: req.QuestionSet.Title,
		State:            failed.State,
		ErrorMessage:     "dispatch failed: " + cause.Error(),
	})
	d.notify(ctx, &failed, notify.ReasonAbandoned, cause, class)
	return fmt.Errorf("%w: job %s: %w", ErrDispatchUnavailable, queued.ID, cause)
}

func (d *Dispatcher) notify(ctx context.Context, job *model.Job, reason string, cause error, class string) {
	if d.notifier == nil {
		return
	}
	payload := notify.ConsultFailurePayload{
		JobID:         job.ID,
		ContactID:     job.ContactID,
		QuestionSetID: job.QuestionSetID,
		Reason:        reason,
		Error:         cause.Error(),
		ErrorClass:    class,
		OccurredAt:    d.now().UTC(),
	}
	notifyCtx := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.notifier.NotifyConsultFailure(notifyCtx, payload)
	}()
}

// Wait blocks until every background orchestrator call and notification has finished
// or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
