package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/voicebot/consultd/internal/core"
	"github.com/voicebot/consultd/internal/domain/model"
	"github.com/voicebot/consultd/internal/observability/metrics"
	"github.com/voicebot/consultd/internal/observability/statsd"
)

// ReconcilerOptions groups dependencies for Reconciler.
type ReconcilerOptions struct {
	Correlations core.CorrelationStore // Required
	History      core.HistoryStore     // Required
	Contacts     core.ContactDirectory // Required
	Publisher    core.StatusPublisher  // Required
	InFlight     core.InFlightTracker  // Optional
	Logger       *slog.Logger
	Metrics      statsd.Sink
	Tracer       trace.Tracer
	Now          func() time.Time
}

// Reconciler applies orchestrator result callbacks.
type Reconciler struct {
	correlations core.CorrelationStore
	history      core.HistoryStore
	contacts     core.ContactDirectory
	publisher    core.StatusPublisher
	inFlight     core.InFlightTracker
	logger       *slog.Logger
	metrics      statsd.Sink
	tracer       trace.Tracer
	now          func() time.Time
}

// NewReconciler constructs a Reconciler.
func NewReconciler(opts ReconcilerOptions) (*Reconciler, error) {
	switch {
	case opts.Correlations == nil:
		return nil, errors.New("CorrelationStore is required")
	case opts.History == nil:
		return nil, errors.New("HistoryStore is required")
	case opts.Contacts == nil:
		return nil, errors.New("ContactDirectory is required")
	case opts.Publisher == nil:
		return nil, errors.New("StatusPublisher is required")
	}
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
	return &Reconciler{
		correlations: opts.Correlations,
		history:      opts.History,
		contacts:     opts.Contacts,
		publisher:    opts.Publisher,
		inFlight:     opts.InFlight,
		logger:       logger.With("component", "reconciler"),
		metrics:      opts.Metrics,
		tracer:       tracer,
		now:          now,
	}, nil
}

// HandleResult records a result callback and publishes the job's terminal status.
//
// It never fails: store errors are logged and the terminal event is published
// regardless. A callback for a job the dispatcher or reaper already failed is
// persisted but not published, so a job never shows two terminal states. The
// returned event describes the callback either way.
func (r *Reconciler) HandleResult(ctx context.Context, p *model.ResultPayload) model.StatusEvent {
	if p == nil {
		p = &model.ResultPayload{}
	}
	now := r.now()
	sIndex := 0
	if p.SessionIndex != nil {
		sIndex = *p.SessionIndex
	}

	ctx, span := r.tracer.Start(ctx, "consult.result", trace.WithAttributes(
		attribute.String("consult.contact_id", p.ContactID),
		attribute.Int("consult.session_index", sIndex),
	))
	defer span.End()

	log := r.logger.With("contact_id", p.ContactID, "s_index", sIndex)

	corr, err := r.correlations.Resolve(ctx, p.ContactID, sIndex)
	if err != nil {
		log.WarnContext(ctx, "correlation lookup failed", "error", err)
		corr = nil
	}

	rec := p.ToRecord(resolveAccount(corr, p), now)
	persisted := true
	if err := r.history.Save(ctx, &rec); err != nil {
		persisted = false
		log.ErrorContext(ctx, "history persist failed", "error", err)
	}

	var contact *model.Contact
	if p.HasClassification() || corr == nil {
		contact = r.loadContact(ctx, log, p.ContactID)
	}
	if contact != nil && p.MergeInto(contact) {
		if err := r.contacts.Save(ctx, contact); err != nil {
			log.ErrorContext(ctx, "contact vulnerability merge failed", "error", err)
		}
	}

	owned := r.release(ctx, log, p.ContactID, sIndex, corr)

	job := rebuildJob(corr, p, rec.AccountID)
	failCode := rec.FailCode
	if failCode != 0 {
		_ = job.Fail(now)
	} else {
		_ = job.Complete(now)
	}

	ev := model.StatusEvent{
		JobID:        job.ID,
		ContactID:    p.ContactID,
		State:        job.State,
		SessionIndex: sIndex,
		ErrorMessage: model.FailReason(failCode),
	}
	if corr != nil {
		ev.ContactName = corr.ContactName
		ev.QuestionSetTitle = corr.QuestionSetTitle
	}
	if ev.ContactName == "" && contact != nil {
		ev.ContactName = contact.Name
	}
	span.SetAttributes(attribute.Bool("consult.late", !owned))
	metrics.EmitResult(r.metrics, string(ev.State), persisted)
	if !owned {
		log.WarnContext(ctx, "late result for finalized job",
			"job_id", ev.JobID,
			"state", ev.State,
			"persisted", persisted,
		)
		return ev
	}
	r.publisher.Publish(ev)

	span.SetAttributes(attribute.String("consult.state", string(ev.State)))
	log.InfoContext(ctx, "result reconciled",
		"job_id", ev.JobID,
		"state", ev.State,
		"account_id", rec.AccountID,
		"result", rec.Result,
		"fail_code", failCode,
		"need_human", rec.NeedHuman,
		"persisted", persisted,
	)
	return ev
}

func (r *Reconciler) loadContact(ctx context.Context, log *slog.Logger, contactID string) *model.Contact {
	if contactID == "" {
		return nil
	}
	c, err := r.contacts.FindByID(ctx, contactID)
	if err != nil {
		log.WarnContext(ctx, "contact lookup failed", "error", err)
		return nil
	}
	return c
}

// release clears the in-flight marker and consumes the correlation entry. It
// reports false when the dispatch was tracked but its in-flight entry was already
// removed, which means another finalizer published the terminal event.
func (r *Reconciler) release(
	ctx context.Context,
	log *slog.Logger,
	contactID string,
	sIndex int,
	corr *model.Correlation,
) bool {
	owned := true
	if r.inFlight != nil {
		removed, err := r.inFlight.Untrack(ctx, model.InFlightDispatch{ContactID: contactID, SessionIndex: sIndex})
		switch {
		case err != nil:
			log.WarnContext(ctx, "in-flight untrack failed", "error", err)
		case !removed && corr != nil && corr.Tracked:
			owned = false
		}
	}
	if err := r.correlations.Forget(ctx, contactID, sIndex); err != nil {
		log.WarnContext(ctx, "correlation forget failed", "error", err)
	}
	return owned
}

// resolveAccount prefers the dispatching operator, then the callback's own account.
func resolveAccount(corr *model.Correlation, p *model.ResultPayload) string {
	if corr != nil && corr.AccountID != "" {
		return corr.AccountID
	}
	if p.AccountID != nil {
		return *p.AccountID
	}
	return ""
}

// rebuildJob reconstructs the IN_PROGRESS job a callback refers to. Without a
// correlation the job id is unknown and left empty.
func rebuildJob(corr *model.Correlation, p *model.ResultPayload, accountID string) *model.Job {
	job := &model.Job{
		ContactID:     p.ContactID,
		QuestionSetID: p.QuestionSetID,
		AccountID:     accountID,
		State:         model.JobStateInProgress,
	}
	if corr != nil {
		job.ID = corr.JobID
		if corr.QuestionSetID != "" {
			job.QuestionSetID = corr.QuestionSetID
		}
		if corr.StartedAt > 0 {
			started := time.UnixMilli(corr.StartedAt).UTC()
			job.StartedAt = &started
		}
	}
	return job
}
