package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/voicebot/consultd/internal/core"
	"github.com/voicebot/consultd/internal/domain/model"
	apperrors "github.com/voicebot/consultd/internal/errors"
	"github.com/voicebot/consultd/internal/observability/metrics"
	"github.com/voicebot/consultd/internal/observability/statsd"
)

const (
	// maxBatchSize bounds the contacts accepted in one submission.
	maxBatchSize = 1000
	// contactLookupConcurrency bounds parallel contact lookups during submit.
	contactLookupConcurrency = 8
	// defaultQueueStatusLimit bounds the jobs listed by QueueStatus when no limit is given.
	defaultQueueStatusLimit = 500
)

// QuestionSetWarmer loads a question set from the catalog into the cache.
type QuestionSetWarmer interface {
	Warm(ctx context.Context, id string) (*model.QuestionSetSnapshot, error)
}

// BatchServiceOptions groups dependencies for BatchService.
type BatchServiceOptions struct {
	Queue        core.WaitingQueue     // Required
	Contacts     core.ContactDirectory // Required
	QuestionSets QuestionSetWarmer     // Required
	Publisher    core.StatusPublisher  // Optional: announces WAITING jobs
	Logger       *slog.Logger
	Metrics      statsd.Sink
	Now          func() time.Time
	// NewID generates job ids; defaults to random UUIDs.
	NewID func() string
}

// BatchRequest is one batch submission.
type BatchRequest struct {
	ContactIDs    []string
	QuestionSetID string
	AccountID     string
}

// BatchService turns batch submissions into queued jobs.
type BatchService struct {
	queue        core.WaitingQueue
	contacts     core.ContactDirectory
	questionSets QuestionSetWarmer
	publisher    core.StatusPublisher
	logger       *slog.Logger
	metrics      statsd.Sink
	now          func() time.Time
	newID        func() string
}

// NewBatchService constructs a BatchService.
func NewBatchService(opts BatchServiceOptions) (*BatchService, error) {
	switch {
	case opts.Queue == nil:
		return nil, errors.New("WaitingQueue is required")
	case opts.Contacts == nil:
		return nil, errors.New("ContactDirectory is required")
	case opts.QuestionSets == nil:
		return nil, errors.New("QuestionSetWarmer is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	newID := opts.NewID
	if newID == nil {
		newID = func() string { return uuid.NewString() }
	}
	return &BatchService{
		queue:        opts.Queue,
		contacts:     opts.Contacts,
		questionSets: opts.QuestionSets,
		publisher:    opts.Publisher,
		logger:       logger.With("component", "batch_service"),
		metrics:      opts.Metrics,
		now:          now,
		newID:        newID,
	}, nil
}

// Submit validates a batch, caches its question set, and enqueues one WAITING
// job per contact in submission order. It returns the job ids in the same order.
func (s *BatchService) Submit(ctx context.Context, req BatchRequest) ([]string, error) {
	contactIDs, err := normalizeBatch(req)
	if err != nil {
		return nil, err
	}

	snap, err := s.questionSets.Warm(ctx, req.QuestionSetID)
	if err != nil {
		return nil, fmt.Errorf("load question set %s: %w", req.QuestionSetID, err)
	}

	contacts, err := s.lookupContacts(ctx, contactIDs)
	if err != nil {
		return nil, err
	}

	now := s.now()
	jobs := make([]*model.Job, len(contactIDs))
	ids := make([]string, len(contactIDs))
	for i, contactID := range contactIDs {
		jobs[i] = model.NewJob(s.newID(), contactID, req.QuestionSetID, req.AccountID, now)
		ids[i] = jobs[i].ID
	}

	if err := s.queue.Enqueue(ctx, jobs...); err != nil {
		return nil, fmt.Errorf("enqueue batch: %w", err)
	}
	metrics.EmitEnqueued(s.metrics, len(jobs))

	if s.publisher != nil {
		for i, j := range jobs {
			s.publisher.Publish(model.StatusEvent{
				JobID:            j.ID,
				ContactID:        j.ContactID,
				ContactName:      contacts[i].Name,
				QuestionSetTitle: snap.QuestionSet.Title,
				State:            j.State,
			})
		}
	}

	s.logger.InfoContext(ctx, "batch enqueued",
		"count", len(jobs),
		"question_set_id", req.QuestionSetID,
		"account_id", req.AccountID,
	)
	return ids, nil
}

// lookupContacts resolves every contact concurrently, preserving input order.
func (s *BatchService) lookupContacts(ctx context.Context, ids []string) ([]*model.Contact, error) {
	out := make([]*model.Contact, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(contactLookupConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			c, err := s.contacts.FindByID(gctx, id)
			if err != nil {
				return fmt.Errorf("load contact %s: %w", id, err)
			}
			out[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func normalizeBatch(req BatchRequest) ([]string, error) {
	if strings.TrimSpace(req.QuestionSetID) == "" {
		return nil, apperrors.ValidationField("questionsId", "question set id is required")
	}
	if len(req.ContactIDs) == 0 {
		return nil, apperrors.ValidationField("vulnerableIds", "at least one contact id is required")
	}
	if len(req.ContactIDs) > maxBatchSize {
		return nil, apperrors.ValidationField("vulnerableIds", fmt.Sprintf("at most %d contacts per batch", maxBatchSize))
	}

	seen := make(map[string]struct{}, len(req.ContactIDs))
	ids := make([]string, 0, len(req.ContactIDs))
	for _, raw := range req.ContactIDs {
		id := strings.TrimSpace(raw)
		if id == "" {
			return nil, apperrors.ValidationField("vulnerableIds", "contact ids must not be blank")
		}
		if _, dup := seen[id]; dup {
			return nil, apperrors.ValidationField("vulnerableIds", fmt.Sprintf("contact %s listed more than once", id))
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

// QueueStatus lists up to limit waiting jobs in dispatch order alongside the total count.
func (s *BatchService) QueueStatus(ctx context.Context, limit int) (model.QueueStatus, error) {
	if limit <= 0 {
		limit = defaultQueueStatusLimit
	}
	count, err := s.queue.Len(ctx)
	if err != nil {
		return model.QueueStatus{}, fmt.Errorf("queue length: %w", err)
	}
	jobs, err := s.queue.Peek(ctx, limit)
	if err != nil {
		return model.QueueStatus{}, fmt.Errorf("peek queue: %w", err)
	}
	if jobs == nil {
		jobs = []*model.Job{}
	}
	metrics.EmitQueueDepth(s.metrics, count)
	return model.QueueStatus{Count: int(count), Jobs: jobs}, nil
}
