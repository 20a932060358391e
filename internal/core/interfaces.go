package core

import (
	"context"
	"time"

	"github.com/voicebot/consultd/internal/domain/model"
)

// This file contains the ports between the service layer and its adapters.
// Services depend on these interfaces; internal/data and internal/adapters implement them.

// WaitingQueue is the durable FIFO of pending consultation jobs.
type WaitingQueue interface {
	// Enqueue appends jobs to the tail in the given order as one operation.
	Enqueue(ctx context.Context, jobs ...*model.Job) error
	// DequeueNext removes and returns the head. It returns (nil, nil) when the queue is empty.
	DequeueNext(ctx context.Context) (*model.Job, error)
	// Requeue puts a dequeued job back at the head so it is the next one dequeued.
	Requeue(ctx context.Context, job *model.Job) error
	// Peek returns up to limit jobs from the head without removing them.
	Peek(ctx context.Context, limit int) ([]*model.Job, error)
	// Len returns the number of waiting jobs.
	Len(ctx context.Context) (int64, error)
}

// SessionIndexAllocator issues per-contact consultation sequence numbers.
type SessionIndexAllocator interface {
	// NextIndex atomically increments and returns the contact's counter. The first call returns 1.
	NextIndex(ctx context.Context, contactID string) (int, error)
}

// CorrelationStore maps (contact, session index) to the dispatch context needed by the result callback.
type CorrelationStore interface {
	Remember(ctx context.Context, contactID string, sessionIndex int, c model.Correlation, ttl time.Duration) error
	// Resolve returns (nil, nil) when the entry is absent or expired.
	Resolve(ctx context.Context, contactID string, sessionIndex int) (*model.Correlation, error)
	Forget(ctx context.Context, contactID string, sessionIndex int) error
}

// InFlightTracker records dispatches that have not yet received a result callback.
type InFlightTracker interface {
	Track(ctx context.Context, d model.InFlightDispatch, startedAt time.Time) error
	// Untrack removes d and reports whether it was present.
	Untrack(ctx context.Context, d model.InFlightDispatch) (bool, error)
	// Stale returns up to limit dispatches started before cutoff, oldest first.
	Stale(ctx context.Context, cutoff time.Time, limit int) ([]model.InFlightDispatch, error)
}

// ContactDirectory is the contact record store.
type ContactDirectory interface {
	// FindByID returns a not_found AppError for unknown contacts.
	FindByID(ctx context.Context, id string) (*model.Contact, error)
	Save(ctx context.Context, c *model.Contact) error
}

// QuestionSetCatalog is the authoritative question set store.
type QuestionSetCatalog interface {
	// FindByID returns a not_found AppError for unknown question sets.
	FindByID(ctx context.Context, id string) (*model.QuestionSet, error)
}

// HistoryStore persists consultation outcomes.
type HistoryStore interface {
	Save(ctx context.Context, rec *model.ConsultationRecord) error
}

// HistoryReader lists persisted consultation outcomes, newest session first.
type HistoryReader interface {
	ListByContact(ctx context.Context, contactID string, limit int) ([]model.ConsultationRecord, error)
}

// HistoryRetention prunes consultation history.
type HistoryRetention interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
}

// OrchestratorClient sends a consultation to the external conversational orchestrator.
// A nil error means the orchestrator accepted the request; it does not mean the consultation finished.
type OrchestratorClient interface {
	Dispatch(ctx context.Context, req model.DispatchRequest) error
}

// StatusPublisher fans status events out to live subscribers.
type StatusPublisher interface {
	Publish(ev model.StatusEvent)
}
