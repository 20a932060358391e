// Package notify defines failure notification payloads and sinks.
package notify

import (
	"context"
	"time"
)

// Severity constants recognised by downstream sinks.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
)

// Failure reasons attached to consultation failure notifications.
const (
	// ReasonAbandoned marks a job dropped before dispatch because its contact or question set is missing.
	ReasonAbandoned = "abandoned"
	// ReasonStaleDispatch marks an accepted dispatch that never produced a result callback.
	ReasonStaleDispatch = "stale_dispatch"
)

// ConsultFailurePayload captures the data emitted for consultation failure notifications.
type ConsultFailurePayload struct {
	JobID         string
	ContactID     string
	ContactName   string
	QuestionSetID string
	SessionIndex  int
	Reason        string
	Error         string
	ErrorClass    string
	Severity      string
	OccurredAt    time.Time
	Metadata      map[string]string
}

// Sink describes a destination capable of consuming consultation failure notifications.
type Sink interface {
	SendConsultFailure(ctx context.Context, payload ConsultFailurePayload) error
}

// SinkFunc adapts a function to the Sink interface (useful for tests).
type SinkFunc func(ctx context.Context, payload ConsultFailurePayload) error

// SendConsultFailure implements the Sink interface.
func (f SinkFunc) SendConsultFailure(ctx context.Context, payload ConsultFailurePayload) error {
	if f == nil {
		return nil
	}
	return f(ctx, payload)
}
