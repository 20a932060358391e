package failurenotifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicebot/consultd/internal/observability/notify"
)

type captureSink struct {
	mu       sync.Mutex
	received []notify.ConsultFailurePayload
}

func (c *captureSink) SendConsultFailure(_ context.Context, payload notify.ConsultFailurePayload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.received = append(c.received, payload)
	return nil
}

func TestServiceNotifyConsultFailure(t *testing.T) {
	fixed := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	capture := &captureSink{}
	svc := NewService(Options{
		Sinks: []SinkRegistration{{Name: "capture", Sink: capture}},
		Now:   func() time.Time { return fixed },
	})

	svc.NotifyConsultFailure(context.Background(), notify.ConsultFailurePayload{
		JobID:  "job-1",
		Reason: notify.ReasonAbandoned,
	})

	require.Len(t, capture.received, 1)
	assert.Equal(t, notify.SeverityCritical, capture.received[0].Severity)
	assert.Equal(t, fixed, capture.received[0].OccurredAt)
}

func TestServiceStaleDispatchDefaultsToWarning(t *testing.T) {
	capture := &captureSink{}
	svc := NewService(Options{Sinks: []SinkRegistration{{Sink: capture}}})

	svc.NotifyConsultFailure(context.Background(), notify.ConsultFailurePayload{
		ContactID:    "c-1",
		SessionIndex: 2,
		Reason:       notify.ReasonStaleDispatch,
	})

	require.Len(t, capture.received, 1)
	assert.Equal(t, notify.SeverityWarning, capture.received[0].Severity)
}

func TestServiceDisabled(t *testing.T) {
	svc := NewService(Options{Sinks: []SinkRegistration{{Name: "nil"}}})
	assert.False(t, svc.Enabled())

	var nilSvc *Service
	assert.False(t, nilSvc.Enabled())
	assert.NotPanics(t, func() {
		nilSvc.NotifyConsultFailure(context.Background(), notify.ConsultFailurePayload{})
	})
}

func TestServiceFailingSinkDoesNotBlockOthers(t *testing.T) {
	capture := &captureSink{}
	svc := NewService(Options{
		Sinks: []SinkRegistration{
			{
				Name: "fail",
				Sink: notify.SinkFunc(func(context.Context, notify.ConsultFailurePayload) error {
					return errors.New("boom")
				}),
			},
			{Name: "capture", Sink: capture},
		},
	})

	svc.NotifyConsultFailure(context.Background(), notify.ConsultFailurePayload{JobID: "job-1"})
	assert.Len(t, capture.received, 1)
}
