package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicebot/consultd/config"
	"github.com/voicebot/consultd/internal/domain/model"
	"github.com/voicebot/consultd/internal/observability/notify"
)

// countingRetention is a HistoryRetention that hands out count once, then 0.
type countingRetention struct {
	calls   int
	count   int64
	err     error
	cutoffs []time.Time
}

func (r *countingRetention) DeleteOlderThan(_ context.Context, cutoff time.Time, _ int) (int64, error) {
	r.calls++
	r.cutoffs = append(r.cutoffs, cutoff)
	if r.err != nil {
		return 0, r.err
	}
	if r.calls == 1 {
		return r.count, nil
	}
	return 0, nil
}

func reaperConfig() config.ReaperConfig {
	return config.ReaperConfig{
		Interval:       5 * time.Minute,
		InFlightMaxAge: 10 * time.Minute,
		HistoryMaxAge:  90 * 24 * time.Hour,
		BatchSize:      1000,
	}
}

func (h *harness) reaper(t *testing.T, history *countingRetention, cfg config.ReaperConfig) *ReaperService {
	t.Helper()
	svc, err := NewReaperService(ReaperServiceOptions{
		InFlight:     h.inFlight,
		Correlations: h.correlations,
		History:      history,
		Publisher:    h.publisher,
		Notifier:     h.notifier,
		Config:       cfg,
		Logger:       discardLogger(),
		Metrics:      h.metrics,
		Now:          h.clock,
	})
	require.NoError(t, err)
	return svc
}

func TestNewReaperService(t *testing.T) {
	t.Run("creates service with valid options", func(t *testing.T) {
		h := newHarness(t)
		svc := h.reaper(t, &countingRetention{}, reaperConfig())
		assert.NotNil(t, svc)
	})

	t.Run("returns error when a store is nil", func(t *testing.T) {
		svc, err := NewReaperService(ReaperServiceOptions{Config: reaperConfig()})
		require.Error(t, err)
		assert.Nil(t, svc)
		assert.Contains(t, err.Error(), "InFlightTracker is required")
	})
}

func TestReaperService_RunOnce(t *testing.T) {
	t.Run("fails stale dispatches and prunes history", func(t *testing.T) {
		ctx := context.Background()
		h := newHarness(t)
		history := &countingRetention{count: 12}
		svc := h.reaper(t, history, reaperConfig())

		rememberDispatch(t, h, "C1", 1, model.Correlation{
			JobID:            "J1",
			QuestionSetID:    "Q1",
			ContactName:      "Kim Minji",
			QuestionSetTitle: "Wellbeing check",
		})
		// Tracked an hour ago; stale against the 10m max age.
		require.NoError(t, h.inFlight.Track(ctx, model.InFlightDispatch{ContactID: "C1", SessionIndex: 1}, h.now.Add(-time.Hour)))
		// Fresh dispatch is left alone.
		require.NoError(t, h.inFlight.Track(ctx, model.InFlightDispatch{ContactID: "C2", SessionIndex: 1}, h.now.Add(-time.Minute)))

		require.NoError(t, svc.RunOnce(ctx))

		events := h.publisher.Events()
		require.Len(t, events, 1)
		assert.Equal(t, model.JobStateFailed, events[0].State)
		assert.Equal(t, "J1", events[0].JobID)
		assert.Equal(t, "Kim Minji", events[0].ContactName)
		assert.Equal(t, "no result received within 10m0s", events[0].ErrorMessage)

		assert.Equal(t, 1, h.inFlight.Len())

		payloads := h.notifier.Payloads()
		require.Len(t, payloads, 1)
		assert.Equal(t, notify.ReasonStaleDispatch, payloads[0].Reason)
		assert.Equal(t, "J1", payloads[0].JobID)
		assert.Equal(t, "Q1", payloads[0].QuestionSetID)

		// A late callback can still be attributed.
		corr, err := h.correlations.Resolve(ctx, "C1", 1)
		require.NoError(t, err)
		assert.NotNil(t, corr)

		assert.Equal(t, 2, history.calls)
		assert.Equal(t, h.now.Add(-90*24*time.Hour), history.cutoffs[0])

		assert.Equal(t, float64(1), h.metrics.Sum("reaper.cleanup", map[string]string{"result": "success"}))
		assert.Equal(t, float64(1), h.metrics.Sum("consult.reaped", map[string]string{"kind": "stale_dispatch"}))
		assert.Equal(t, float64(12), h.metrics.Sum("consult.reaped", map[string]string{"kind": "history"}))
	})

	t.Run("stale dispatch without correlation", func(t *testing.T) {
		ctx := context.Background()
		h := newHarness(t)
		svc := h.reaper(t, &countingRetention{}, reaperConfig())
		require.NoError(t, h.inFlight.Track(ctx, model.InFlightDispatch{ContactID: "C2", SessionIndex: 4}, h.now.Add(-time.Hour)))

		require.NoError(t, svc.RunOnce(ctx))

		events := h.publisher.Events()
		require.Len(t, events, 1)
		assert.Empty(t, events[0].JobID)
		assert.Equal(t, "C2", events[0].ContactID)
		assert.Equal(t, 4, events[0].SessionIndex)
	})

	t.Run("nothing to do records noop", func(t *testing.T) {
		h := newHarness(t)
		svc := h.reaper(t, &countingRetention{}, reaperConfig())
		require.NoError(t, svc.RunOnce(context.Background()))
		assert.Empty(t, h.publisher.Events())
		assert.Equal(t, float64(1), h.metrics.Sum("reaper.cleanup", map[string]string{"result": "noop"}))
	})

	t.Run("continues on partial errors", func(t *testing.T) {
		ctx := context.Background()
		h := newHarness(t)
		svc := h.reaper(t, &countingRetention{err: errors.New("delete error")}, reaperConfig())
		require.NoError(t, h.inFlight.Track(ctx, model.InFlightDispatch{ContactID: "C1", SessionIndex: 1}, h.now.Add(-time.Hour)))

		err := svc.RunOnce(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "delete old consultation history")
		assert.Len(t, h.publisher.Events(), 1, "stale dispatches are failed despite the history error")
		assert.Equal(t, float64(1), h.metrics.Sum("reaper.cleanup", map[string]string{"result": "error"}))
	})

	t.Run("batches until a short page", func(t *testing.T) {
		ctx := context.Background()
		h := newHarness(t)
		cfg := reaperConfig()
		cfg.BatchSize = 2
		svc := h.reaper(t, &countingRetention{}, cfg)
		for i := 1; i <= 5; i++ {
			require.NoError(t, h.inFlight.Track(ctx,
				model.InFlightDispatch{ContactID: "C1", SessionIndex: i},
				h.now.Add(-time.Hour).Add(time.Duration(i)*time.Second)))
		}

		require.NoError(t, svc.RunOnce(ctx))
		assert.Equal(t, 0, h.inFlight.Len())
		assert.Len(t, h.publisher.Events(), 5)
	})
}

func TestReaperService_Run(t *testing.T) {
	t.Run("stops on context cancellation", func(t *testing.T) {
		h := newHarness(t)
		history := &countingRetention{}
		cfg := reaperConfig()
		cfg.Interval = 100 * time.Millisecond
		svc := h.reaper(t, history, cfg)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- svc.Run(ctx)
		}()

		time.Sleep(150 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("Run did not stop after context cancellation")
		}
		assert.GreaterOrEqual(t, history.calls, 1)
	})

	t.Run("continues running despite cleanup errors", func(t *testing.T) {
		h := newHarness(t)
		history := &countingRetention{err: errors.New("test error")}
		cfg := reaperConfig()
		cfg.Interval = 50 * time.Millisecond
		svc := h.reaper(t, history, cfg)

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		err := svc.Run(ctx)
		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.GreaterOrEqual(t, history.calls, 2)
	})
}
