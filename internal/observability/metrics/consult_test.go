package metrics

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicebot/consultd/internal/observability/statsd"
)

func TestEmitDispatch_FailureTagsErrorClass(t *testing.T) {
	var rec statsd.Recorder
	EmitDispatch(&rec, DispatchMetric{
		Outcome:  OutcomeFailed,
		Duration: 30 * time.Second,
		Err:      fmt.Errorf("orchestrator: %w", context.DeadlineExceeded),
	})

	counts := rec.Named(NameDispatch)
	require.Len(t, counts, 1)
	assert.Equal(t, "failed", counts[0].Tags["outcome"])
	assert.Equal(t, "timeout", counts[0].Tags["error_class"])

	timings := rec.Named(NameDispatchDuration)
	require.Len(t, timings, 1)
	assert.InDelta(t, 30000, timings[0].Value, 0.001)
}

func TestEmitDispatch_AcceptedHasNoErrorClass(t *testing.T) {
	var rec statsd.Recorder
	EmitDispatch(&rec, DispatchMetric{Outcome: OutcomeAccepted})

	counts := rec.Named(NameDispatch)
	require.Len(t, counts, 1)
	assert.NotContains(t, counts[0].Tags, "error_class")
	assert.Empty(t, rec.Named(NameDispatchDuration))
}

func TestEmitReaped_ZeroIsNoop(t *testing.T) {
	var rec statsd.Recorder
	EmitReaped(&rec, "in_flight", 0)
	EmitReaped(&rec, "history", 3)

	assert.Equal(t, float64(0), rec.Sum(NameReaped, map[string]string{"result": ResultNoop}))
	assert.Equal(t, float64(3), rec.Sum(NameReaped, map[string]string{"kind": "history", "result": ResultSuccess}))
}

func TestEmitters_NilSink(t *testing.T) {
	assert.NotPanics(t, func() {
		EmitEnqueued(nil, 2)
		EmitDispatch(nil, DispatchMetric{Outcome: OutcomeAccepted})
		EmitResult(nil, "COMPLETED", true)
		EmitReaped(nil, "history", 1)
		EmitQueueDepth(nil, 4)
	})
}

func TestCloneTags(t *testing.T) {
	assert.Nil(t, CloneTags(nil))
	src := map[string]string{"a": "1", "": "x"}
	out := CloneTags(src)
	out["a"] = "2"
	assert.Equal(t, "1", src["a"])
	assert.NotContains(t, out, "")
}
