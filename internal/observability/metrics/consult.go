// Package metrics defines the consultation pipeline's metric names and tags.
package metrics

import (
	"time"

	obserrors "github.com/voicebot/consultd/internal/observability/errors"
	"github.com/voicebot/consultd/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// Dispatch outcomes.
const (
	OutcomeAccepted  = "accepted"
	OutcomeFailed    = "failed"
	OutcomeAbandoned = "abandoned"
	OutcomeRequeued  = "requeued"
)

// Metric names.
const (
	NameEnqueued         = "consult.enqueued"
	NameDispatch         = "consult.dispatch"
	NameDispatchDuration = "consult.dispatch.duration"
	NameResult           = "consult.result"
	NameReaped           = "consult.reaped"
	NameQueueDepth       = "consult.queue.depth"
)

// EmitEnqueued counts jobs added by a batch submission.
func EmitEnqueued(sink statsd.Sink, n int) {
	if sink == nil || n <= 0 {
		return
	}
	sink.Count(NameEnqueued, int64(n), nil)
}

// DispatchMetric captures one dispatch attempt.
type DispatchMetric struct {
	Outcome  string
	Duration time.Duration
	Err      error
}

// EmitDispatch counts a dispatch outcome and records the orchestrator call duration.
func EmitDispatch(sink statsd.Sink, in DispatchMetric) {
	if sink == nil {
		return
	}
	tags := map[string]string{"outcome": in.Outcome}
	if in.Err != nil && in.Outcome != OutcomeAccepted {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}
	sink.Count(NameDispatch, 1, tags)
	if in.Duration > 0 {
		sink.Timing(NameDispatchDuration, in.Duration, CloneTags(tags))
	}
}

// EmitResult counts a reconciled callback by its terminal state.
func EmitResult(sink statsd.Sink, state string, persisted bool) {
	if sink == nil {
		return
	}
	result := ResultSuccess
	if !persisted {
		result = ResultError
	}
	sink.Count(NameResult, 1, map[string]string{"state": state, "result": result})
}

// EmitReaped counts entries removed by a reaper step.
func EmitReaped(sink statsd.Sink, kind string, n int64) {
	if sink == nil {
		return
	}
	result := ResultSuccess
	if n == 0 {
		result = ResultNoop
	}
	sink.Count(NameReaped, n, map[string]string{"kind": kind, "result": result})
}

// EmitQueueDepth records the waiting queue length.
func EmitQueueDepth(sink statsd.Sink, depth int64) {
	if sink == nil {
		return
	}
	sink.Gauge(NameQueueDepth, float64(depth), nil)
}

// CloneTags creates a shallow copy of a tag map, filtering out empty keys.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		if k != "" {
			out[k] = v
		}
	}
	return out
}
