package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/voicebot/consultd/config"
	"github.com/voicebot/consultd/internal/core"
	"github.com/voicebot/consultd/internal/domain/model"
	"github.com/voicebot/consultd/internal/mocks/memory"
	"github.com/voicebot/consultd/internal/observability/notify"
	"github.com/voicebot/consultd/internal/observability/statsd"
	"github.com/voicebot/consultd/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeOrchestrator records dispatch requests and delegates to dispatchFn when set.
type fakeOrchestrator struct {
	mu         sync.Mutex
	requests   []model.DispatchRequest
	dispatchFn func(ctx context.Context, req model.DispatchRequest) error
}

func (f *fakeOrchestrator) Dispatch(ctx context.Context, req model.DispatchRequest) error {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	fn := f.dispatchFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, req)
	}
	return nil
}

func (f *fakeOrchestrator) Requests() []model.DispatchRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.DispatchRequest(nil), f.requests...)
}

type recordingNotifier struct {
	mu       sync.Mutex
	payloads []notify.ConsultFailurePayload
}

func (n *recordingNotifier) NotifyConsultFailure(_ context.Context, p notify.ConsultFailurePayload) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.payloads = append(n.payloads, p)
}

func (n *recordingNotifier) Payloads() []notify.ConsultFailurePayload {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.ConsultFailurePayload(nil), n.payloads...)
}

// harness wires the consultation pipeline over in-memory stores.
type harness struct {
	now          time.Time
	queue        *memory.Queue
	contacts     *memory.Contacts
	catalog      *memory.Catalog
	cache        *core.QuestionSetCache
	counter      *memory.Counter
	correlations *memory.Correlations
	inFlight     *memory.InFlight
	history      *memory.History
	publisher    *memory.Publisher
	metrics      *statsd.Recorder
	notifier     *recordingNotifier
	orchestrator *fakeOrchestrator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		now:   testutil.TestTime(),
		queue: &memory.Queue{},
		contacts: memory.NewContacts(
			*testutil.NewContact("C1").WithName("Kim Minji").Build(),
			*testutil.NewContact("C2").WithName("Lee Junho").Build(),
		),
		catalog:      memory.NewCatalog(*testutil.NewQuestionSet("Q1").WithTitle("Wellbeing check").Build()),
		counter:      &memory.Counter{},
		inFlight:     &memory.InFlight{},
		history:      &memory.History{},
		publisher:    &memory.Publisher{},
		metrics:      &statsd.Recorder{},
		notifier:     &recordingNotifier{},
		orchestrator: &fakeOrchestrator{},
	}
	h.correlations = &memory.Correlations{Now: h.clock}
	h.cache = core.NewQuestionSetCache(core.QuestionSetCacheOptions{
		Cache:   &memory.Cache{Now: h.clock},
		Catalog: h.catalog,
		Now:     h.clock,
	})
	return h
}

func (h *harness) clock() time.Time { return h.now }

func (h *harness) dispatchConfig() config.DispatchConfig {
	return config.DispatchConfig{
		OrchestratorBaseURL: "http://orchestrator.test",
		Timeout:             time.Second,
		MaxInFlight:         4,
		QuestionCacheTTL:    time.Hour,
		CorrelationTTL:      24 * time.Hour,
	}
}

func (h *harness) dispatcher(t *testing.T, cfg config.DispatchConfig) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(DispatcherOptions{
		Queue:        h.queue,
		Contacts:     h.contacts,
		QuestionSets: h.cache,
		Sessions:     h.counter,
		Correlations: h.correlations,
		Orchestrator: h.orchestrator,
		Publisher:    h.publisher,
		InFlight:     h.inFlight,
		Notifier:     h.notifier,
		Config:       cfg,
		Logger:       discardLogger(),
		Metrics:      h.metrics,
		Now:          h.clock,
	})
	require.NoError(t, err)
	return d
}

func (h *harness) reconciler(t *testing.T) *Reconciler {
	t.Helper()
	r, err := NewReconciler(ReconcilerOptions{
		Correlations: h.correlations,
		History:      h.history,
		Contacts:     h.contacts,
		Publisher:    h.publisher,
		InFlight:     h.inFlight,
		Logger:       discardLogger(),
		Metrics:      h.metrics,
		Now:          h.clock,
	})
	require.NoError(t, err)
	return r
}

func (h *harness) batch(t *testing.T) *BatchService {
	t.Helper()
	var seq int
	var mu sync.Mutex
	svc, err := NewBatchService(BatchServiceOptions{
		Queue:        h.queue,
		Contacts:     h.contacts,
		QuestionSets: h.cache,
		Publisher:    h.publisher,
		Logger:       discardLogger(),
		Metrics:      h.metrics,
		Now:          h.clock,
		NewID: func() string {
			mu.Lock()
			defer mu.Unlock()
			seq++
			return fmt.Sprintf("J%d", seq)
		},
	})
	require.NoError(t, err)
	return svc
}

func waitDispatcher(t *testing.T, d *Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Wait(ctx))
}
