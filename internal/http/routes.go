package httpx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/voicebot/consultd/internal/core"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Batch       BatchService
	Starter     Starter
	Reconciler  ResultReconciler
	Subscriber  StatusSubscriber
	History     core.HistoryReader
	HealthCheck []HealthCheck

	// Status stream tuning
	StreamIdleTimeout time.Duration
	StreamKeepalive   time.Duration
	StreamBuffer      int

	Logger *slog.Logger // Logger for handler errors (optional)
}

// NewRouter creates and configures the consultation API router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	callHandlers := &CallHandlers{Batch: services.Batch, Starter: services.Starter, Logger: services.Logger}
	streamHandlers := &StreamHandlers{
		Subscriber:  services.Subscriber,
		IdleTimeout: services.StreamIdleTimeout,
		Keepalive:   services.StreamKeepalive,
		Buffer:      services.StreamBuffer,
		Logger:      services.Logger,
	}
	resultHandlers := &ResultHandlers{Reconciler: services.Reconciler, Logger: services.Logger}
	healthHandlers := &HealthHandlers{Checks: services.HealthCheck}

	registerCallRoutes(mux, callHandlers, streamHandlers)
	mux.HandleFunc("POST /api/consult/result", resultHandlers.Receive)
	if services.History != nil {
		historyHandlers := &HistoryHandlers{History: services.History, Logger: services.Logger}
		mux.HandleFunc("GET /api/contacts/{contactId}/history", historyHandlers.List)
	}
	mux.HandleFunc("GET /healthz", healthHandlers.Health)
	mux.HandleFunc("HEAD /healthz", healthHandlers.Health)

	return mux
}

func registerCallRoutes(mux *http.ServeMux, calls *CallHandlers, stream *StreamHandlers) {
	mux.HandleFunc("POST /api/call/queue/batch", calls.SubmitBatch)
	mux.HandleFunc("POST /api/call/start", calls.Start)
	mux.HandleFunc("GET /api/call/queue/status", calls.QueueStatus)
	mux.HandleFunc("GET /api/call/sse/{adminId}", stream.Stream)
}
