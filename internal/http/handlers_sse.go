package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/voicebot/consultd/internal/domain/model"
	"github.com/voicebot/consultd/internal/domain/status"
)

const (
	defaultStreamIdleTimeout = time.Hour
	defaultStreamKeepalive   = 25 * time.Second

	eventConnect      = "connect"
	eventStatusUpdate = "statusUpdate"
	connectMessage    = "Connection successful"
)

// StatusSubscriber hands out live status subscriptions.
type StatusSubscriber interface {
	Subscribe(opts status.SubscribeOptions) (func(), <-chan model.StatusEvent, error)
}

// StreamHandlers serves the status event stream.
type StreamHandlers struct {
	Subscriber StatusSubscriber
	// IdleTimeout closes a stream that has delivered no status event for this long.
	// Keepalive comments do not count as activity.
	IdleTimeout time.Duration
	Keepalive   time.Duration
	Buffer      int
	Logger      *slog.Logger
}

// Stream handles GET /api/call/sse/{adminId}.
func (h *StreamHandlers) Stream(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("filter")
	if err := status.ValidateFilter(filter); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "validation", Err: err, Field: "filter"})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "sse_unsupported",
			Err:     errors.New("streaming unsupported"),
		})
		return
	}

	unsubscribe, events, err := h.Subscriber.Subscribe(status.SubscribeOptions{Filter: filter, Buffer: h.Buffer})
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusServiceUnavailable, ErrCode: "unavailable", Err: err})
		return
	}
	defer unsubscribe()

	logger := h.logger().With("admin_id", r.PathValue("adminId"))
	logger.InfoContext(r.Context(), "status stream opened", "filter", filter)
	defer logger.InfoContext(r.Context(), "status stream closed")

	// Streams outlive the server write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, eventConnect, []byte(connectMessage)); err != nil {
		return
	}
	flusher.Flush()

	idleTimeout := h.idleTimeout()
	idle := time.NewTimer(idleTimeout)
	defer idle.Stop()
	keepalive := time.NewTicker(h.keepalive())
	defer keepalive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-idle.C:
			logger.DebugContext(ctx, "status stream idle timeout")
			return
		case <-keepalive.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				logger.ErrorContext(ctx, "encode status event failed", "job_id", ev.JobID, "error", err)
				continue
			}
			if err := writeEvent(w, eventStatusUpdate, data); err != nil {
				return
			}
			flusher.Flush()
			idle.Reset(idleTimeout)
		}
	}
}

func writeEvent(w http.ResponseWriter, name string, data []byte) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}

func (h *StreamHandlers) idleTimeout() time.Duration {
	if h.IdleTimeout <= 0 {
		return defaultStreamIdleTimeout
	}
	return h.IdleTimeout
}

func (h *StreamHandlers) keepalive() time.Duration {
	if h.Keepalive <= 0 {
		return defaultStreamKeepalive
	}
	return h.Keepalive
}

func (h *StreamHandlers) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger.With("component", "status_stream")
}
