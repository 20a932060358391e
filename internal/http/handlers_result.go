package httpx

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/voicebot/consultd/internal/domain/model"
)

// ResultReconciler records result callbacks.
type ResultReconciler interface {
	HandleResult(ctx context.Context, p *model.ResultPayload) model.StatusEvent
}

// ResultHandlers serves the orchestrator result callback.
type ResultHandlers struct {
	Reconciler ResultReconciler
	Logger     *slog.Logger
}

// Receive handles POST /api/consult/result. Unknown fields are ignored and
// missing ones take defaults; only an undecodable body is rejected.
func (h *ResultHandlers) Receive(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusRequestEntityTooLarge, ErrCode: "body_too_large", Err: err})
		return
	}

	var payload model.ResultPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		if h.Logger != nil {
			h.Logger.WarnContext(r.Context(), "undecodable result callback", "error", err, "bytes", len(raw))
		}
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return
	}

	ev := h.Reconciler.HandleResult(r.Context(), &payload)
	WriteJSON(w, http.StatusOK, ev)
}
