package httpx

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/voicebot/consultd/internal/core"
	"github.com/voicebot/consultd/internal/domain/model"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// HistoryHandlers serves persisted consultation outcomes.
type HistoryHandlers struct {
	History core.HistoryReader
	Logger  *slog.Logger
}

type historyResponse struct {
	Records []model.ConsultationRecord `json:"records"`
}

// List handles GET /api/contacts/{contactId}/history.
func (h *HistoryHandlers) List(w http.ResponseWriter, r *http.Request) {
	contactID := strings.TrimSpace(r.PathValue("contactId"))
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	if limit == 0 {
		limit = defaultHistoryLimit
	}
	limit = min(limit, maxHistoryLimit)

	records, err := h.History.ListByContact(r.Context(), contactID, limit)
	if err != nil {
		if h.Logger != nil {
			h.Logger.ErrorContext(r.Context(), "list history failed", "contact_id", contactID, "error", err)
		}
		WriteServiceError(w, err)
		return
	}
	if records == nil {
		records = []model.ConsultationRecord{}
	}
	WriteJSON(w, http.StatusOK, historyResponse{Records: records})
}
