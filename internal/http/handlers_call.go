package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/voicebot/consultd/internal/domain/model"
	"github.com/voicebot/consultd/internal/service"
)

const maxRequestBodyBytes = 1 << 20

// BatchService enqueues batches and reports the waiting queue.
type BatchService interface {
	Submit(ctx context.Context, req service.BatchRequest) ([]string, error)
	QueueStatus(ctx context.Context, limit int) (model.QueueStatus, error)
}

// Starter starts the next waiting job.
type Starter interface {
	StartNext(ctx context.Context, accountID string) (*model.Job, error)
}

// CallHandlers serves the batch, start, and queue status endpoints.
type CallHandlers struct {
	Batch   BatchService
	Starter Starter
	Logger  *slog.Logger
}

type batchRequest struct {
	VulnerableIDs []string `json:"vulnerableIds"`
	QuestionsID   string   `json:"questionsId"`
	AccountID     string   `json:"accountId"`
}

type batchResponse struct {
	JobIDs []string `json:"jobIds"`
}

type startRequest struct {
	AccountID string `json:"accountId"`
}

type startResponse struct {
	Job *model.Job `json:"job"`
}

// SubmitBatch handles POST /api/call/queue/batch.
func (h *CallHandlers) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !decodeValidated(w, r, batchSchema, &req) {
		return
	}

	ids, err := h.Batch.Submit(r.Context(), service.BatchRequest{
		ContactIDs:    req.VulnerableIDs,
		QuestionSetID: req.QuestionsID,
		AccountID:     req.AccountID,
	})
	if err != nil {
		h.logError(r, "batch submit failed", err)
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, batchResponse{JobIDs: ids})
}

// Start handles POST /api/call/start. It answers 202 with the started job,
// 204 when the queue is empty, 422 when the head job was abandoned, and 503
// when a store outage sent the head job back to the queue.
func (h *CallHandlers) Start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if !decodeValidated(w, r, startSchema, &req) {
		return
	}

	job, err := h.Starter.StartNext(r.Context(), req.AccountID)
	switch {
	case errors.Is(err, service.ErrAbandoned):
		WriteError(w, ErrorParams{Code: http.StatusUnprocessableEntity, ErrCode: "job_abandoned", Err: err})
		return
	case errors.Is(err, service.ErrDispatchUnavailable):
		h.logError(r, "start deferred", err)
		WriteError(w, ErrorParams{Code: http.StatusServiceUnavailable, ErrCode: "dispatch_unavailable", Err: err})
		return
	case err != nil:
		h.logError(r, "start failed", err)
		WriteServiceError(w, err)
		return
	case job == nil:
		w.WriteHeader(http.StatusNoContent)
		return
	}
	WriteJSON(w, http.StatusAccepted, startResponse{Job: job})
}

// QueueStatus handles GET /api/call/queue/status.
func (h *CallHandlers) QueueStatus(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	status, err := h.Batch.QueueStatus(r.Context(), limit)
	if err != nil {
		h.logError(r, "queue status failed", err)
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, status)
}

func (h *CallHandlers) logError(r *http.Request, msg string, err error) {
	if h.Logger == nil {
		return
	}
	h.Logger.ErrorContext(r.Context(), msg, "path", r.URL.Path, "error", err)
}

// decodeValidated reads the body, checks it against schema, and decodes it into dst.
func decodeValidated(w http.ResponseWriter, r *http.Request, schema schemaValidator, dst any) bool {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusRequestEntityTooLarge, ErrCode: "body_too_large", Err: err})
		return false
	}
	if err := schema.validate(raw); err != nil {
		var se *SchemaError
		if errors.As(err, &se) {
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "validation", Err: err, Details: se.Items})
			return false
		}
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return false
	}
	if len(raw) == 0 {
		return true
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return false
	}
	return true
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "validation",
			Err:     errors.New("limit must be a non-negative integer"),
			Field:   "limit",
		})
		return 0, false
	}
	return n, true
}
