package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/voicebot/consultd/internal/errors"
)

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", apperrors.NotFoundf("contact %q not found", "C9"), http.StatusNotFound, "not_found"},
		{"validation", apperrors.Validationf("bad"), http.StatusBadRequest, "validation"},
		{"conflict", apperrors.Conflictf("dup"), http.StatusConflict, "conflict"},
		{"foreign key", &apperrors.AppError{Code: apperrors.ErrCodeForeignKey, Message: "fk"}, http.StatusConflict, "foreign_key"},
		{"timeout", apperrors.Wrap(context.DeadlineExceeded, apperrors.ErrCodeTimeout, "slow"), http.StatusGatewayTimeout, "timeout"},
		{"unavailable", apperrors.Wrap(errors.New("refused"), apperrors.ErrCodeUnavailable, "down"), http.StatusServiceUnavailable, "unavailable"},
		{"canceled", &apperrors.AppError{Code: apperrors.ErrCodeCanceled, Message: "gone"}, 499, "canceled"},
		{"internal", apperrors.Internalf("oops"), http.StatusInternalServerError, "internal"},
		{"wrapped app error", fmt.Errorf("submit: %w", apperrors.NotFoundf("missing")), http.StatusNotFound, "not_found"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := StatusForError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestWriteServiceError_HidesInternalCause(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteServiceError(rec, errors.New("pq: password authentication failed"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal server error", body.Message)
}

func TestWriteServiceError_CarriesField(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteServiceError(rec, apperrors.ValidationField("questionsId", "question set id is required"))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "questionsId", body.Field)
	assert.Equal(t, "question set id is required", body.Message)
}
