package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/voicebot/consultd/internal/errors"
)

// DecodeJSON decodes JSON from the request body into the destination and handles errors.
// Returns true if successful, false if there was an error (error response already written).
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return false
	}

	return true
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

// ErrorParams groups parameters for WriteError to adhere to the ≤3 params guideline.
type ErrorParams struct {
	Code    int
	ErrCode string
	Err     error
	// Field names the offending request field for validation errors.
	Field string
	// Details carries structured validation failures.
	Details any
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Details any    `json:"details,omitempty"`
}

// WriteError writes a JSON error response using ErrorParams.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	WriteJSON(w, p.Code, errorBody{
		Error:   p.ErrCode,
		Message: p.Err.Error(),
		Field:   p.Field,
		Details: p.Details,
	})
}

var codeStatus = map[apperrors.ErrorCode]int{
	apperrors.ErrCodeNotFound:    http.StatusNotFound,
	apperrors.ErrCodeValidation:  http.StatusBadRequest,
	apperrors.ErrCodeConflict:    http.StatusConflict,
	apperrors.ErrCodeForeignKey:  http.StatusConflict,
	apperrors.ErrCodeTimeout:     http.StatusGatewayTimeout,
	apperrors.ErrCodeUnavailable: http.StatusServiceUnavailable,
	apperrors.ErrCodeCanceled:    499,
}

// StatusForError maps an application error to an HTTP status and error code.
// Errors without an application code are internal.
func StatusForError(err error) (int, string) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, string(apperrors.ErrCodeInternal)
	}
	if status, ok := codeStatus[appErr.Code]; ok {
		return status, string(appErr.Code)
	}
	return http.StatusInternalServerError, string(apperrors.ErrCodeInternal)
}

// WriteServiceError writes err using the application error status table.
// Internal errors are reported without their cause.
func WriteServiceError(w http.ResponseWriter, err error) {
	status, code := StatusForError(err)
	if status == http.StatusInternalServerError {
		err = errors.New("internal server error")
	}
	WriteError(w, ErrorParams{Code: status, ErrCode: code, Err: err, Field: apperrors.GetField(err)})
}
