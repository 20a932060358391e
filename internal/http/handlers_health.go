package httpx

import (
	"context"
	"io"
	"net/http"
	"time"
)

const (
	healthResponse     = `{"status":"ok"}`
	healthCheckTimeout = 2 * time.Second
)

// HealthCheck is one named dependency check.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthHandlers reports readiness of the service and its dependencies.
type HealthHandlers struct {
	Checks []HealthCheck
}

type healthFailure struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Health returns 200 when every check passes and 503 naming the failures otherwise.
func (h *HealthHandlers) Health(w http.ResponseWriter, r *http.Request) {
	failed := make(map[string]string)
	for _, c := range h.Checks {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := c.Check(ctx)
		cancel()
		if err != nil {
			failed[c.Name] = err.Error()
		}
	}

	if len(failed) > 0 {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		WriteJSON(w, http.StatusServiceUnavailable, healthFailure{Status: "unavailable", Checks: failed})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.WriteString(w, healthResponse); err != nil {
		// Nothing more to do if the client connection is gone.
		return
	}
}
