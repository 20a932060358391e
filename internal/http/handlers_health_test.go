package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okCheck(name string) HealthCheck {
	return HealthCheck{Name: name, Check: func(context.Context) error { return nil }}
}

func TestHealth(t *testing.T) {
	t.Run("GET all healthy", func(t *testing.T) {
		router := NewRouter(RouterServices{HealthCheck: []HealthCheck{okCheck("postgres"), okCheck("redis")}})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.Equal(t, `{"status":"ok"}`, rec.Body.String())
	})

	t.Run("HEAD all healthy", func(t *testing.T) {
		router := NewRouter(RouterServices{HealthCheck: []HealthCheck{okCheck("postgres")}})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/healthz", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Zero(t, rec.Body.Len())
	})

	t.Run("GET with failing dependency", func(t *testing.T) {
		router := NewRouter(RouterServices{HealthCheck: []HealthCheck{
			okCheck("postgres"),
			{Name: "redis", Check: func(context.Context) error { return errors.New("connection refused") }},
		}})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var body healthFailure
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "unavailable", body.Status)
		assert.Equal(t, map[string]string{"redis": "connection refused"}, body.Checks)
	})

	t.Run("HEAD with failing dependency", func(t *testing.T) {
		router := NewRouter(RouterServices{HealthCheck: []HealthCheck{
			{Name: "postgres", Check: func(context.Context) error { return errors.New("down") }},
		}})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/healthz", nil))

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Zero(t, rec.Body.Len())
	})

	t.Run("checks get a deadline", func(t *testing.T) {
		var hadDeadline bool
		router := NewRouter(RouterServices{HealthCheck: []HealthCheck{
			{Name: "postgres", Check: func(ctx context.Context) error {
				_, hadDeadline = ctx.Deadline()
				return nil
			}},
		}})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, hadDeadline)
	})
}
