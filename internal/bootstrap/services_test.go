package bootstrap

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicebot/consultd/config"
	"github.com/voicebot/consultd/internal/domain/status"
	httpx "github.com/voicebot/consultd/internal/http"
)

func TestErrorChannelCapacity(t *testing.T) {
	tests := []struct {
		name  string
		modes []config.ServiceMode
		want  int
	}{
		{
			name: "no services enabled",
			want: 0,
		},
		{
			name:  "http only",
			modes: []config.ServiceMode{config.ServiceModeHTTP},
			want:  1,
		},
		{
			name:  "dispatch scheduler and reaper",
			modes: []config.ServiceMode{config.ServiceModeDispatchScheduler, config.ServiceModeReaper},
			want:  2,
		},
		{
			name: "all services enabled",
			modes: []config.ServiceMode{
				config.ServiceModeHTTP,
				config.ServiceModeDispatchScheduler,
				config.ServiceModeReaper,
			},
			want: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enabled := make(map[config.ServiceMode]bool, len(tt.modes))
			for _, mode := range tt.modes {
				enabled[mode] = true
			}

			if got := errorChannelCapacity(enabled); got != tt.want {
				t.Fatalf("errorChannelCapacity(%v) = %d, want %d", tt.modes, got, tt.want)
			}
		})
	}
}

func TestErrorChannelBufferSize(t *testing.T) {
	enabled := map[config.ServiceMode]bool{config.ServiceModeHTTP: true}
	assert.Equal(t, 2, errorChannelBufferSize(enabled))
	assert.Equal(t, 1, errorChannelBufferSize(nil))
}

func TestLaunchBackground(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("disabled mode is not started", func(t *testing.T) {
		deps := &serviceStartupDeps{
			ctx:             context.Background(),
			logger:          logger,
			enabledServices: map[config.ServiceMode]bool{},
			errCh:           make(chan error, 1),
		}
		done := launchBackground(context.Background(), deps, backgroundService{
			mode:  config.ServiceModeReaper,
			name:  "reaper",
			start: func(context.Context) error { t.Fatal("should not start"); return nil },
		})
		assert.Nil(t, done)
	})

	t.Run("failure is reported on the error channel", func(t *testing.T) {
		deps := &serviceStartupDeps{
			ctx:             context.Background(),
			logger:          logger,
			enabledServices: map[config.ServiceMode]bool{config.ServiceModeReaper: true},
			errCh:           make(chan error, 1),
		}
		boom := errors.New("boom")
		done := launchBackground(context.Background(), deps, backgroundService{
			mode:  config.ServiceModeReaper,
			name:  "reaper",
			start: func(context.Context) error { return boom },
		})
		require.NotNil(t, done)

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("background service did not finish")
		}
		err := <-deps.errCh
		require.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "reaper failed")
	})
}

func TestBuildHTTPHandler_Health(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := buildHTTPHandler(httpHandlerConfig{
		Logger: logger,
		Services: httpx.RouterServices{
			Subscriber: status.NewBroadcaster(status.Options{Buffer: 1}),
			HealthCheck: []httpx.HealthCheck{
				{Name: "redis", Check: func(context.Context) error { return errors.New("down") }},
			},
			Logger: logger,
		},
		HTTP: config.HTTPConfig{CompressionEnabled: true, CompressionLevel: 6},
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "down")
}

func TestHealthChecks_SkipsMissingConnections(t *testing.T) {
	assert.Empty(t, healthChecks(nil, nil))
}

func TestShutdownHTTPServer_StopsStreams(t *testing.T) {
	b := status.NewBroadcaster(status.Options{Buffer: 1})
	_, ch, err := b.Subscribe(status.SubscribeOptions{})
	require.NoError(t, err)

	require.NoError(t, ShutdownHTTPServer(ShutdownConfig{
		Context:     context.Background(),
		Server:      &http.Server{},
		Broadcaster: b,
	}))

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, b.Len())
}

func TestBuildFailureNotifier_Disabled(t *testing.T) {
	n := buildFailureNotifier(nil, config.ObservabilityNotificationsConfig{})
	require.NotNil(t, n)
}
