package config

import (
	"reflect"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

func TestParseServices(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    map[ServiceMode]bool
		expectError bool
	}{
		{
			name:     "single service - http",
			input:    "http",
			expected: map[ServiceMode]bool{ServiceModeHTTP: true},
		},
		{
			name:     "single service - dispatch-scheduler",
			input:    "dispatch-scheduler",
			expected: map[ServiceMode]bool{ServiceModeDispatchScheduler: true},
		},
		{
			name:  "all services with whitespace",
			input: " http , dispatch-scheduler,reaper ",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:              true,
				ServiceModeDispatchScheduler: true,
				ServiceModeReaper:            true,
			},
		},
		{
			name:     "trailing comma is ignored",
			input:    "http,",
			expected: map[ServiceMode]bool{ServiceModeHTTP: true},
		},
		{
			name:        "empty string",
			input:       "",
			expectError: true,
		},
		{
			name:        "only commas",
			input:       ",,",
			expectError: true,
		},
		{
			name:        "unknown service",
			input:       "http,rules-engine",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseServices(tt.input)
			if tt.expectError {
				if err == nil {
					t.Fatalf("expected error for %q, got nil", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestConfig_ServiceEnabledMethods(t *testing.T) {
	cfg := AppConfig{Services: "http,reaper"}

	if !cfg.IsHTTPServerEnabled() {
		t.Error("expected http to be enabled")
	}
	if !cfg.IsReaperEnabled() {
		t.Error("expected reaper to be enabled")
	}
	if cfg.IsDispatchSchedulerEnabled() {
		t.Error("expected dispatch scheduler to be disabled")
	}

	invalid := AppConfig{Services: "bogus"}
	if invalid.IsHTTPServerEnabled() {
		t.Error("invalid service list must not enable http")
	}
}

func TestValidServiceModes(t *testing.T) {
	expected := []ServiceMode{ServiceModeHTTP, ServiceModeDispatchScheduler, ServiceModeReaper}
	if got := ValidServiceModes(); !reflect.DeepEqual(got, expected) {
		t.Fatalf("expected %v, got %v", expected, got)
	}
}

func TestAppConfig_ParseDefaults(t *testing.T) {
	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg.Sanitize()

	if cfg.Dispatch.QuestionCacheTTL != time.Hour {
		t.Errorf("expected question cache ttl 1h, got %v", cfg.Dispatch.QuestionCacheTTL)
	}
	if cfg.Dispatch.CorrelationTTL != 24*time.Hour {
		t.Errorf("expected correlation ttl 24h, got %v", cfg.Dispatch.CorrelationTTL)
	}
	if cfg.Dispatch.QueueKey != "queue:waiting" {
		t.Errorf("expected default queue key, got %q", cfg.Dispatch.QueueKey)
	}
	if cfg.Dispatch.SessionCounterBackend != SessionCounterPostgres {
		t.Errorf("expected postgres counter backend, got %q", cfg.Dispatch.SessionCounterBackend)
	}
	if cfg.Broadcast.IdleTimeout != time.Hour {
		t.Errorf("expected subscriber idle timeout 1h, got %v", cfg.Broadcast.IdleTimeout)
	}
	if cfg.Broadcast.MaxPending != 4096 || cfg.Broadcast.SendTimeout != 30*time.Second {
		t.Errorf("expected 4096 pending / 30s send timeout, got %d / %v", cfg.Broadcast.MaxPending, cfg.Broadcast.SendTimeout)
	}
	if cfg.Postgres.Name != "consultd" {
		t.Errorf("expected default db name consultd, got %q", cfg.Postgres.Name)
	}
}

func TestAppConfig_ParseDispatchEnv(t *testing.T) {
	t.Setenv("ORCHESTRATOR_BASE_URL", " https://orchestrator.internal/ ")
	t.Setenv("DISPATCH_TIMEOUT", "5s")
	t.Setenv("SESSION_COUNTER_BACKEND", "redis")
	t.Setenv("DISPATCH_SCHEDULE", "*/5 * * * *")
	t.Setenv("DISPATCH_PER_TICK", "3")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg.Sanitize()

	if cfg.Dispatch.OrchestratorBaseURL != "https://orchestrator.internal" {
		t.Errorf("expected trimmed base url, got %q", cfg.Dispatch.OrchestratorBaseURL)
	}
	if cfg.Dispatch.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", cfg.Dispatch.Timeout)
	}
	if cfg.Dispatch.SessionCounterBackend != SessionCounterRedis {
		t.Errorf("expected redis backend, got %q", cfg.Dispatch.SessionCounterBackend)
	}
	if cfg.DispatchScheduler.Schedule != "*/5 * * * *" || cfg.DispatchScheduler.PerTick != 3 {
		t.Errorf("unexpected scheduler config %+v", cfg.DispatchScheduler)
	}
}

func TestDispatchConfig_Sanitize(t *testing.T) {
	cfg := DispatchConfig{
		Timeout:               -1,
		MaxInFlight:           0,
		SessionCounterBackend: "sqlite",
		QueueKey:              "  ",
	}
	cfg.Sanitize()

	if cfg.Timeout != 30*time.Second {
		t.Errorf("expected default timeout, got %v", cfg.Timeout)
	}
	if cfg.MaxInFlight != 1 {
		t.Errorf("expected max in flight clamped to 1, got %d", cfg.MaxInFlight)
	}
	if cfg.SessionCounterBackend != SessionCounterPostgres {
		t.Errorf("expected unknown backend to fall back to postgres, got %q", cfg.SessionCounterBackend)
	}
	if cfg.QueueKey != "queue:waiting" {
		t.Errorf("expected default queue key, got %q", cfg.QueueKey)
	}
}

func TestReaperConfig_Sanitize(t *testing.T) {
	cfg := ReaperConfig{Interval: time.Second, InFlightMaxAge: time.Second, BatchSize: 50000}
	cfg.Sanitize()

	if cfg.Interval != time.Minute {
		t.Errorf("expected interval floor of 1m, got %v", cfg.Interval)
	}
	if cfg.InFlightMaxAge != 5*time.Minute {
		t.Errorf("expected in-flight floor of 5m, got %v", cfg.InFlightMaxAge)
	}
	if cfg.HistoryMaxAge != 24*time.Hour {
		t.Errorf("expected history floor of 24h, got %v", cfg.HistoryMaxAge)
	}
	if cfg.BatchSize != 10000 {
		t.Errorf("expected batch size ceiling, got %d", cfg.BatchSize)
	}
}

func TestObservabilityNotificationsConfig_Sanitize(t *testing.T) {
	cfg := ObservabilityNotificationsConfig{
		Enabled:    true,
		RetryLimit: -1,
		Slack:      SlackNotificationConfig{Enabled: true, WebhookURL: " "},
		PagerDuty:  PagerDutyNotificationConfig{Enabled: true, RoutingKey: " "},
	}

	cfg.Sanitize()

	if cfg.Timeout <= 0 {
		t.Fatalf("expected timeout to fall back to default, got %v", cfg.Timeout)
	}
	if cfg.RetryLimit != 0 {
		t.Fatalf("expected retry limit clamped to 0, got %d", cfg.RetryLimit)
	}
	if cfg.Slack.Enabled || cfg.PagerDuty.Enabled {
		t.Fatal("expected sinks without credentials to be disabled")
	}
	if cfg.PagerDuty.Source != "consultd" {
		t.Fatalf("expected pagerduty source default, got %q", cfg.PagerDuty.Source)
	}
}
