package config

import (
	"strings"
	"time"
)

// SessionCounterBackend selects where per-contact session counters live.
type SessionCounterBackend string

const (
	// SessionCounterPostgres keeps counters in the session_counters table.
	SessionCounterPostgres SessionCounterBackend = "postgres"
	// SessionCounterRedis keeps counters in a Redis hash.
	SessionCounterRedis SessionCounterBackend = "redis"
)

// DispatchConfig controls the waiting queue and the outbound orchestrator call.
type DispatchConfig struct {
	// OrchestratorBaseURL is the base URL of the conversational orchestrator.
	// Dispatches are POSTed to {base}/api/receive.
	OrchestratorBaseURL string `env:"ORCHESTRATOR_BASE_URL" envDefault:"http://localhost:8000"`

	// Timeout bounds a single orchestrator call. Expiry fails the job.
	Timeout time.Duration `env:"DISPATCH_TIMEOUT" envDefault:"30s"`

	// MaxInFlight caps concurrent outbound orchestrator calls from one process.
	MaxInFlight int `env:"DISPATCH_MAX_IN_FLIGHT" envDefault:"8"`

	// QuestionCacheTTL is how long a question set snapshot stays cached after batch submit.
	QuestionCacheTTL time.Duration `env:"QUESTION_CACHE_TTL" envDefault:"1h"`

	// CorrelationTTL is how long a (contact, session) -> account entry is kept.
	CorrelationTTL time.Duration `env:"CORRELATION_TTL" envDefault:"24h"`

	// SessionCounterBackend is postgres or redis.
	SessionCounterBackend SessionCounterBackend `env:"SESSION_COUNTER_BACKEND" envDefault:"postgres"`

	// QueueKey is the Redis list backing the waiting queue.
	QueueKey string `env:"WAITING_QUEUE_KEY" envDefault:"queue:waiting"`
}

// Sanitize applies guardrails to dispatch configuration values.
func (d *DispatchConfig) Sanitize() {
	d.OrchestratorBaseURL = strings.TrimRight(strings.TrimSpace(d.OrchestratorBaseURL), "/")
	if d.Timeout <= 0 {
		d.Timeout = 30 * time.Second
	}
	if d.MaxInFlight < 1 {
		d.MaxInFlight = 1
	}
	if d.QuestionCacheTTL <= 0 {
		d.QuestionCacheTTL = time.Hour
	}
	if d.CorrelationTTL <= 0 {
		d.CorrelationTTL = 24 * time.Hour
	}
	switch d.SessionCounterBackend {
	case SessionCounterPostgres, SessionCounterRedis:
	default:
		d.SessionCounterBackend = SessionCounterPostgres
	}
	if d.QueueKey = strings.TrimSpace(d.QueueKey); d.QueueKey == "" {
		d.QueueKey = "queue:waiting"
	}
}

// BroadcastConfig controls live status stream subscribers.
type BroadcastConfig struct {
	// IdleTimeout closes a stream that has delivered no status event for this long.
	IdleTimeout time.Duration `env:"SSE_IDLE_TIMEOUT" envDefault:"1h"`

	// Keepalive is the interval between comment frames on an idle stream.
	Keepalive time.Duration `env:"SSE_KEEPALIVE" envDefault:"25s"`

	// Buffer is the per-subscriber channel capacity.
	Buffer int `env:"SSE_BUFFER" envDefault:"16"`

	// MaxPending bounds events queued behind a slow subscriber before it is dropped.
	MaxPending int `env:"SSE_MAX_PENDING" envDefault:"4096"`

	// SendTimeout drops a subscriber that has not accepted an event for this long.
	SendTimeout time.Duration `env:"SSE_SEND_TIMEOUT" envDefault:"30s"`
}

// Sanitize applies guardrails to broadcast configuration values.
func (b *BroadcastConfig) Sanitize() {
	if b.IdleTimeout <= 0 {
		b.IdleTimeout = time.Hour
	}
	if b.Keepalive < time.Second {
		b.Keepalive = time.Second
	}
	if b.Buffer < 1 {
		b.Buffer = 1
	}
	if b.MaxPending < 1 {
		b.MaxPending = 4096
	}
	if b.SendTimeout <= 0 {
		b.SendTimeout = 30 * time.Second
	}
}
