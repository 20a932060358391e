package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP API (batch submit, start trigger, status stream, result callback).
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeDispatchScheduler runs the cron-driven start trigger.
	ServiceModeDispatchScheduler ServiceMode = "dispatch-scheduler"
	// ServiceModeReaper runs stale dispatch and history cleanup.
	ServiceModeReaper ServiceMode = "reaper"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeHTTP,
		ServiceModeDispatchScheduler,
		ServiceModeReaper,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	for _, part := range strings.Split(servicesStr, ",") {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeDispatchScheduler, ServiceModeReaper:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: http, dispatch-scheduler, reaper)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// DispatchSchedulerConfig contains configuration for the cron-driven start trigger.
type DispatchSchedulerConfig struct {
	// Schedule is a standard five-field cron expression.
	Schedule string `env:"DISPATCH_SCHEDULE" envDefault:"*/1 * * * *"`

	// PerTick is the maximum number of jobs started on each firing.
	PerTick int `env:"DISPATCH_PER_TICK" envDefault:"1"`

	// LockTTL bounds how long one instance holds the per-tick lock.
	LockTTL time.Duration `env:"DISPATCH_LOCK_TTL" envDefault:"55s"`
}

// Sanitize applies guardrails to dispatch scheduler configuration values.
func (d *DispatchSchedulerConfig) Sanitize() {
	d.Schedule = strings.TrimSpace(d.Schedule)
	if d.Schedule == "" {
		d.Schedule = "*/1 * * * *"
	}
	if d.PerTick < 1 {
		d.PerTick = 1
	}
	if d.PerTick > 100 {
		d.PerTick = 100
	}
	if d.LockTTL < time.Second {
		d.LockTTL = time.Second
	}
}

// ReaperConfig contains reaper service configuration.
type ReaperConfig struct {
	// Interval is the reaper tick interval.
	Interval time.Duration `env:"REAPER_INTERVAL" envDefault:"5m"`

	// InFlightMaxAge is how long a dispatched job may wait for its result callback
	// before it is failed.
	InFlightMaxAge time.Duration `env:"REAPER_IN_FLIGHT_MAX_AGE" envDefault:"2h"`

	// HistoryMaxAge is the retention window for consultation history rows.
	HistoryMaxAge time.Duration `env:"REAPER_HISTORY_MAX_AGE" envDefault:"2160h"` // 90 days

	// BatchSize is the maximum number of rows or entries to process per operation.
	BatchSize int `env:"REAPER_BATCH_SIZE" envDefault:"500"`
}

// Sanitize applies guardrails to reaper configuration values.
func (r *ReaperConfig) Sanitize() {
	if r.Interval < time.Minute {
		r.Interval = time.Minute
	}
	if r.InFlightMaxAge < 5*time.Minute {
		r.InFlightMaxAge = 5 * time.Minute
	}
	if r.HistoryMaxAge < 24*time.Hour {
		r.HistoryMaxAge = 24 * time.Hour
	}
	if r.BatchSize < 1 {
		r.BatchSize = 1
	}
	if r.BatchSize > 10000 {
		r.BatchSize = 10000
	}
}
