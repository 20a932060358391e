// Package pagerduty raises consultation failure incidents through the PagerDuty Events API v2.
package pagerduty

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/voicebot/consultd/internal/observability/notify"
)

// APIEndpoint is the PagerDuty Events API v2 ingest URL.
const APIEndpoint = "https://events.pagerduty.com/v2/enqueue"

// Config captures runtime configuration for the PagerDuty sink.
type Config struct {
	RoutingKey string
	Source     string
	Component  string
	Timeout    time.Duration
	RetryLimit int
	Client     *http.Client
	// Endpoint overrides APIEndpoint; tests point it at an httptest server.
	Endpoint string
}

// Client publishes events via PagerDuty's Events API v2.
type Client struct {
	routingKey string
	source     string
	component  string
	endpoint   string
	retryLimit int
	client     *http.Client
}

// NewClient constructs a PagerDuty events client from config. Callers must provide a routing key.
func NewClient(cfg Config) (*Client, error) {
	key := strings.TrimSpace(cfg.RoutingKey)
	if key == "" {
		return nil, errors.New("pagerduty routing key is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		routingKey: key,
		source:     notify.Fallback(strings.TrimSpace(cfg.Source), "consultd"),
		component:  notify.Fallback(strings.TrimSpace(cfg.Component), "consultd"),
		endpoint:   notify.Fallback(strings.TrimSpace(cfg.Endpoint), APIEndpoint),
		retryLimit: max(cfg.RetryLimit, 0),
		client:     hc,
	}, nil
}

// SendConsultFailure submits a trigger event to PagerDuty.
func (c *Client) SendConsultFailure(ctx context.Context, payload notify.ConsultFailurePayload) error {
	body, err := json.Marshal(c.buildEvent(payload))
	if err != nil {
		return fmt.Errorf("encode pagerduty payload: %w", err)
	}
	return notify.PostJSON(ctx, notify.Delivery{
		Client:  c.client,
		URL:     c.endpoint,
		Body:    body,
		Retries: c.retryLimit,
		Label:   "pagerduty api",
	})
}

func (c *Client) buildEvent(payload notify.ConsultFailurePayload) map[string]any {
	severity := notify.Fallback(strings.ToLower(payload.Severity), notify.SeverityCritical)

	occurredAt := payload.OccurredAt.UTC()
	if payload.OccurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	custom := map[string]any{
		"job_id":          payload.JobID,
		"contact_id":      payload.ContactID,
		"question_set_id": payload.QuestionSetID,
		"reason":          payload.Reason,
		"error":           payload.Error,
		"error_class":     payload.ErrorClass,
	}
	if payload.SessionIndex > 0 {
		custom["session_index"] = payload.SessionIndex
	}
	for k, v := range payload.Metadata {
		if _, exists := custom[k]; !exists {
			custom[k] = v
		}
	}

	return map[string]any{
		"routing_key":  c.routingKey,
		"event_action": "trigger",
		"dedup_key":    dedupKey(payload),
		"payload": map[string]any{
			"summary":        summary(payload),
			"severity":       severity,
			"source":         c.source,
			"component":      c.component,
			"timestamp":      occurredAt.Format(time.RFC3339),
			"custom_details": custom,
		},
	}
}

// dedupKey groups repeated alerts for the same call session, falling back to the job id.
func dedupKey(payload notify.ConsultFailurePayload) string {
	if payload.ContactID != "" && payload.SessionIndex > 0 {
		return payload.Reason + ":" + payload.ContactID + ":" + strconv.Itoa(payload.SessionIndex)
	}
	return strings.Trim(payload.Reason+":"+payload.JobID, ":")
}

func summary(payload notify.ConsultFailurePayload) string {
	return fmt.Sprintf(
		"Consultation for contact %s failed (%s)",
		notify.Fallback(payload.ContactID, "unknown"),
		notify.Fallback(payload.Reason, "unknown"),
	)
}
