// Package slack delivers consultation failure notifications to a Slack incoming webhook.
package slack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/voicebot/consultd/internal/observability/notify"
)

// Config captures the subset of Slack webhook behaviour we need.
type Config struct {
	WebhookURL string
	Channel    string
	Username   string
	Timeout    time.Duration
	RetryLimit int
	Client     *http.Client
	// DashboardURL, when set, turns contact ids into links to <DashboardURL>/contacts/<id>.
	DashboardURL string
}

// Client delivers consultation failure notifications to a Slack webhook.
type Client struct {
	webhookURL   string
	channel      string
	username     string
	retryLimit   int
	dashboardURL string
	client       *http.Client
}

// NewClient builds a Slack webhook client. Callers should pass a validated config.
func NewClient(cfg Config) (*Client, error) {
	webhookURL := strings.TrimSpace(cfg.WebhookURL)
	if webhookURL == "" {
		return nil, errors.New("slack webhook url is required")
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
		webhookURL:   webhookURL,
		channel:      strings.TrimSpace(cfg.Channel),
		username:     notify.Fallback(strings.TrimSpace(cfg.Username), "consultd"),
		retryLimit:   max(cfg.RetryLimit, 0),
		dashboardURL: strings.TrimSpace(cfg.DashboardURL),
		client:       hc,
	}, nil
}

// SendConsultFailure posts a formatted message to Slack.
func (c *Client) SendConsultFailure(ctx context.Context, payload notify.ConsultFailurePayload) error {
	body, err := json.Marshal(c.formatMessage(payload))
	if err != nil {
		return fmt.Errorf("encode slack payload: %w", err)
	}
	return notify.PostJSON(ctx, notify.Delivery{
		Client:  c.client,
		URL:     c.webhookURL,
		Body:    body,
		Retries: c.retryLimit,
		Label:   "slack webhook",
	})
}

func (c *Client) formatMessage(payload notify.ConsultFailurePayload) map[string]any {
	timestamp := payload.OccurredAt
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	var text strings.Builder
	text.WriteString("*Consultation failure*")
	if payload.Reason != "" {
		text.WriteString(" (")
		text.WriteString(payload.Reason)
		text.WriteByte(')')
	}
	text.WriteByte('\n')

	sessionIndex := ""
	if payload.SessionIndex > 0 {
		sessionIndex = strconv.Itoa(payload.SessionIndex)
	}
	fields := []struct{ label, value string }{
		{"Severity", notify.Fallback(payload.Severity, notify.SeverityCritical)},
		{"Job", payload.JobID},
		{"Contact", c.formatContact(payload.ContactID, payload.ContactName)},
		{"Question set", payload.QuestionSetID},
		{"Session", sessionIndex},
		{"Error class", payload.ErrorClass},
		{"Error", escape(payload.Error)},
	}
	for _, f := range fields {
		appendField(&text, f.label, f.value)
	}
	appendMetadata(&text, payload.Metadata)
	text.WriteString("• Timestamp: ")
	text.WriteString(timestamp.UTC().Format(time.RFC3339))

	msg := map[string]any{
		"text":     text.String(),
		"username": c.username,
	}
	if c.channel != "" {
		msg["channel"] = c.channel
	}
	return msg
}

func (c *Client) formatContact(id, name string) string {
	id = strings.TrimSpace(id)
	name = escape(strings.TrimSpace(name))
	if id == "" {
		return name
	}
	label := escape(id)
	if link := c.contactLink(id); link != "" {
		label = fmt.Sprintf("<%s|%s>", link, label)
	}
	if name == "" {
		return label
	}
	return fmt.Sprintf("%s (%s)", name, label)
}

func (c *Client) contactLink(contactID string) string {
	if c.dashboardURL == "" {
		return ""
	}
	u, err := url.Parse(c.dashboardURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	link, err := url.JoinPath(u.String(), "contacts", contactID)
	if err != nil {
		return ""
	}
	return link
}

func escape(value string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(value)
}

func appendField(text *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	text.WriteString("• ")
	text.WriteString(label)
	text.WriteString(": ")
	text.WriteString(value)
	text.WriteByte('\n')
}

func appendMetadata(text *strings.Builder, metadata map[string]string) {
	if len(metadata) == 0 {
		return
	}
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	text.WriteString("• Metadata:\n")
	for _, k := range keys {
		text.WriteString("    • ")
		text.WriteString(k)
		text.WriteString(": ")
		text.WriteString(metadata[k])
		text.WriteByte('\n')
	}
}
