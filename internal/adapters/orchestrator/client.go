// Package orchestrator is the HTTP client for the conversational orchestrator.
package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/voicebot/consultd/internal/core"
	"github.com/voicebot/consultd/internal/domain/model"
	apperrors "github.com/voicebot/consultd/internal/errors"
)

const (
	receivePath          = "/api/receive"
	maxResponseBodyBytes = 4 << 10
)

// ErrUnexpectedStatus is returned when the orchestrator answers with a non-2xx status.
var ErrUnexpectedStatus = errors.New("orchestrator: unexpected status")

// Options configures a Client.
type Options struct {
	BaseURL    string       // Required
	HTTPClient *http.Client // Optional: defaults to a client without its own timeout
	Logger     *slog.Logger
}

// Client posts dispatches to {base}/api/receive. The caller's context bounds the call.
type Client struct {
	endpoint string
	http     *http.Client
	logger   *slog.Logger
}

var _ core.OrchestratorClient = (*Client)(nil)

// NewClient constructs a Client.
func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("orchestrator base URL is required")
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return nil, fmt.Errorf("invalid orchestrator base URL %q", opts.BaseURL)
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint: base + receivePath,
		http:     hc,
		logger:   logger.With("component", "orchestrator_client"),
	}, nil
}

// Dispatch sends one consultation to the orchestrator. A 2xx response only
// acknowledges receipt; the outcome arrives later on the result callback.
func (c *Client) Dispatch(ctx context.Context, req model.DispatchRequest) error {
	body, err := json.Marshal(newReceiveRequest(req))
	if err != nil {
		return fmt.Errorf("encode dispatch: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("send request: %w", ctxErr)
		}
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "orchestrator unreachable")
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	c.logger.DebugContext(ctx, "orchestrator responded",
		"job_id", req.JobID,
		"s_index", req.SessionIndex,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
		return fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}
