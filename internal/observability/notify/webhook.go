package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxErrorBody bounds how much of an error response is echoed into the returned error.
const maxErrorBody = 4 << 10

// Delivery describes one JSON POST with linear-backoff retries.
type Delivery struct {
	Client  *http.Client
	URL     string
	Body    []byte
	Retries int
	// Label names the destination in error messages, e.g. "slack webhook".
	Label string
}

// PostJSON sends d.Body to d.URL, retrying non-2xx and transport failures up to d.Retries times.
func PostJSON(ctx context.Context, d Delivery) error {
	attempts := max(d.Retries, 0) + 1
	var lastErr error
	for attempt := range attempts {
		lastErr = postOnce(ctx, d)
		if lastErr == nil {
			return nil
		}
		if attempt == attempts-1 {
			break
		}
		delay := time.Duration(attempt+1) * 200 * time.Millisecond
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}

func postOnce(ctx context.Context, d Delivery) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.URL, bytes.NewReader(d.Body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", d.Label, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", d.Label, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if readErr != nil {
		return errors.Join(
			fmt.Errorf("%s %s", d.Label, resp.Status),
			fmt.Errorf("read error response: %w", readErr),
		)
	}
	return fmt.Errorf("%s %s: %s", d.Label, resp.Status, strings.TrimSpace(string(body)))
}

// Fallback returns fallback when value is blank.
func Fallback(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
