package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const maxErrorBodyBytes = 4 << 10

// apiError is a non-2xx answer from consultd.
type apiError struct {
	Status  int    `json:"-"`
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	switch {
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("consultd returned %d %s: %s", e.Status, e.Code, e.Message)
	case e.Message != "":
		return fmt.Sprintf("consultd returned %d: %s", e.Status, e.Message)
	default:
		return fmt.Sprintf("consultd returned %d", e.Status)
	}
}

type apiClient struct {
	baseURL string
	http    *http.Client
}

func (app *adminApp) client() (*apiClient, error) {
	base := strings.TrimRight(strings.TrimSpace(app.baseURL), "/")
	if base == "" {
		return nil, errors.New("base URL is required (set --base-url or APP_BASE_URL)")
	}
	return &apiClient{baseURL: base, http: &http.Client{}}, nil
}

func (c *apiClient) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do sends the request and returns the raw body and status. Non-2xx answers become *apiError.
func (c *apiClient) do(ctx context.Context, method, path string, body any) ([]byte, int, error) {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, resp.StatusCode, decodeAPIError(resp.StatusCode, data)
	}
	return data, resp.StatusCode, nil
}

func decodeAPIError(status int, data []byte) error {
	apiErr := &apiError{Status: status}
	if len(data) > maxErrorBodyBytes {
		data = data[:maxErrorBodyBytes]
	}
	if json.Unmarshal(data, apiErr) != nil || apiErr.Code == "" {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return apiErr
}

func (app *adminApp) printRawJSON(data []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		_, werr := fmt.Fprintln(app.out, string(data))
		return werr
	}
	_, err := fmt.Fprintln(app.out, buf.String())
	return err
}
