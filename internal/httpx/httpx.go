// Package httpx is a small JSON request helper adapted from the SDK's
// internal/clientutils package, with one difference: callers need the raw
// HTTP status code (capability probes classify by 200/429/400, auth
// failures are detected by 401/403), so DoJSON returns it instead of
// collapsing it into an error string.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// JSONRequestConfig holds configuration for a JSON POST request.
type JSONRequestConfig struct {
	URL     string
	Headers map[string]string
	Body    any
}

// Result carries the decoded response body alongside the raw HTTP status
// code and bytes, so a caller can classify the response without re-parsing.
type Result[T any] struct {
	StatusCode int
	Body       []byte
	Value      *T
}

// DoJSON performs a JSON POST request and unmarshals the response body into
// T. Unlike clientutils.DoJSON, a 4xx/5xx status is not itself an error:
// the caller decides what to do with StatusCode. Unmarshal errors and
// transport errors are still returned as errors, since there is no
// status-code-driven decision to make in either case.
func DoJSON[T any](ctx context.Context, client *http.Client, config JSONRequestConfig) (*Result[T], error) {
	reqBody, err := json.Marshal(config.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, config.URL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range config.Headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	result := &Result[T]{StatusCode: resp.StatusCode, Body: respBody}

	// A non-2xx body is frequently not valid T; leave Value nil and let the
	// caller inspect StatusCode/Body directly.
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var value T
		if err := json.Unmarshal(respBody, &value); err != nil {
			return result, fmt.Errorf("failed to unmarshal response: %w", err)
		}
		result.Value = &value
	}

	return result, nil
}
