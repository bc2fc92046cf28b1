// Package invoke provides service-to-service invocation through the Dapr
// sidecar. Callers name a target app ID and a method path; the sidecar owns
// address resolution and load balancing.
package invoke

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xshopai/chat-gateway/internal/config"
	"github.com/xshopai/chat-gateway/internal/observability"
)

// StatusError is returned when a downstream service answers with a non-2xx
// status. The numeric code is kept so callers can distinguish not-found from
// genuine failures.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a downstream 404
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// Client invokes methods on other services via the Dapr sidecar
type Client struct {
	sidecarURL string
	httpClient *http.Client
}

// New creates an invocation client talking to the configured Dapr sidecar
func New(cfg *config.Config) *Client {
	return &Client{
		sidecarURL: fmt.Sprintf("http://%s:%d", cfg.DaprHost, cfg.DaprHTTPPort),
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.InvokeTimeout) * time.Second,
		},
	}
}

// Invoke calls a method on another service and returns the raw JSON response
// body. The trace ID from ctx is always attached as an x-trace-id header;
// extra headers are added on top of it.
func (c *Client) Invoke(ctx context.Context, appID, method, httpMethod string, body any, headers map[string]string) (json.RawMessage, error) {
	cleanMethod := strings.TrimPrefix(method, "/")
	url := fmt.Sprintf("%s/v1.0/invoke/%s/method/%s", c.sidecarURL, appID, cleanMethod)

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, httpMethod, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-trace-id", observability.TraceIDFromContext(ctx))
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		observability.RecordInvocation(appID, false)
		observability.RecordError("transport", "invoke")
		return nil, fmt.Errorf("invocation of %s/%s failed: %w", appID, cleanMethod, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		observability.RecordInvocation(appID, false)
		return nil, fmt.Errorf("failed to read response from %s: %w", appID, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		observability.RecordInvocation(appID, false)
		log := observability.LoggerFromContext(ctx)
		log.Error().
			Str("app_id", appID).
			Str("method", cleanMethod).
			Int("status", resp.StatusCode).
			Msg("Downstream service returned error status")
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	observability.RecordInvocation(appID, true)
	return json.RawMessage(data), nil
}
