// Package httpclient provides a reusable HTTP client with retry logic and resource management.
//
// Non-streaming calls (embeddings, page fetches) go through DoRequest and are
// retried on 5xx. Streaming calls go through DoStream and are attempted once:
// a partially delivered stream has no safe resumption point.
package httpclient

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/kart-io/nyx/pkg/utils/json"
)

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 4 << 10

// StatusError is returned when the upstream answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("request failed with status code %d", e.StatusCode)
	}
	return fmt.Sprintf("request failed with status code %d: %s", e.StatusCode, e.Body)
}

// Client is a wrapper around http.Client with additional functionality.
type Client struct {
	httpClient   *http.Client
	streamClient *http.Client
	maxRetries   int
	backoff      time.Duration
}

// NewClient creates a new HTTP client wrapper.
//
// timeout bounds a whole non-streaming call. For streaming calls it only
// bounds the wait for response headers, the body may take as long as the
// caller's context allows.
func NewClient(timeout time.Duration, maxRetries int) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = timeout

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		streamClient: &http.Client{
			Transport: transport,
		},
		maxRetries: maxRetries,
		backoff:    500 * time.Millisecond,
	}
}

// WithHTTPClient replaces the underlying clients, used by tests to route
// requests to an httptest server.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	c.streamClient = hc
	return c
}

// DoRequest executes an HTTP request with retry logic.
// The body is buffered in memory so it can be replayed on retries.
func (c *Client) DoRequest(req *http.Request) (*http.Response, error) {
	// 自动注入 W3C Trace Context 头
	c.injectTraceContext(req)

	var bodyGetter func() io.ReadCloser
	if req.Body != nil {
		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		_ = req.Body.Close()
		bodyGetter = func() io.ReadCloser {
			return io.NopCloser(bytes.NewReader(bodyBytes))
		}
	}

	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if bodyGetter != nil {
			req.Body = bodyGetter()
		}

		resp, err := c.httpClient.Do(req)
		if err == nil {
			if resp.StatusCode < 500 {
				return resp, nil
			}
			lastErr = readStatusError(resp)
		} else {
			lastErr = err
		}

		if i < c.maxRetries {
			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-time.After(time.Duration(i+1) * c.backoff):
			}
		}
	}
	return nil, lastErr
}

// DoJSON executes a JSON request, decodes the response, and ensures the body is closed.
func (c *Client) DoJSON(req *http.Request, v interface{}) error {
	resp, err := c.DoRequest(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return readStatusError(resp)
	}

	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// DoStream executes a single-attempt request whose body is consumed
// incrementally. A non-2xx answer is returned as *StatusError with the body
// already closed. On success the caller owns resp.Body.
func (c *Client) DoStream(req *http.Request) (*http.Response, error) {
	c.injectTraceContext(req)

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, readStatusError(resp)
	}
	return resp, nil
}

func readStatusError(resp *http.Response) error {
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
}

// injectTraceContext 将 W3C Trace Context 头注入到 HTTP 请求中。
// 请求或其 Context 为 nil、未设置全局传播器时跳过注入。
func (c *Client) injectTraceContext(req *http.Request) {
	if req == nil || req.Context() == nil {
		return
	}

	propagator := otel.GetTextMapPropagator()
	if propagator == nil {
		return
	}

	propagator.Inject(req.Context(), propagation.HeaderCarrier(req.Header))
}
