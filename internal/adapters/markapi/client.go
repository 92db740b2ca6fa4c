package markapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/pinmap/internal/core/domain"
	"github.com/samirrijal/pinmap/internal/pkg/markwire"
	"github.com/samirrijal/pinmap/internal/pkg/metrics"
	"github.com/samirrijal/pinmap/internal/pkg/telemetry"
)

// maxBodyBytes caps how much of a response is read.
const maxBodyBytes = 4 << 20

// APIError is a non-2xx answer from the mark service.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s returned status %d", e.Method, e.URL, e.StatusCode)
}

// Unwrap lets callers match every non-2xx answer as a transport failure.
func (e *APIError) Unwrap() error { return domain.ErrTransport }

// Client implements ports.MarkRemote over HTTP.
type Client struct {
	baseURL string
	client  *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.client = httpClient
		}
	}
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.client = &http.Client{Timeout: d}
		}
	}
}

// NewClient creates a client for the mark service at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchMarks reads the full mark list.
func (c *Client) FetchMarks(ctx context.Context) ([]domain.Mark, error) {
	url := c.baseURL + markwire.ListPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req, "fetch", telemetry.SpanRemoteFetch)
	if err != nil {
		return nil, err
	}

	marks, err := markwire.DecodeList(body)
	if err != nil {
		metrics.RemoteDecodeErrors.Inc()
		return nil, fmt.Errorf("%w: %w", domain.ErrDecode, err)
	}
	return marks, nil
}

// SubmitMark posts a new mark. The coordinate is sent as a JSON string.
func (c *Client) SubmitMark(ctx context.Context, coordinate domain.Coordinate, message string) error {
	payload, err := markwire.NewSubmitRequest(coordinate, message)
	if err != nil {
		return fmt.Errorf("encode coordinate: %w", err)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode body: %w", err)
	}

	url := c.baseURL + markwire.SubmitPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	_, err = c.do(req, "submit", telemetry.SpanRemoteSubmit)
	return err
}

func (c *Client) do(req *http.Request, op, spanName string) ([]byte, error) {
	ctx, span := telemetry.Tracer().Start(req.Context(), spanName)
	defer span.End()
	req = req.WithContext(ctx)
	span.SetAttributes(
		attribute.String("http.request.method", req.Method),
		attribute.String("url.full", req.URL.String()),
	)

	start := time.Now()
	resp, err := c.client.Do(req)
	metrics.RemoteRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RemoteRequests.WithLabelValues(op, "error").Inc()
		err = fmt.Errorf("%w: %s %s: %w", domain.ErrTransport, req.Method, req.URL, err)
		telemetry.Fail(span, err)
		return nil, err
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		metrics.RemoteRequests.WithLabelValues(op, "error").Inc()
		err = fmt.Errorf("%w: read body: %w", domain.ErrTransport, err)
		telemetry.Fail(span, err)
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RemoteRequests.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()
		apiErr := &APIError{
			Method:     req.Method,
			URL:        req.URL.String(),
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
		telemetry.Fail(span, apiErr)
		return nil, apiErr
	}

	metrics.RemoteRequests.WithLabelValues(op, "ok").Inc()
	return body, nil
}
