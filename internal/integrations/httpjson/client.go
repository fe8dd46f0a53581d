// Package httpjson is the traced JSON-over-HTTP client shared by the
// external integrations. Each call gets a client span, the trace context is
// propagated in the request headers, and non-2xx responses become a
// *StatusError carrying the status code and a bounded body excerpt.
package httpjson

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const maxErrorBody = 2048

// StatusError is returned for a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Client performs JSON requests against one external system.
type Client struct {
	// System names the remote side in spans ("greenapi", "openai", ...).
	System     string
	HTTPClient *http.Client
	Tracer     trace.Tracer
}

// New returns a client whose transport is shared across calls. Deadlines come
// from the request context when timeout is zero.
func New(system string, timeout time.Duration) *Client {
	return &Client{
		System: system,
		HTTPClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		Tracer: otel.Tracer("integrations/" + system),
	}
}

// JSON sends in (when non-nil) as a JSON body and decodes a 2xx response
// into out (when non-nil).
func (c *Client) JSON(ctx context.Context, method, rawURL string, header http.Header, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		body = bytes.NewReader(buf)
	}
	h := header.Clone()
	if h == nil {
		h = http.Header{}
	}
	if in != nil {
		h.Set("Content-Type", "application/json")
	}
	h.Set("Accept", "application/json")
	return c.Do(ctx, method, rawURL, h, body, out)
}

// Do sends a request with an arbitrary body and decodes a JSON response.
func (c *Client) Do(ctx context.Context, method, rawURL string, header http.Header, body io.Reader, out any) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return errors.Wrapf(err, "%s: parse url", c.System)
	}
	ctx, span := c.tracer().Start(ctx, fmt.Sprintf("%s %s", c.System, method),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.host", u.Host),
			attribute.String("http.path", redactPath(u.Path)),
		),
	)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		span.RecordError(err)
		return errors.Wrapf(err, "%s: build request", c.System)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.client().Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return errors.Wrapf(err, "%s: %s", c.System, method)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		serr := &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(excerpt))}
		span.RecordError(serr)
		span.SetStatus(codes.Error, serr.Error())
		return errors.WithStack(serr)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		span.RecordError(err)
		return errors.Wrapf(err, "%s: decode response", c.System)
	}
	return nil
}

// Get downloads rawURL and returns the body, bounded by limit bytes.
func (c *Client) Get(ctx context.Context, rawURL string, limit int64) ([]byte, string, error) {
	ctx, span := c.tracer().Start(ctx, c.System+" download", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", errors.Wrap(err, "build download request")
	}
	resp, err := c.client().Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, "", errors.Wrap(err, "download")
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", errors.WithStack(&StatusError{Code: resp.StatusCode})
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, "", errors.Wrap(err, "read download")
	}
	if int64(len(data)) > limit {
		return nil, "", errors.Errorf("download exceeds %d bytes", limit)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func (c *Client) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) tracer() trace.Tracer {
	if c.Tracer != nil {
		return c.Tracer
	}
	return otel.Tracer("integrations/" + c.System)
}

// redactPath hides path segments that carry credentials (Green API puts the
// instance token in the path).
func redactPath(p string) string {
	parts := strings.Split(p, "/")
	for i, s := range parts {
		if len(s) >= 32 {
			parts[i] = "***"
		}
	}
	return strings.Join(parts, "/")
}
