// Package commerce is the REST client of the remote commerce API: cart,
// orders, charges and the card tokenization vault.
package commerce

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/kart-checkout/internal/domain/payment"
)

const maxResponseSize = 1 << 20

// Config locates the commerce API and the tokenization vault.
type Config struct {
	BaseURL   string
	VaultURL  string
	PublicKey string
	Timeout   time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the instrumented default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTelemetry instruments outgoing requests with the given providers.
func WithTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) Option {
	return func(c *Client) {
		c.http.Transport = otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithTracerProvider(tp),
			otelhttp.WithMeterProvider(mp),
		)
	}
}

// Client calls the commerce API on behalf of the buyer whose bearer token
// travels in the request context.
type Client struct {
	baseURL   string
	vaultURL  string
	publicKey string
	http      *http.Client
}

// NewClient creates a Client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("commerce base URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	c := &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		vaultURL:  strings.TrimRight(cfg.VaultURL, "/"),
		publicKey: cfg.PublicKey,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// APIError is a 4xx or 5xx answer of the commerce API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return fmt.Sprintf("commerce api: %s (status %d)", e.Code, e.Status)
	}
	return fmt.Sprintf("commerce api: status %d", e.Status)
}

type request struct {
	op     string
	method string
	url    string
	body   []byte
	auth   func(*http.Request)
}

// do sends req and hands the decoded response body to decode. Transport
// failures and 5xx answers become *payment.NetworkError; other non-2xx
// answers become *APIError.
func (c *Client) do(ctx context.Context, req request, decode func(d *jx.Decoder) error) error {
	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, req.url, body)
	if err != nil {
		return errors.Wrap(err, req.op)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.auth != nil {
		req.auth(httpReq)
	} else if token, ok := BearerFrom(ctx); ok {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return &payment.NetworkError{Op: req.op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return &payment.NetworkError{Op: req.op, Err: err}
	}

	if resp.StatusCode >= 400 {
		apiErr := decodeAPIError(resp.StatusCode, data)
		if resp.StatusCode >= 500 {
			return &payment.NetworkError{Op: req.op, Err: apiErr}
		}
		return apiErr
	}

	if decode == nil {
		return nil
	}
	if err := decode(jx.DecodeBytes(data)); err != nil {
		return &payment.IntegrationError{
			Missing: req.op + " response",
			Message: fmt.Sprintf("%s: unexpected response: %v", req.op, err),
		}
	}
	return nil
}

func decodeAPIError(status int, data []byte) *APIError {
	e := &APIError{Status: status}
	if len(data) == 0 {
		return e
	}
	_ = jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "code":
			v, err := optStr(d)
			e.Code = v
			return err
		case "message":
			v, err := optStr(d)
			e.Message = v
			return err
		default:
			return d.Skip()
		}
	})
	return e
}

// optStr reads a string that may be null.
func optStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}
