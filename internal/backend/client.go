package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/toko-sales/internal/common"
	"github.com/noah-isme/toko-sales/internal/obs"
	"github.com/noah-isme/toko-sales/internal/resilience"
)

const maxResponseBytes = 4 << 20

// Options configures a Client.
type Options struct {
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int
	BaseBackoff time.Duration
	Breaker     *resilience.Breaker
	Transport   http.RoundTripper
	Tokens      TokenCheck
	Logger      zerolog.Logger
}

// Client talks to the storefront backend REST API.
type Client struct {
	base   *url.URL
	http   resilience.HTTPClient
	tokens TokenCheck
	log    zerolog.Logger
}

// New constructs a Client. The transport is instrumented with otelhttp.
func New(opts Options) (*Client, error) {
	raw := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if raw == "" {
		return nil, errors.New("backend: base url is required")
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	return &Client{
		base: base,
		http: resilience.HTTPClient{
			Client:      &http.Client{Transport: otelhttp.NewTransport(transport)},
			Breaker:     opts.Breaker,
			BaseBackoff: opts.BaseBackoff,
			MaxAttempts: attempts,
			Jitter:      0.2,
			Timeout:     timeout,
		},
		tokens: opts.Tokens,
		log:    opts.Logger.With().Str("component", "backend").Logger(),
	}, nil
}

// Ping checks that the backend answers at all. Any HTTP response counts.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil {
		return ErrNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.base.String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// call performs one backend operation and returns the unwrapped data member.
func (c *Client) call(ctx context.Context, op, method, path string, query url.Values, body any) (json.RawMessage, error) {
	if c == nil {
		return nil, ErrNotConfigured
	}
	token := Token(ctx)
	if err := c.tokens.Check(token); err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if !resilience.Idempotent(method) {
		key, ok := common.IdempotencyKey(ctx)
		if !ok {
			key = uuid.NewString()
		}
		req.Header.Set("Idempotency-Key", key)
	}

	start := time.Now()
	data, err := c.roundTrip(ctx, op, req)
	result := "ok"
	if err != nil {
		result = "error"
	}
	obs.ObserveBackend(op, result, time.Since(start))
	return data, err
}

func (c *Client) roundTrip(ctx context.Context, op string, req *http.Request) (json.RawMessage, error) {
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		c.log.Warn().Err(err).Str("op", op).Msg("backend call failed")
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &NetworkError{Op: op, Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn().Str("op", op).Int("status", resp.StatusCode).Msg("backend rejected call")
		return nil, &NetworkError{Op: op, Status: resp.StatusCode, Message: errorMessage(raw)}
	}
	var env envelope
	if json.Unmarshal(raw, &env) == nil && env.Success != nil && !*env.Success {
		return nil, &NetworkError{Op: op, Status: http.StatusUnprocessableEntity, Message: errorMessage(raw)}
	}
	return unwrap(raw), nil
}
