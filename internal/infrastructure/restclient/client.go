// Package restclient implements the gateway ports over the CRM JSON API.
package restclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"github.com/etiya/crm-client/internal/core/domain"
	"github.com/etiya/crm-client/internal/core/ports"
	"github.com/etiya/crm-client/internal/metrics"
)

const (
	defaultTimeout = 10 * time.Second
	defaultRetries = 2
)

// Options configures the HTTP transport.
type Options struct {
	BaseURL string
	Timeout time.Duration
	// Retries applies to idempotent requests only; negative disables them.
	Retries    int
	RetryWait  time.Duration
	HTTPClient *http.Client
}

// Client is the transport shared by the auth, customer and task gateways.
type Client struct {
	base   *url.URL
	http   *retryablehttp.Client
	tokens ports.TokenStore
	log    zerolog.Logger
}

// New builds a client for opts.BaseURL. Requests outside the auth routes
// carry the bearer token currently held by tokens.
func New(opts Options, tokens ports.TokenStore, log zerolog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("restclient: invalid base url %q", opts.BaseURL)
	}

	rc := retryablehttp.NewClient()
	if opts.HTTPClient != nil {
		rc.HTTPClient = opts.HTTPClient
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	rc.HTTPClient.Timeout = timeout
	switch {
	case opts.Retries < 0:
		rc.RetryMax = 0
	case opts.Retries == 0:
		rc.RetryMax = defaultRetries
	default:
		rc.RetryMax = opts.Retries
	}
	if opts.RetryWait > 0 {
		rc.RetryWaitMin = opts.RetryWait
		rc.RetryWaitMax = 4 * opts.RetryWait
	}
	log = log.With().Str("component", "restclient").Logger()
	rc.Logger = leveledLogger{log: log}

	return &Client{base: base, http: rc, tokens: tokens, log: log}, nil
}

// Auth returns the authentication gateway.
func (c *Client) Auth() *AuthGateway { return &AuthGateway{c: c} }

// Customers returns the customer gateway.
func (c *Client) Customers() *CustomerGateway { return &CustomerGateway{c: c} }

// Tasks returns the task gateway.
func (c *Client) Tasks() *TaskGateway { return &TaskGateway{c: c} }

type request struct {
	method string
	route  string // path template used for metrics and error mapping
	path   string
	query  url.Values
	body   any
	out    any
	token  string
}

func (c *Client) storedToken(ctx context.Context) (string, error) {
	if c.tokens == nil {
		return "", nil
	}
	return c.tokens.Load(ctx)
}

func (c *Client) do(ctx context.Context, r request) error {
	u := c.base.JoinPath(r.path)
	if len(r.query) > 0 {
		u.RawQuery = r.query.Encode()
	}

	var payload []byte
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("%s %s: encode: %w", r.method, r.route, err)
		}
		payload = b
	}

	start := time.Now()
	resp, err := c.send(ctx, r.method, u.String(), payload, r.token)
	code := "error"
	if resp != nil {
		code = strconv.Itoa(resp.StatusCode)
	}
	metrics.GatewayRequestDuration.WithLabelValues(r.method, r.route, code).Observe(time.Since(start).Seconds())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s %s: %v", domain.ErrUnavailable, r.method, r.route, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if r.out == nil || resp.StatusCode == http.StatusNoContent {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(r.out); err != nil {
			return fmt.Errorf("%w: %s %s: decode response: %v", domain.ErrUnavailable, r.method, r.route, err)
		}
		return nil
	}

	return statusError(r.route, resp)
}

// send retries idempotent methods through retryablehttp; other methods get a
// single attempt so a create is never submitted twice.
func (c *Client) send(ctx context.Context, method, target string, payload []byte, token string) (*http.Response, error) {
	header := http.Header{}
	header.Set("Accept", "application/json")
	if payload != nil {
		header.Set("Content-Type", "application/json")
	}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	if idempotent(method) {
		var body any
		if payload != nil {
			body = payload
		}
		req, err := retryablehttp.NewRequestWithContext(ctx, method, target, body)
		if err != nil {
			return nil, err
		}
		req.Header = header
		return c.http.Do(req)
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header = header
	return c.http.HTTPClient.Do(req)
}

func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

type errorEnvelope struct {
	Error string `json:"error"`
}

// statusError maps a non-2xx response onto the domain error taxonomy.
func statusError(route string, resp *http.Response) error {
	var env errorEnvelope
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(body, &env) != nil || env.Error == "" {
		env.Error = http.StatusText(resp.StatusCode)
	}

	var sentinel error
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		if isCredentialRoute(route) {
			sentinel = domain.ErrInvalidCredentials
		} else {
			sentinel = domain.ErrUnauthorized
		}
	case http.StatusForbidden:
		sentinel = domain.ErrUnauthorized
	case http.StatusNotFound:
		sentinel = domain.ErrNotFound
	case http.StatusConflict:
		if route == routeRegister {
			sentinel = domain.ErrUserExists
		} else {
			sentinel = domain.ErrValidationFailed
		}
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		if route == routeLogin {
			sentinel = domain.ErrInvalidCredentials
		} else {
			sentinel = domain.ErrValidationFailed
		}
	default:
		sentinel = domain.ErrUnavailable
	}
	return wrapEnvelope(sentinel, env.Error)
}

// wrapEnvelope attaches the server's message to sentinel, dropping a
// leading copy of the sentinel text the server already included.
func wrapEnvelope(sentinel error, msg string) error {
	msg = strings.TrimSpace(msg)
	if rest, ok := strings.CutPrefix(msg, sentinel.Error()); ok {
		msg = strings.TrimSpace(strings.TrimPrefix(rest, ":"))
	}
	if msg == "" {
		return sentinel
	}
	return fmt.Errorf("%w: %s", sentinel, msg)
}

func isCredentialRoute(route string) bool {
	return route == routeLogin || route == routeChangePassword
}

// leveledLogger adapts zerolog to retryablehttp.LeveledLogger.
type leveledLogger struct {
	log zerolog.Logger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.log.Error().Fields(kv).Msg(msg) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.log.Warn().Fields(kv).Msg(msg) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.log.Debug().Fields(kv).Msg(msg) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.log.Trace().Fields(kv).Msg(msg) }

var _ retryablehttp.LeveledLogger = leveledLogger{}
