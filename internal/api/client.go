package api

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

	"github.com/golang/glog"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// Client talks to the restaurant admin REST API. It is the single transport
// every resource client goes through: base URL, timeout, bearer token and the
// 401 interceptor live here and nowhere else.
type Client struct {
	baseURL        *url.URL
	http           *http.Client
	userAgent      string
	tokens         oauth2.TokenSource
	onUnauthorized func()
	limiter        *rate.Limiter
}

const (
	defaultBaseURL   = "http://localhost:8080"
	defaultUserAgent = "frontdesk/0.1"
	defaultTimeout   = 10 * time.Second
	apiPrefix        = "/api/v1"
	maxErrorBody     = 64 << 10
)

// Option customises a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithTokenSource supplies the bearer token attached to every request.
// A source returning an error or an empty token leaves the request anonymous.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithUnauthorizedHandler registers the callback run whenever the API answers
// 401 to a request authorized by the token source.
// It runs before the failing call returns to its caller.
func WithUnauthorizedHandler(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// WithRateLimit throttles outgoing requests to rps with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if strings.TrimSpace(ua) != "" {
			c.userAgent = ua
		}
	}
}

// NewClient builds a Client for the API served at baseURL (scheme optional).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: defaultTimeout},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the resolved API root including the version prefix.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Auth returns the /auth resource client.
func (c *Client) Auth() *AuthService { return &AuthService{c: c} }

// Profile returns the /profile resource client.
func (c *Client) Profile() *ProfileService { return &ProfileService{c: c} }

// Tables returns the /tables resource client.
func (c *Client) Tables() *TablesService { return &TablesService{c: c} }

// Menu returns the /menu resource client.
func (c *Client) Menu() *MenuService { return &MenuService{c: c} }

type request struct {
	method string
	path   string
	query  url.Values
	body   any
	// token, when set, is sent instead of the token source's value.
	token string
}

func (r request) op() string {
	return r.method + " " + r.path
}

func (c *Client) do(ctx context.Context, r request, dest any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &Error{Op: r.op(), Kind: KindTransport, Message: transportMessage, Err: err}
		}
	}

	reqURL := c.baseURL.JoinPath(r.path)
	if len(r.query) > 0 {
		reqURL.RawQuery = r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, reqURL.String(), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req, r.token)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		glog.V(1).Infof("[api] %s failed after %s (%s): %v", r.op(), time.Since(start), requestID, err)
		return &Error{Op: r.op(), Kind: KindTransport, Message: transportMessage, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	glog.V(2).Infof("[api] %s -> %d in %s (%s)", r.op(), resp.StatusCode, time.Since(start), requestID)

	if resp.StatusCode >= 400 {
		apiErr := newStatusError(r.op(), resp)
		// A rejected explicit token belongs to a session that already ended.
		if apiErr.Kind == KindUnauthenticated && r.token == "" && c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return apiErr
	}
	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return &Error{Op: r.op(), Kind: KindDecode, StatusCode: resp.StatusCode, Message: "unexpected response from server", Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) authorize(req *http.Request, explicit string) {
	if explicit != "" {
		(&oauth2.Token{AccessToken: explicit}).SetAuthHeader(req)
		return
	}
	if c.tokens == nil {
		return
	}
	tok, err := c.tokens.Token()
	if err != nil || tok == nil || tok.AccessToken == "" {
		return
	}
	tok.SetAuthHeader(req)
}

// getData performs r and unwraps the standard {success, data, message} envelope.
func getData[T any](ctx context.Context, c *Client, r request) (T, error) {
	var env Envelope[T]
	if err := c.do(ctx, r, &env); err != nil {
		var zero T
		return zero, err
	}
	return env.Data, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api base url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse api base url %q: missing host", raw)
	}
	u.Path = apiPrefix
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
