// Package connection executes HTTP requests against a remote REST service and
// maps response codes to errors.
package connection

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/conduit-lang/restorm/internal/cache"
	"github.com/conduit-lang/restorm/internal/format"
	"github.com/conduit-lang/restorm/internal/logging"
)

// RequestIDHeader carries a fresh uuid on every request
const RequestIDHeader = "X-Request-Id"

// Response is a successful (2xx or non-redirect 3xx) response
type Response struct {
	Code   int
	Header http.Header
	Body   []byte
}

// Connection talks to a single site
type Connection struct {
	site       *url.URL
	format     format.Format
	httpClient *http.Client
	timeout    time.Duration

	user     string
	password string
	bearer   string
	jwt      *jwtSigner

	headers http.Header
	logger  *zap.Logger

	cache    cache.Cache
	cacheTTL time.Duration
	keys     *cache.KeyGenerator

	retries int
	backoff time.Duration

	limiter *rate.Limiter
}

// Option configures a Connection
type Option func(*Connection)

// WithFormat sets the codec whose mime type is negotiated (JSON by default)
func WithFormat(f format.Format) Option {
	return func(c *Connection) { c.format = f }
}

// WithTimeout bounds every request
func WithTimeout(d time.Duration) Option {
	return func(c *Connection) { c.timeout = d }
}

// WithBasicAuth sends HTTP basic credentials
func WithBasicAuth(user, password string) Option {
	return func(c *Connection) {
		c.user = user
		c.password = password
	}
}

// WithBearerToken sends a static bearer token
func WithBearerToken(token string) Option {
	return func(c *Connection) { c.bearer = token }
}

// WithJWT signs a short-lived HS256 token for subject on every request
func WithJWT(secret, subject string, ttl time.Duration) Option {
	return func(c *Connection) { c.jwt = newJWTSigner(secret, subject, ttl) }
}

// WithHeader adds a default header sent with every request
func WithHeader(key, value string) Option {
	return func(c *Connection) { c.headers.Set(key, value) }
}

// WithLogger sets the request logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Connection) {
		c.logger = logging.OrNop(logger)
	}
}

// WithCache caches GET responses for ttl; writes evict the cached reads of
// the resource they touch.
func WithCache(store cache.Cache, ttl time.Duration) Option {
	return func(c *Connection) {
		c.cache = store
		c.cacheTTL = ttl
	}
}

// WithHTTPClient replaces the underlying client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Connection) { c.httpClient = client }
}

// WithRetry retries GET and HEAD requests up to n more times on transport
// failures and 5xx responses, doubling backoff after each attempt.
func WithRetry(n int, backoff time.Duration) Option {
	return func(c *Connection) {
		c.retries = n
		c.backoff = backoff
	}
}

// WithRateLimit spaces outgoing requests so that at most requests are sent
// per interval, allowing bursts of up to requests. Cache hits are not counted.
func WithRateLimit(requests int, per time.Duration) Option {
	return func(c *Connection) {
		if requests <= 0 || per <= 0 {
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(per/time.Duration(requests)), requests)
	}
}

// New creates a connection to site. Credentials embedded in the site URL are
// used for basic auth unless overridden by an option.
func New(site string, opts ...Option) (*Connection, error) {
	if site == "" {
		return nil, ErrMissingSite
	}
	u, err := url.Parse(site)
	if err != nil {
		return nil, fmt.Errorf("invalid site %q: %w", site, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid site %q: scheme and host are required", site)
	}

	c := &Connection{
		site:       u,
		format:     format.JSON,
		httpClient: &http.Client{},
		headers:    make(http.Header),
		logger:     zap.NewNop(),
		keys:       cache.DefaultKeyGenerator(),
	}
	if u.User != nil {
		c.user = u.User.Username()
		c.password, _ = u.User.Password()
		stripped := *u
		stripped.User = nil
		c.site = &stripped
	}

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Site returns the site URL without credentials
func (c *Connection) Site() *url.URL {
	u := *c.site
	return &u
}

// Format returns the negotiated format
func (c *Connection) Format() format.Format {
	return c.format
}

// Get executes a GET request
func (c *Connection) Get(ctx context.Context, path string, header http.Header) (*Response, error) {
	return c.Request(ctx, http.MethodGet, path, nil, header)
}

// Delete executes a DELETE request
func (c *Connection) Delete(ctx context.Context, path string, header http.Header) (*Response, error) {
	return c.Request(ctx, http.MethodDelete, path, nil, header)
}

// Head executes a HEAD request
func (c *Connection) Head(ctx context.Context, path string, header http.Header) (*Response, error) {
	return c.Request(ctx, http.MethodHead, path, nil, header)
}

// Post executes a POST request
func (c *Connection) Post(ctx context.Context, path string, body []byte, header http.Header) (*Response, error) {
	return c.Request(ctx, http.MethodPost, path, body, header)
}

// Put executes a PUT request
func (c *Connection) Put(ctx context.Context, path string, body []byte, header http.Header) (*Response, error) {
	return c.Request(ctx, http.MethodPut, path, body, header)
}

// Patch executes a PATCH request
func (c *Connection) Patch(ctx context.Context, path string, body []byte, header http.Header) (*Response, error) {
	return c.Request(ctx, http.MethodPatch, path, body, header)
}

// Request executes method against path, which is resolved relative to the site.
// Non-success status codes are returned as *Error.
func (c *Connection) Request(ctx context.Context, method, path string, body []byte, header http.Header) (*Response, error) {
	headers, err := c.buildHeaders(method, header)
	if err != nil {
		return nil, err
	}

	var cacheKey string
	if method == http.MethodGet && c.cache != nil {
		cacheKey = c.keys.GenerateKey(method, path, headers)
		if resp, ok := c.cached(ctx, cacheKey); ok {
			c.logger.Debug("request served from cache",
				zap.String("method", method),
				zap.String("path", path),
				zap.Int("status", resp.Code),
			)
			return resp, nil
		}
	}

	resp, err := c.requestWithRetry(ctx, method, path, body, headers)
	if err != nil {
		return nil, err
	}

	if cacheKey != "" {
		c.store(ctx, cacheKey, resp)
	}
	if c.cache != nil && isWrite(method) {
		c.evict(ctx, method, path)
	}
	return resp, nil
}

func (c *Connection) requestWithRetry(ctx context.Context, method, path string, body []byte, headers http.Header) (*Response, error) {
	attempts := 1
	if method == http.MethodGet || method == http.MethodHead {
		attempts += c.retries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			backoff := c.backoff * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			headers.Set(RequestIDHeader, uuid.NewString())
		}

		resp, err := c.do(ctx, method, path, body, headers)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil || !retryable(err) {
			break
		}
	}
	return nil, lastErr
}

func retryable(err error) bool {
	var respErr *Error
	if errors.As(err, &respErr) {
		return errors.Is(respErr, ErrServerError)
	}
	return true
}

func (c *Connection) do(ctx context.Context, method, path string, body []byte, headers http.Header) (*Response, error) {
	target, err := c.resolve(path)
	if err != nil {
		return nil, err
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s %s: rate limit: %w", method, path, err)
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header = headers.Clone()

	start := time.Now()
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%s %s: %w: %w", method, path, ErrTimeout, err)
		}
		return nil, fmt.Errorf("%s %s: request failed: %w", method, path, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", httpResp.StatusCode),
		zap.Duration("duration", time.Since(start)),
		zap.String("request_id", headers.Get(RequestIDHeader)),
	)

	if classify(httpResp.StatusCode) != nil {
		return nil, newError(httpResp.StatusCode, method, path, respBody, httpResp.Header)
	}
	return &Response{Code: httpResp.StatusCode, Header: httpResp.Header, Body: respBody}, nil
}

func (c *Connection) resolve(path string) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("invalid path %q: %w", path, err)
	}
	return c.site.ResolveReference(ref).String(), nil
}

// buildHeaders layers auth, defaults, the format header, a request id and
// finally the call-site headers.
func (c *Connection) buildHeaders(method string, header http.Header) (http.Header, error) {
	h := make(http.Header)

	switch {
	case c.user != "" || c.password != "":
		creds := base64.StdEncoding.EncodeToString([]byte(c.user + ":" + c.password))
		h.Set("Authorization", "Basic "+creds)
	case c.bearer != "":
		h.Set("Authorization", "Bearer "+c.bearer)
	case c.jwt != nil:
		token, err := c.jwt.sign(time.Now())
		if err != nil {
			return nil, fmt.Errorf("failed to sign token: %w", err)
		}
		h.Set("Authorization", "Bearer "+token)
	}

	for key, values := range c.headers {
		h[key] = append([]string(nil), values...)
	}

	if isWrite(method) && method != http.MethodDelete {
		h.Set("Content-Type", c.format.MimeType())
	} else {
		h.Set("Accept", c.format.MimeType())
	}

	h.Set(RequestIDHeader, uuid.NewString())

	for key, values := range header {
		h[http.CanonicalHeaderKey(key)] = append([]string(nil), values...)
	}
	return h, nil
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
