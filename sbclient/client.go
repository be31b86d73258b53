package sbclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vitalvas/smartbridge/sbsig"
)

// DefaultTimeout bounds a single CreateShortLink call.
const DefaultTimeout = 30 * time.Second

// LinksPath is the link creation route relative to the site root.
const LinksPath = "/wp-json/sb/v1/links"

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 1 << 20

// Doer sends an HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config configures a Client.
type Config struct {
	// Endpoint is the absolute link creation URL. See EndpointFromSite.
	Endpoint string

	// Credentials authenticate every request.
	Credentials sbsig.Credentials

	// Timeout bounds each call, including reading the response.
	// Defaults to DefaultTimeout.
	Timeout time.Duration

	// UserAgent overrides sbsig.DefaultUserAgent.
	UserAgent string
}

// EndpointFromSite returns the link creation URL for a site root such as
// "https://example.com".
func EndpointFromSite(site string) string {
	return strings.TrimRight(site, "/") + LinksPath
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the transport used to send requests.
func WithHTTPClient(d Doer) Option {
	return func(c *Client) {
		if d != nil {
			c.http = d
		}
	}
}

// WithLogger sets the logger. Secrets are never logged; API keys are
// masked with sbsig.MaskKey.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records request outcomes in m.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithClock sets the time source used for request timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// WithRequestID sets the generator for the X-Request-ID header. Passing
// nil disables the header.
func WithRequestID(fn func() string) Option {
	return func(c *Client) {
		c.requestID = fn
	}
}

func newRequestID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Client creates short links. It holds no mutable state and is safe for
// concurrent use; every call is signed with its own timestamp.
type Client struct {
	endpoint  string
	signer    *sbsig.Signer
	timeout   time.Duration
	http      Doer
	logger    *zap.Logger
	metrics   *Metrics
	now       func() time.Time
	requestID func() string
}

// New creates a Client. It fails on an invalid endpoint or incomplete
// credentials.
func New(cfg Config, opts ...Option) (*Client, error) {
	u, err := url.Parse(cfg.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEndpoint, cfg.Endpoint)
	}

	c := &Client{
		endpoint:  cfg.Endpoint,
		timeout:   cfg.Timeout,
		http:      &http.Client{},
		logger:    zap.NewNop(),
		requestID: newRequestID,
	}

	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}

	for _, opt := range opts {
		opt(c)
	}

	signer, err := sbsig.NewSigner(cfg.Credentials, sbsig.WithUserAgent(cfg.UserAgent), sbsig.WithClock(c.now))
	if err != nil {
		return nil, err
	}

	c.signer = signer
	c.logger = c.logger.With(
		zap.String("endpoint", c.endpoint),
		zap.String("api_key", sbsig.MaskKey(cfg.Credentials.APIKey)),
	)

	return c, nil
}

// Endpoint returns the link creation URL.
func (c *Client) Endpoint() string { return c.endpoint }

// CreateShortLink builds, signs and sends one link creation request. It
// makes exactly one network attempt.
//
// Errors are one of *ValidationError, *TransportError or *APIError; use
// KindOf to classify them.
func (c *Client) CreateShortLink(ctx context.Context, req LinkRequest) (*ShortLink, error) {
	start := time.Now()

	link, err := c.createShortLink(ctx, req)
	c.metrics.observe(outcome(err), time.Since(start))

	return link, err
}

func (c *Client) createShortLink(ctx context.Context, req LinkRequest) (*ShortLink, error) {
	body, err := req.Canonical()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Reason: ReasonFailed, Err: err}
	}

	ts, err := sbsig.SignRequest(httpReq, c.signer)
	if err != nil {
		return nil, &TransportError{Reason: ReasonFailed, Err: err}
	}

	log := c.logger.With(zap.Int64("timestamp", ts))

	if c.requestID != nil {
		if id := c.requestID(); id != "" {
			httpReq.Header.Set(sbsig.HeaderRequestID, id)
			log = log.With(zap.String("request_id", id))
		}
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		terr := newTransportError(ctx, err)
		log.Debug("request failed", zap.String("reason", terr.Reason), zap.Error(err))

		return nil, terr
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		terr := newTransportError(ctx, err)
		log.Debug("reading response failed", zap.String("reason", terr.Reason), zap.Error(err))

		return nil, terr
	}

	link, err := parseResponse(resp.StatusCode, raw)
	if err != nil {
		c.logFailure(log, err)
		return nil, err
	}

	log.Debug("short link created", zap.String("slug", link.Slug), zap.String("platform", link.Platform))

	return link, nil
}

func (c *Client) logFailure(log *zap.Logger, err error) {
	aerr, ok := err.(*APIError)
	if !ok {
		return
	}

	fields := []zap.Field{
		zap.String("code", aerr.Code),
		zap.Int("status", aerr.HTTPStatus),
		zap.Stringer("kind", aerr.Kind()),
	}

	if aerr.StatusMismatch {
		c.metrics.statusMismatch()
		log.Warn("response status disagrees with body",
			append(fields, zap.Int("declared_status", aerr.DeclaredStatus))...)

		return
	}

	log.Debug("request rejected", fields...)
}
