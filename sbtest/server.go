// Package sbtest provides an in-process Smart Bridge server for tests. It
// enforces the same authentication checks, validation rules and error
// bodies as the production link creation endpoint.
package sbtest

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jaevor/go-nanoid"
	"golang.org/x/net/publicsuffix"

	"github.com/vitalvas/smartbridge/sbsig"
)

// LinksPath is the link creation route.
const LinksPath = "/wp-json/sb/v1/links"

const (
	base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	slugLength     = 6
	slugRetries    = 3
)

var slugPattern = regexp.MustCompile(`^[a-zA-Z0-9\-_]+$`)

// Link is a stored short link.
type Link struct {
	Slug           string
	TargetURL      string
	LoadingMessage string
	Platform       string
	CreatedAt      time.Time
}

// Request is a request as received, before verification.
type Request struct {
	Header http.Header
	Body   []byte
}

// Server is a test server for the link creation API.
type Server struct {
	*httptest.Server

	now       func() time.Time
	userAgent string
	generate  func() string

	mu       sync.Mutex
	keys     map[string]sbsig.Secret
	links    map[string]Link
	received []Request
}

// Option configures a Server.
type Option func(*Server)

// WithKey registers an active API key.
func WithKey(apiKey, secret string) Option {
	return func(s *Server) {
		s.keys[apiKey] = sbsig.NewSecret(secret)
	}
}

// WithClock sets the server clock used for freshness checks and
// created_at.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// WithUserAgent sets the accepted client identification string.
func WithUserAgent(userAgent string) Option {
	return func(s *Server) {
		s.userAgent = userAgent
	}
}

// WithSlugGenerator replaces the random base62 slug generator.
func WithSlugGenerator(fn func() string) Option {
	return func(s *Server) {
		s.generate = fn
	}
}

// NewServer starts a Server. Callers must Close it.
func NewServer(opts ...Option) *Server {
	generate, err := nanoid.CustomASCII(base62Alphabet, slugLength)
	if err != nil {
		panic(err)
	}

	s := &Server{
		now:       time.Now,
		userAgent: sbsig.DefaultUserAgent,
		generate:  generate,
		keys:      make(map[string]sbsig.Secret),
		links:     make(map[string]Link),
	}

	for _, opt := range opts {
		opt(s)
	}

	verify, err := sbsig.Middleware(sbsig.MiddlewareConfig{
		Verify: sbsig.VerifyConfig{
			Resolver:  s.resolve,
			UserAgent: s.userAgent,
			Now:       s.now,
		},
	})
	if err != nil {
		panic(err)
	}

	r := chi.NewRouter()
	r.Use(s.record)
	r.With(verify).Post(LinksPath, s.createLink)

	s.Server = httptest.NewServer(r)

	return s
}

// Endpoint returns the absolute link creation URL.
func (s *Server) Endpoint() string {
	return s.URL + LinksPath
}

// Seed stores a link directly, bypassing the API.
func (s *Server) Seed(slug, targetURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.links[slug] = Link{
		Slug:      slug,
		TargetURL: targetURL,
		Platform:  DetectPlatform(targetURL),
		CreatedAt: s.now(),
	}
}

// Link returns the stored link for slug.
func (s *Server) Link(slug string) (Link, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.links[slug]

	return link, ok
}

// Received returns every request seen so far, in arrival order.
func (s *Server) Received() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Request, len(s.received))
	copy(out, s.received)

	return out
}

func (s *Server) resolve(apiKey string) (sbsig.Secret, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	secret, ok := s.keys[apiKey]

	return secret, ok
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			sbsig.WriteError(w, http.StatusBadRequest, "invalid_body", "Request body could not be read.")
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))

		s.mu.Lock()
		s.received = append(s.received, Request{Header: r.Header.Clone(), Body: body})
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

type createLinkRequest struct {
	TargetURL      string `json:"target_url"`
	Slug           string `json:"slug"`
	LoadingMessage string `json:"loading_message"`
}

type createLinkResponse struct {
	Success   bool   `json:"success"`
	ShortLink string `json:"short_link"`
	Slug      string `json:"slug"`
	TargetURL string `json:"target_url"`
	Platform  string `json:"platform"`
	CreatedAt string `json:"created_at"`
}

func (s *Server) createLink(w http.ResponseWriter, r *http.Request) {
	var req createLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		req = createLinkRequest{}
	}

	if !validURL(req.TargetURL) {
		sbsig.WriteError(w, http.StatusBadRequest, "invalid_url",
			"Invalid target URL format. Must start with http:// or https://")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	slug := req.Slug
	if slug != "" {
		if !slugPattern.MatchString(slug) {
			sbsig.WriteError(w, http.StatusBadRequest, "invalid_slug",
				"Slug can only contain alphanumeric characters, hyphens, and underscores.")
			return
		}

		if _, ok := s.links[slug]; ok {
			sbsig.WriteError(w, http.StatusConflict, "conflict",
				"Slug already exists. Please choose a different one.")
			return
		}
	} else {
		slug = s.uniqueSlug()
		if slug == "" {
			sbsig.WriteError(w, http.StatusInternalServerError, "generation_failed",
				"Failed to generate unique slug after 3 retries.")
			return
		}
	}

	link := Link{
		Slug:           slug,
		TargetURL:      req.TargetURL,
		LoadingMessage: req.LoadingMessage,
		Platform:       DetectPlatform(req.TargetURL),
		CreatedAt:      s.now(),
	}
	s.links[slug] = link

	responseJSON(w, http.StatusOK, createLinkResponse{
		Success:   true,
		ShortLink: s.URL + "/go/" + slug,
		Slug:      slug,
		TargetURL: link.TargetURL,
		Platform:  link.Platform,
		CreatedAt: link.CreatedAt.Format(time.RFC3339),
	})
}

// uniqueSlug must be called with s.mu held. It returns "" when every
// attempt collides.
func (s *Server) uniqueSlug() string {
	for range slugRetries {
		slug := s.generate()
		if _, ok := s.links[slug]; !ok {
			return slug
		}
	}

	return ""
}

func validURL(raw string) bool {
	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return false
	}

	u, err := url.Parse(raw)

	return err == nil && u.Host != ""
}

// DetectPlatform returns the registrable domain of the target host, such
// as "coupang.com" for "https://link.coupang.com/a/x", or "Unknown" when
// the URL has no host. IP literals and single-label hosts are returned
// as is.
func DetectPlatform(targetURL string) string {
	u, err := url.Parse(targetURL)
	if err != nil || u.Hostname() == "" {
		return "Unknown"
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if net.ParseIP(host) != nil {
		return host
	}

	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}

	return domain
}

// responseJSON encodes v as JSON and writes it with the given status code.
// If encoding fails, an HTTP 500 Internal Server Error is written instead.
func responseJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", sbsig.ContentType)
	w.WriteHeader(code)
	w.Write(buf.Bytes())
}
