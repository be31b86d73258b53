package sbsig

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
	"time"
)

// Sign returns the lowercase hex HMAC-SHA256 of body followed by the
// decimal form of timestamp, keyed by the raw secret bytes. The result is
// always SignatureLength characters long.
func Sign(body []byte, timestamp int64, secret Secret) string {
	return hex.EncodeToString(computeHMAC(secret.b, body, timestamp))
}

func computeHMAC(key, body []byte, timestamp int64) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(body)
	h.Write(strconv.AppendInt(nil, timestamp, 10))

	return h.Sum(nil)
}

// Signer holds the credentials and protocol constants needed to sign
// requests. It is immutable after construction and safe for concurrent use.
type Signer struct {
	apiKey    string
	secret    Secret
	userAgent string
	now       func() time.Time
}

// SignerOption configures a Signer.
type SignerOption func(*Signer)

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(userAgent string) SignerOption {
	return func(s *Signer) {
		if userAgent != "" {
			s.userAgent = userAgent
		}
	}
}

// WithClock sets the time source used for request timestamps. When nil,
// time.Now is used.
func WithClock(now func() time.Time) SignerOption {
	return func(s *Signer) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSigner creates a Signer for the given credentials. The secret bytes
// are copied.
func NewSigner(creds Credentials, opts ...SignerOption) (*Signer, error) {
	if creds.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	if creds.Secret.IsZero() {
		return nil, ErrEmptySecret
	}

	s := &Signer{
		apiKey:    creds.APIKey,
		secret:    NewSecretBytes(creds.Secret.b),
		userAgent: DefaultUserAgent,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// APIKey returns the public key identifier.
func (s *Signer) APIKey() string { return s.apiKey }

// UserAgent returns the client identification string sent with requests.
func (s *Signer) UserAgent() string { return s.userAgent }

// Timestamp returns the current Unix time in seconds.
func (s *Signer) Timestamp() int64 { return s.now().Unix() }

// Sign signs body at the given timestamp with the signer's secret.
func (s *Signer) Sign(body []byte, timestamp int64) string {
	return Sign(body, timestamp, s.secret)
}

// Headers returns the complete header set for body signed at timestamp.
func (s *Signer) Headers(body []byte, timestamp int64) http.Header {
	h := make(http.Header, 5)
	s.setHeaders(h, body, timestamp)

	return h
}

func (s *Signer) setHeaders(h http.Header, body []byte, timestamp int64) {
	h.Set("Content-Type", ContentType)
	h.Set("User-Agent", s.userAgent)
	h.Set(HeaderAPIKey, s.apiKey)
	h.Set(HeaderTimestamp, strconv.FormatInt(timestamp, 10))
	h.Set(HeaderSignature, s.Sign(body, timestamp))
}

// SignRequest signs an HTTP request in-place. The timestamp is captured
// once and used for both the signature and HeaderTimestamp; it is returned
// so callers can log or assert on it. The body is read and replaced so the
// request can still be sent.
func SignRequest(r *http.Request, s *Signer) (int64, error) {
	if s == nil {
		return 0, ErrNoSigner
	}

	body, err := readAndRestoreBody(r)
	if err != nil {
		return 0, err
	}

	ts := s.Timestamp()
	s.setHeaders(r.Header, body, ts)

	return ts, nil
}

// readAndRestoreBody reads the entire request body and replaces it with a
// new reader so the body can be consumed again.
func readAndRestoreBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	r.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	r.ContentLength = int64(len(body))

	return body, nil
}
