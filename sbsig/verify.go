package sbsig

import (
	"crypto/hmac"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// KeyResolver returns the secret for apiKey. It reports false when the key
// is unknown or inactive.
type KeyResolver func(apiKey string) (Secret, bool)

// VerifyConfig configures request verification.
type VerifyConfig struct {
	// Resolver looks up the secret for the API key in HeaderAPIKey.
	// Required.
	Resolver KeyResolver

	// UserAgent is the only accepted client identification string.
	// Defaults to DefaultUserAgent.
	UserAgent string

	// MaxSkew is the allowed distance between the request timestamp and
	// the verifier clock, in either direction. Defaults to DefaultMaxSkew.
	MaxSkew time.Duration

	// Now is the verifier clock. Defaults to time.Now.
	Now func() time.Time
}

// VerifyRequest checks a signed request the way the server does: client
// identification, required headers, freshness, key lookup and finally the
// signature over the raw body. The first failing check is returned as a
// *VerifyError. The body is restored so handlers can read it afterwards.
func VerifyRequest(r *http.Request, cfg VerifyConfig) error {
	if cfg.Resolver == nil {
		return ErrNoResolver
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	maxSkew := cfg.MaxSkew
	if maxSkew <= 0 {
		maxSkew = DefaultMaxSkew
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	if r.Header.Get("User-Agent") != userAgent {
		return &VerifyError{
			Code:    CodeForbidden,
			Status:  http.StatusForbidden,
			Message: "Unauthorized client. Invalid User-Agent.",
		}
	}

	apiKey := r.Header.Get(HeaderAPIKey)
	rawTimestamp := r.Header.Get(HeaderTimestamp)
	signature := r.Header.Get(HeaderSignature)

	if apiKey == "" || rawTimestamp == "" || signature == "" {
		return &VerifyError{
			Code:    CodeMissingHeaders,
			Status:  http.StatusBadRequest,
			Message: "Required authentication headers are missing.",
		}
	}

	// An unparsable timestamp is treated as zero, which is always stale.
	timestamp, _ := strconv.ParseInt(rawTimestamp, 10, 64)

	skew := now().Sub(time.Unix(timestamp, 0))
	if skew < 0 {
		skew = -skew
	}

	if skew > maxSkew {
		return &VerifyError{
			Code:    CodeExpired,
			Status:  http.StatusUnauthorized,
			Message: fmt.Sprintf("Request expired. Timestamp difference exceeds %d seconds.", int64(maxSkew/time.Second)),
		}
	}

	secret, ok := cfg.Resolver(apiKey)
	if !ok || secret.IsZero() {
		return &VerifyError{
			Code:    CodeInvalidKey,
			Status:  http.StatusForbidden,
			Message: "Invalid API key. Key not found or inactive.",
		}
	}

	body, err := readAndRestoreBody(r)
	if err != nil {
		return err
	}

	expected := Sign(body, timestamp, secret)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return &VerifyError{
			Code:    CodeInvalidSignature,
			Status:  http.StatusForbidden,
			Message: "HMAC signature verification failed.",
		}
	}

	return nil
}
