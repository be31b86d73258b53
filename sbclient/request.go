package sbclient

import (
	"bytes"
	"encoding/json"
	"net"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

var slugPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// LinkRequest is the logical input for creating a short link. Empty
// optional fields are omitted from the request body.
type LinkRequest struct {
	TargetURL      string
	Slug           string
	LoadingMessage string
}

// canonicalBody fixes the wire field order: target_url, slug,
// loading_message. encoding/json emits struct fields in declaration order.
type canonicalBody struct {
	TargetURL      string `json:"target_url"`
	Slug           string `json:"slug,omitempty"`
	LoadingMessage string `json:"loading_message,omitempty"`
}

// Build validates the arguments and returns the canonical request body.
func Build(targetURL, slug, loadingMessage string) ([]byte, error) {
	return LinkRequest{
		TargetURL:      targetURL,
		Slug:           slug,
		LoadingMessage: loadingMessage,
	}.Canonical()
}

// Validate checks the request locally, before any network activity.
func (r LinkRequest) Validate() error {
	if err := validateTargetURL(r.TargetURL); err != nil {
		return err
	}

	if r.Slug != "" && !slugPattern.MatchString(r.Slug) {
		return &ValidationError{
			Field:  "slug",
			Reason: "may only contain letters, digits, hyphens and underscores",
		}
	}

	if !utf8.ValidString(r.LoadingMessage) {
		return &ValidationError{Field: "loading_message", Reason: "must be valid UTF-8"}
	}

	return nil
}

// Canonical returns the exact bytes that are signed and sent: compact
// JSON, fixed key order, UTF-8, no HTML escaping and no trailing newline.
// Identical requests always produce identical bytes.
func (r LinkRequest) Canonical() ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(canonicalBody(r)); err != nil {
		return nil, err
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func validateTargetURL(raw string) error {
	if raw == "" {
		return &ValidationError{Field: "target_url", Reason: "must not be empty"}
	}

	if !utf8.ValidString(raw) {
		return &ValidationError{Field: "target_url", Reason: "must be valid UTF-8"}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return &ValidationError{Field: "target_url", Reason: "is not a valid URL", Err: err}
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	case "":
		return &ValidationError{Field: "target_url", Reason: "must be an absolute URL"}
	default:
		return &ValidationError{Field: "target_url", Reason: "must use http or https"}
	}

	host := u.Hostname()
	if host == "" {
		return &ValidationError{Field: "target_url", Reason: "must include a host"}
	}

	if net.ParseIP(host) != nil {
		return nil
	}

	if _, err := idna.Lookup.ToASCII(host); err != nil {
		return &ValidationError{Field: "target_url", Reason: "has an invalid host", Err: err}
	}

	return nil
}
