package sbsig

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

const redacted = "[REDACTED]"

// maskedKeyPrefix is the number of API key characters kept by MaskKey.
const maskedKeyPrefix = 8

// Secret holds shared key material. It can be passed to Sign and NewSigner
// but renders as "[REDACTED]" when formatted or marshaled.
type Secret struct {
	b []byte
}

// NewSecret wraps the UTF-8 bytes of s. The bytes are used as the HMAC key
// as-is: they are not trimmed, hex-decoded or otherwise normalized.
func NewSecret(s string) Secret {
	return Secret{b: []byte(s)}
}

// NewSecretBytes wraps a copy of b.
func NewSecretBytes(b []byte) Secret {
	return Secret{b: bytes.Clone(b)}
}

// Len returns the key length in bytes.
func (s Secret) Len() int { return len(s.b) }

// IsZero reports whether the secret holds no key material.
func (s Secret) IsZero() bool { return len(s.b) == 0 }

// Equal reports whether both secrets hold the same key material.
func (s Secret) Equal(other Secret) bool { return bytes.Equal(s.b, other.b) }

func (s Secret) String() string   { return redacted }
func (s Secret) GoString() string { return "sbsig.Secret{" + redacted + "}" }

// Format implements fmt.Formatter so that no verb, including %x and %#v,
// can reach the key bytes.
func (s Secret) Format(f fmt.State, verb rune) {
	if verb == 'v' && f.Flag('#') {
		io.WriteString(f, s.GoString())
		return
	}

	io.WriteString(f, redacted)
}

func (s Secret) MarshalJSON() ([]byte, error) { return json.Marshal(redacted) }
func (s Secret) MarshalText() ([]byte, error) { return []byte(redacted), nil }

// Credentials identify a client to the server. APIKey is sent in clear in
// HeaderAPIKey; Secret never leaves the process.
type Credentials struct {
	APIKey string `json:"api_key"`
	Secret Secret `json:"secret"`
}

// MaskKey shortens an API key for diagnostics, keeping only its prefix.
func MaskKey(apiKey string) string {
	if len(apiKey) <= maskedKeyPrefix {
		return "***"
	}

	return apiKey[:maskedKeyPrefix] + "***"
}
