package sbsig

import "errors"

// Signing errors.
var (
	// ErrNoSigner is returned when SignRequest is called with a nil Signer.
	ErrNoSigner = errors.New("sbsig: signer must not be nil")

	// ErrEmptySecret is returned when credentials carry a zero-length
	// secret key.
	ErrEmptySecret = errors.New("sbsig: secret key must not be empty")

	// ErrEmptyAPIKey is returned when credentials carry an empty API key.
	ErrEmptyAPIKey = errors.New("sbsig: api key must not be empty")
)

// Verification errors.
var (
	// ErrNoResolver is returned when VerifyConfig has no KeyResolver
	// configured.
	ErrNoResolver = errors.New("sbsig: key resolver must not be nil")
)

// Verification failure codes as reported by the server.
const (
	CodeForbidden        = "forbidden"
	CodeMissingHeaders   = "missing_headers"
	CodeExpired          = "expired"
	CodeInvalidKey       = "invalid_key"
	CodeInvalidSignature = "invalid_signature"
)

// VerifyError describes why a request failed verification, using the
// code, HTTP status and message the server reports.
type VerifyError struct {
	Code    string
	Status  int
	Message string
}

func (e *VerifyError) Error() string {
	return "sbsig: " + e.Code + ": " + e.Message
}
