package sbclient

import (
	"context"
	"errors"
	"net"
	"strconv"

	"github.com/vitalvas/smartbridge/sbsig"
)

// Error codes reported by the server, plus the client-side
// CodeMalformedResponse and CodeUnknown.
const (
	CodeExpired           = sbsig.CodeExpired
	CodeForbidden         = sbsig.CodeForbidden
	CodeInvalidSignature  = sbsig.CodeInvalidSignature
	CodeInvalidKey        = sbsig.CodeInvalidKey
	CodeMissingHeaders    = sbsig.CodeMissingHeaders
	CodeConflict          = "conflict"
	CodeGenerationFailed  = "generation_failed"
	CodeInvalidURL        = "invalid_url"
	CodeInvalidSlug       = "invalid_slug"
	CodeDBError           = "db_error"
	CodeMalformedResponse = "malformed_response"
	CodeUnknown           = "unknown_error"
)

// Sentinel errors matched by *APIError through errors.Is.
var (
	ErrExpired           = errors.New("sbclient: request expired")
	ErrForbidden         = errors.New("sbclient: client not recognized")
	ErrInvalidSignature  = errors.New("sbclient: invalid signature")
	ErrInvalidKey        = errors.New("sbclient: invalid api key")
	ErrConflict          = errors.New("sbclient: slug already exists")
	ErrGenerationFailed  = errors.New("sbclient: slug generation failed")
	ErrMalformedResponse = errors.New("sbclient: malformed response")
)

// Configuration errors.
var (
	// ErrInvalidEndpoint is returned by New when the endpoint is not an
	// absolute http or https URL.
	ErrInvalidEndpoint = errors.New("sbclient: endpoint must be an absolute http(s) URL")
)

var codeSentinels = map[string]error{
	CodeExpired:           ErrExpired,
	CodeForbidden:         ErrForbidden,
	CodeInvalidSignature:  ErrInvalidSignature,
	CodeInvalidKey:        ErrInvalidKey,
	CodeConflict:          ErrConflict,
	CodeGenerationFailed:  ErrGenerationFailed,
	CodeMalformedResponse: ErrMalformedResponse,
}

// Kind groups failures by how a caller should react to them.
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation: the request was rejected locally; nothing was sent.
	KindValidation
	// KindTransport: no response was received (timeout, refused, DNS).
	KindTransport
	// KindAuth: expired, forbidden, invalid_signature or invalid_key.
	// Terminal for the signed request.
	KindAuth
	// KindConflict: the requested slug is taken; pick another one.
	KindConflict
	// KindRequest: any other 4xx, such as invalid_url or invalid_slug.
	KindRequest
	// KindServer: generation_failed or any 5xx; safe to retry.
	KindServer
	// KindProtocol: the response did not have the documented shape.
	KindProtocol
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindTransport:
		return "transport"
	case KindAuth:
		return "auth"
	case KindConflict:
		return "conflict"
	case KindRequest:
		return "request"
	case KindServer:
		return "server"
	case KindProtocol:
		return "protocol"
	default:
		return "unknown"
	}
}

// ValidationError reports malformed input detected before any network
// activity.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return "sbclient: invalid " + e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Transport failure reasons.
const (
	ReasonTimeout  = "timeout"
	ReasonCanceled = "canceled"
	ReasonFailed   = "request failed"
)

// TransportError reports that no usable response was received.
type TransportError struct {
	Reason string
	Err    error
}

func newTransportError(ctx context.Context, err error) *TransportError {
	reason := ReasonFailed

	var netErr net.Error

	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		reason = ReasonTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		reason = ReasonTimeout
	case errors.Is(err, context.Canceled):
		reason = ReasonCanceled
	}

	return &TransportError{Reason: reason, Err: err}
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return "sbclient: transport: " + e.Reason
	}

	return "sbclient: transport: " + e.Reason + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the request ran out of time.
func (e *TransportError) Timeout() bool { return e.Reason == ReasonTimeout }

// APIError is a failure reported by the server, or a response that could
// not be understood.
type APIError struct {
	Code    string
	Message string

	// HTTPStatus is the status line of the response. It is authoritative
	// when the body declares a different status.
	HTTPStatus int

	// DeclaredStatus is the status found in the body, at top level or
	// under data.status. Zero when absent.
	DeclaredStatus int

	// StatusMismatch is set when a status declared in the body disagrees
	// with HTTPStatus.
	StatusMismatch bool
}

func (e *APIError) Error() string {
	msg := "sbclient: " + e.Code + " (" + strconv.Itoa(e.HTTPStatus) + ")"
	if e.Message != "" {
		msg += ": " + e.Message
	}

	return msg
}

// Is matches the sentinel error for the error code.
func (e *APIError) Is(target error) bool {
	sentinel, ok := codeSentinels[e.Code]

	return ok && target == sentinel
}

// Kind classifies the failure, by code first and HTTP status second.
func (e *APIError) Kind() Kind {
	switch e.Code {
	case CodeExpired, CodeForbidden, CodeInvalidSignature, CodeInvalidKey:
		return KindAuth
	case CodeConflict:
		return KindConflict
	case CodeGenerationFailed, CodeDBError:
		return KindServer
	case CodeMalformedResponse:
		return KindProtocol
	}

	switch {
	case e.HTTPStatus >= 500:
		return KindServer
	case e.HTTPStatus == 409:
		return KindConflict
	case e.HTTPStatus == 401, e.HTTPStatus == 403:
		return KindAuth
	case e.HTTPStatus >= 400:
		return KindRequest
	default:
		return KindProtocol
	}
}

// KindOf classifies any error returned by this package.
func KindOf(err error) Kind {
	var (
		verr *ValidationError
		terr *TransportError
		aerr *APIError
	)

	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &verr):
		return KindValidation
	case errors.As(err, &terr):
		return KindTransport
	case errors.As(err, &aerr):
		return aerr.Kind()
	default:
		return KindUnknown
	}
}

// Retryable reports whether a caller may resend the request, rebuilt with
// a fresh timestamp. Only server-side exhaustion qualifies; this package
// never retries on its own.
func Retryable(err error) bool {
	return KindOf(err) == KindServer
}

// outcome returns the metrics label for err.
func outcome(err error) string {
	var aerr *APIError

	switch {
	case err == nil:
		return "success"
	case errors.As(err, &aerr):
		return aerr.Code
	default:
		return KindOf(err).String() + "_error"
	}
}
