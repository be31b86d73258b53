package sbsig

import "time"

// Header names used by the signing scheme.
const (
	// HeaderAPIKey carries the public key identifier.
	HeaderAPIKey = "X-SB-API-Key"

	// HeaderTimestamp carries the signing time as decimal Unix seconds.
	HeaderTimestamp = "X-SB-Timestamp"

	// HeaderSignature carries the lowercase hex HMAC-SHA256 signature.
	HeaderSignature = "X-SB-Signature"

	// HeaderRequestID is an optional correlation header. It is not covered
	// by the signature.
	HeaderRequestID = "X-Request-ID"
)

// DefaultUserAgent is the client identification string the server matches
// exactly. Any deviation is rejected as "forbidden" before the signature
// is checked.
const DefaultUserAgent = "SB-Client/Win64-v2.0"

// ContentType is the media type of every signed request body.
const ContentType = "application/json"

// DefaultMaxSkew is the freshness window the server allows between the
// request timestamp and its own clock, in either direction.
const DefaultMaxSkew = 60 * time.Second

// SignatureLength is the length of a hex encoded HMAC-SHA256 signature.
const SignatureLength = 64
