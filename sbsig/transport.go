package sbsig

import "net/http"

// Transport is an http.RoundTripper that signs outgoing requests with the
// Smart Bridge headers.
type Transport struct {
	base   http.RoundTripper
	signer *Signer
}

// NewTransport creates a signing Transport that delegates to base after
// signing each request. When base is nil, a clone of http.DefaultTransport
// is used, giving an independent connection pool with default proxy, TLS,
// and timeout settings.
func NewTransport(base *http.Transport, signer *Signer) *Transport {
	var rt http.RoundTripper
	if base != nil {
		rt = base
	} else {
		rt = http.DefaultTransport.(*http.Transport).Clone()
	}

	return &Transport{
		base:   rt,
		signer: signer,
	}
}

// RoundTrip signs the request and then delegates to the base transport.
// The request is cloned before signing; the caller's copy is untouched.
// When GetBody is available, the clone receives its own body copy so
// that signing does not consume the caller's body.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if clone.Body != nil && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}

		clone.Body = body
	}

	if _, err := SignRequest(clone, t.signer); err != nil {
		return nil, err
	}

	return t.base.RoundTrip(clone)
}
