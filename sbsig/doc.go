// Package sbsig implements the Smart Bridge request signing scheme used by
// the link creation API.
//
// A request is authenticated by three headers computed over the exact body
// bytes that are sent:
//
//	X-SB-API-Key:   public key identifier
//	X-SB-Timestamp: Unix time in seconds, decimal
//	X-SB-Signature: hex(HMAC-SHA256(secret, body || timestamp))
//
// The server also requires an exact User-Agent match and rejects
// timestamps more than 60 seconds away from its own clock.
//
// # Signing Requests
//
// Use SignRequest to add the authentication headers to a request. The body
// is read, signed and restored so the request can still be sent:
//
//	signer, err := sbsig.NewSigner(sbsig.Credentials{
//	    APIKey: "sb_live_xxx",
//	    Secret: sbsig.NewSecret("sk_secret_xxx"),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ts, err := sbsig.SignRequest(req, signer)
//
// Sign is the underlying pure function and can be used directly when the
// caller assembles headers itself:
//
//	sig := sbsig.Sign(body, 1735900000, secret)
//
// # Client Transport
//
// NewTransport creates an http.RoundTripper that signs every outgoing
// request. Pass nil for a clone of http.DefaultTransport:
//
//	client := &http.Client{
//	    Transport: sbsig.NewTransport(nil, signer),
//	}
//
// # Verifying Requests
//
// VerifyRequest applies the server-side checks in the order the server
// applies them and reports failures as *VerifyError carrying the same
// code and HTTP status the server would return:
//
//	err := sbsig.VerifyRequest(req, sbsig.VerifyConfig{
//	    Resolver: func(apiKey string) (sbsig.Secret, bool) {
//	        return lookup(apiKey)
//	    },
//	})
//
// Middleware wraps VerifyRequest for use in front of an http.Handler.
//
// # Secrets
//
// Secret wraps key material so it can be used for signing but never
// printed: every fmt verb, JSON and text marshaling render "[REDACTED]".
package sbsig
