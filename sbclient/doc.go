// Package sbclient creates short links through the Smart Bridge API.
//
// A Client turns a LinkRequest into a canonical JSON body, signs it with
// the sbsig scheme and posts it to the link creation endpoint:
//
//	client, err := sbclient.New(sbclient.Config{
//	    Endpoint: sbclient.EndpointFromSite("https://example.com"),
//	    Credentials: sbsig.Credentials{
//	        APIKey: "sb_live_xxx",
//	        Secret: sbsig.NewSecret("sk_secret_xxx"),
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	link, err := client.CreateShortLink(ctx, sbclient.LinkRequest{
//	    TargetURL: "https://link.example.com/a/abc123",
//	})
//
// Failures are returned as *ValidationError, *TransportError or *APIError.
// KindOf groups them, and errors.Is matches *APIError codes against
// ErrExpired, ErrConflict and the other sentinels. The client never
// retries; Retryable tells the caller when resending is safe.
package sbclient
