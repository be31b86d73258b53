package sbsig

import (
	"encoding/json"
	"errors"
	"net/http"
)

// ErrorResponse is the error body the server returns for rejected
// requests.
type ErrorResponse struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Data    ErrorData `json:"data"`
}

// ErrorData carries the HTTP status inside an ErrorResponse.
type ErrorData struct {
	Status int `json:"status"`
}

// WriteError writes an ErrorResponse with the given status.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(status)

	json.NewEncoder(w).Encode(ErrorResponse{
		Code:    code,
		Message: message,
		Data:    ErrorData{Status: status},
	})
}

// MiddlewareConfig configures the verification middleware.
type MiddlewareConfig struct {
	// Verify configures how requests are verified.
	Verify VerifyConfig

	// OnError is called when verification fails. When nil, the failure is
	// written as an ErrorResponse.
	OnError func(w http.ResponseWriter, r *http.Request, err error)
}

// Middleware returns a middleware that verifies signed requests before
// passing them to the next handler.
//
// It returns ErrNoResolver if VerifyConfig.Resolver is nil.
func Middleware(cfg MiddlewareConfig) (func(http.Handler) http.Handler, error) {
	if cfg.Verify.Resolver == nil {
		return nil, ErrNoResolver
	}

	onError := cfg.OnError
	if onError == nil {
		onError = defaultOnError
	}

	verifyCfg := cfg.Verify

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := VerifyRequest(r, verifyCfg); err != nil {
				onError(w, r, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}, nil
}

func defaultOnError(w http.ResponseWriter, _ *http.Request, err error) {
	var verr *VerifyError
	if errors.As(err, &verr) {
		WriteError(w, verr.Status, verr.Code, verr.Message)
		return
	}

	WriteError(w, http.StatusBadRequest, "invalid_body", "Request body could not be read.")
}
