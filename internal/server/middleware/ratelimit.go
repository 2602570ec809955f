package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimit returns an HTTP middleware that limits requests per IP address
// to the specified number per minute. Brute-forcing a credential means
// guessing 256 bits of secret, but the limiter keeps a misbehaving client
// from hammering the verification path.
func RateLimit(requestsPerMinute int) func(http.Handler) http.Handler {
	return httprate.LimitByIP(requestsPerMinute, time.Minute)
}

// RateLimitByToken returns an HTTP middleware that limits authenticated
// requests per bound token id, falling back to the client IP when the
// request carries no binding. It must run after Authenticate.
func RateLimitByToken(requestsPerMinute int) func(http.Handler) http.Handler {
	return httprate.Limit(
		requestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if tok := GetBinding(r.Context()).Token(); tok != nil {
				return tok.ID, nil
			}
			return httprate.KeyByIP(r)
		}),
	)
}
