package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/keymint/keymint/internal/model"
	"github.com/keymint/keymint/internal/token"
)

type contextKeyAuth string

// BindingKey is the context key for the request's token binding.
const BindingKey contextKeyAuth = "token_binding"

// TokenHeader is the alternative credential header for clients that cannot
// set Authorization.
const TokenHeader = "X-API-Token"

// Authenticate returns an HTTP middleware that validates the request's
// personal access token. The credential is read from the Authorization
// header ("Bearer <id>.<secret>") or from the X-API-Token header. On
// success the token is bound to the request context for the rest of the
// pipeline; on failure a 401 JSON error is returned.
//
// Malformed and invalid credentials produce the same outward response so
// clients cannot probe which token ids exist.
func Authenticate(mgr *token.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := credentialFromRequest(r)
			if raw == "" {
				writeAuthError(w, http.StatusUnauthorized,
					"Authentication required. Provide a Bearer credential or "+TokenHeader+" header.")
				return
			}

			tok, err := mgr.Authenticate(r.Context(), raw)
			if err != nil {
				if errors.Is(err, token.ErrMalformedCredential) || errors.Is(err, token.ErrInvalidCredential) {
					writeAuthError(w, http.StatusUnauthorized, "Invalid credential")
					return
				}
				writeAuthError(w, http.StatusServiceUnavailable, "Authentication unavailable")
				return
			}

			binding := &token.Binding{}
			if err := binding.Bind(tok); err != nil {
				writeAuthError(w, http.StatusInternalServerError, "Authentication error")
				return
			}

			setLoggedTokenID(r.Context(), tok.ID)

			ctx := context.WithValue(r.Context(), BindingKey, binding)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireScope returns an HTTP middleware that enforces a scope on the bound
// token. It must be used after Authenticate; with no binding in the context
// the check fails closed with 403.
func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if GetBinding(r.Context()).Cant(scope) {
				writeAuthError(w, http.StatusForbidden, "Insufficient scope")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetBinding extracts the request's token binding from the context. Returns
// nil for unauthenticated requests; a nil binding denies every scope check,
// so callers can use the result directly.
func GetBinding(ctx context.Context) *token.Binding {
	if b, ok := ctx.Value(BindingKey).(*token.Binding); ok {
		return b
	}
	return nil
}

// credentialFromRequest extracts the raw credential from the request
// headers. The Authorization Bearer form wins over X-API-Token.
func credentialFromRequest(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.Header.Get(TokenHeader)
}

// writeAuthError writes the standard error envelope. The handler package's
// helpers are off limits here (it imports this package), but the envelope
// type itself lives in model, so middleware and handlers share one shape.
func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.ErrorResponse{
		Error: model.ErrorDetail{
			Code:    status,
			Message: message,
		},
	})
}
