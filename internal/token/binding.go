package token

import (
	"fmt"

	"github.com/keymint/keymint/internal/model"
)

// Binding holds the token that authenticated the current request, for the
// lifetime of that request. It is created empty, bound at most once by the
// authentication middleware, and read by downstream authorization checks.
// A nil or unbound Binding grants nothing: Can is false and Cant is true,
// so authorization fails closed when no token authenticated the request.
//
// Bindings are request-local and never shared across concurrent requests,
// so no locking is needed.
type Binding struct {
	tok *model.AccessToken
}

// Bind associates the authenticated token with this request. Binding the
// same token id again is an idempotent no-op; binding a different token
// mid-request has undefined authorization semantics and is rejected.
func (b *Binding) Bind(tok *model.AccessToken) error {
	if tok == nil {
		return fmt.Errorf("bind token: nil token")
	}
	if b.tok != nil {
		if b.tok.ID == tok.ID {
			return nil
		}
		return fmt.Errorf("bind token: request already bound to a different token")
	}
	b.tok = tok
	return nil
}

// Token returns the bound token, or nil when the request is unauthenticated.
func (b *Binding) Token() *model.AccessToken {
	if b == nil {
		return nil
	}
	return b.tok
}

// Can reports whether the bound token covers the requested scope. Unbound
// bindings always deny.
func (b *Binding) Can(scope string) bool {
	return b.Token().Can(scope)
}

// Cant is the strict negation of Can.
func (b *Binding) Cant(scope string) bool {
	return !b.Can(scope)
}
