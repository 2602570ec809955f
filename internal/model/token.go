package model

import "time"

// AccessToken represents one issued personal access token. The raw secret is
// never stored; only a salted HMAC-SHA256 digest is persisted, and the token
// is looked up by its public ID.
type AccessToken struct {
	ID         string     `json:"id" db:"id"`
	OwnerID    string     `json:"owner_id" db:"owner_id"`
	Name       string     `json:"name" db:"name"`
	Scopes     ScopeList  `json:"scopes" db:"scopes"`
	SecretHash string     `json:"-" db:"secret_hash"` // salted HMAC digest, never expose
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty" db:"last_used_at"`
}

// Can reports whether the token's scopes cover the requested permission.
func (t *AccessToken) Can(scope string) bool {
	if t == nil {
		return false
	}
	return t.Scopes.Matches(scope)
}

// Cant is the strict negation of Can.
func (t *AccessToken) Cant(scope string) bool {
	return !t.Can(scope)
}
