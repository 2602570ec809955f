package token

import (
	"context"

	"github.com/keymint/keymint/internal/model"
)

// Store is the persistence boundary the Manager depends on. Implementations
// must return ErrNotFound for misses and must make DeleteTokensByOwner
// atomic: a concurrent reader sees either all of an owner's tokens or none,
// never a partially applied revoke-all. A lookup in flight while a revoke
// commits is allowed to complete with the row state it observed at query
// time.
type Store interface {
	// CreateToken persists a new token. The entity's CreatedAt is set by the
	// store at insert time.
	CreateToken(ctx context.Context, tok *model.AccessToken) error

	// GetTokenByID looks a token up by its public id, across all owners.
	GetTokenByID(ctx context.Context, id string) (*model.AccessToken, error)

	// GetTokenByOwnerAndID looks a token up within one owner's namespace.
	GetTokenByOwnerAndID(ctx context.Context, ownerID, id string) (*model.AccessToken, error)

	// ListTokensByOwner returns an owner's tokens in creation order.
	ListTokensByOwner(ctx context.Context, ownerID string) ([]model.AccessToken, error)

	// DeleteToken hard-deletes a token scoped to its owner. Ids belonging to
	// another owner report ErrNotFound.
	DeleteToken(ctx context.Context, ownerID, id string) error

	// DeleteTokensByOwner hard-deletes every token of an owner in a single
	// transaction and returns the number of rows removed.
	DeleteTokensByOwner(ctx context.Context, ownerID string) (int64, error)

	// TouchTokenLastUsed records a successful verification. Best effort;
	// the manager treats failures as non-fatal.
	TouchTokenLastUsed(ctx context.Context, id string) error
}
