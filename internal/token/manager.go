package token

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/keymint/keymint/internal/model"
)

// CredentialSeparator joins the token id and secret in the raw credential.
// Both components are hex-encoded (plus the fixed id prefix), so the dot can
// never occur inside either of them.
const CredentialSeparator = "."

// Manager owns the token lifecycle: issuance, authentication of presented
// credentials, and revocation. It composes a Generator, a Hasher, and a
// Store; the store implementation is injected so tests can run against an
// in-memory database.
type Manager struct {
	generator *Generator
	hasher    *Hasher
	store     Store
}

// NewManager creates a Manager on top of the given store.
func NewManager(store Store) *Manager {
	return &Manager{
		generator: NewGenerator(),
		hasher:    NewHasher(),
		store:     store,
	}
}

// Generate mints a new token for the owner and returns the persisted entity
// together with the one-time raw credential "<id>.<secret>". The raw secret
// exists only in the returned string; callers must surface it immediately
// because it cannot be recovered later. An empty scope list defaults to the
// universal wildcard.
func (m *Manager) Generate(ctx context.Context, ownerID, name string, scopes model.ScopeList) (*model.AccessToken, string, error) {
	if ownerID == "" {
		return nil, "", fmt.Errorf("generate token: owner id is required")
	}

	id, err := m.generator.NewTokenID()
	if err != nil {
		return nil, "", err
	}
	secret, err := m.generator.NewSecret()
	if err != nil {
		return nil, "", err
	}
	hash, err := m.hasher.Hash(secret)
	if err != nil {
		return nil, "", err
	}

	tok := &model.AccessToken{
		ID:         id,
		OwnerID:    ownerID,
		Name:       name,
		Scopes:     scopes.Normalize(),
		SecretHash: hash,
	}
	if err := m.store.CreateToken(ctx, tok); err != nil {
		return nil, "", fmt.Errorf("persist token: %w", err)
	}

	return tok, id + CredentialSeparator + secret, nil
}

// Authenticate verifies a presented raw credential and returns the matching
// token. An unparseable credential yields ErrMalformedCredential; an unknown
// id and a secret mismatch both yield ErrInvalidCredential. On success the
// last-used marker is updated in the background (best effort, may be lost
// under cancellation).
func (m *Manager) Authenticate(ctx context.Context, raw string) (*model.AccessToken, error) {
	id, secret, err := SplitCredential(raw)
	if err != nil {
		return nil, err
	}

	tok, err := m.store.GetTokenByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredential
		}
		return nil, fmt.Errorf("look up token: %w", err)
	}

	if !m.hasher.Verify(secret, tok.SecretHash) {
		return nil, ErrInvalidCredential
	}

	// Fire and forget; authentication does not wait on bookkeeping.
	go m.store.TouchTokenLastUsed(context.Background(), tok.ID)

	return tok, nil
}

// Revoke hard-deletes a token within the owner's namespace. The reference
// may be a full raw credential or a bare token id. Ids that do not exist
// under this owner report ErrNotFound, whether or not they exist elsewhere.
func (m *Manager) Revoke(ctx context.Context, ownerID, credentialOrID string) error {
	id := credentialOrID
	if strings.Contains(credentialOrID, CredentialSeparator) {
		parsed, _, err := SplitCredential(credentialOrID)
		if err != nil {
			return err
		}
		id = parsed
	}
	return m.store.DeleteToken(ctx, ownerID, id)
}

// RevokeAll hard-deletes every token of an owner in one atomic store
// operation and returns the number of tokens removed.
func (m *Manager) RevokeAll(ctx context.Context, ownerID string) (int64, error) {
	return m.store.DeleteTokensByOwner(ctx, ownerID)
}

// List returns an owner's live tokens in creation order.
func (m *Manager) List(ctx context.Context, ownerID string) ([]model.AccessToken, error) {
	return m.store.ListTokensByOwner(ctx, ownerID)
}

// FindByID looks up a single token scoped to its owner, with the same
// ownership isolation as Revoke.
func (m *Manager) FindByID(ctx context.Context, ownerID, id string) (*model.AccessToken, error) {
	return m.store.GetTokenByOwnerAndID(ctx, ownerID, id)
}

// SplitCredential parses a raw credential into its id and secret components.
// It validates shape only, never secret material: the id must carry the
// keymint prefix and both components must be non-empty.
func SplitCredential(raw string) (id, secret string, err error) {
	id, secret, ok := strings.Cut(raw, CredentialSeparator)
	if !ok || id == "" || secret == "" {
		return "", "", ErrMalformedCredential
	}
	if !strings.HasPrefix(id, IDPrefix) {
		return "", "", ErrMalformedCredential
	}
	return id, secret, nil
}
