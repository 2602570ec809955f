package token

import "errors"

var (
	// ErrMalformedCredential is returned when a presented credential cannot
	// be split into an id and secret.
	ErrMalformedCredential = errors.New("malformed credential")

	// ErrInvalidCredential is returned for both an unknown token id and a
	// secret mismatch. The two cases are deliberately indistinguishable so
	// callers cannot probe which ids exist.
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrNotFound is returned by lookups and revocations that miss, including
	// ids that exist under a different owner.
	ErrNotFound = errors.New("token not found")
)
