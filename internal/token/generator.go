package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const (
	// IDPrefix marks keymint token ids in logs, headers, and credentials.
	IDPrefix = "km_"

	idBytes     = 12
	secretBytes = 32
)

// Generator produces token ids and secrets from the operating system's
// CSPRNG. A read failure is returned as an error; issuance never falls back
// to a weaker source.
type Generator struct{}

// NewGenerator creates a Generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// NewTokenID returns a fresh public token id: "km_" + 24 hex chars
// (96 bits of entropy, collision-free at any realistic token count).
func (g *Generator) NewTokenID() (string, error) {
	b := make([]byte, idBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token id: %w", err)
	}
	return IDPrefix + hex.EncodeToString(b), nil
}

// NewSecret returns a fresh token secret: 64 hex chars (256 bits of entropy).
func (g *Generator) NewSecret() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
