package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	hashScheme = "hmac256"
	saltBytes  = 16
)

// Hasher derives the at-rest representation of a token secret and verifies
// presented secrets against it. The stored form is
// "hmac256$<salthex>$<digesthex>" where the digest is HMAC-SHA256 of the
// secret keyed by a per-token random salt.
type Hasher struct{}

// NewHasher creates a Hasher.
func NewHasher() *Hasher {
	return &Hasher{}
}

// Hash derives the stored representation of a raw secret.
func (h *Hasher) Hash(secret string) (string, error) {
	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate secret salt: %w", err)
	}
	return hashScheme + "$" + hex.EncodeToString(salt) + "$" + digest(salt, secret), nil
}

// Verify reports whether the presented secret matches the stored hash. The
// comparison runs in constant time with respect to the digest contents; a
// malformed stored value verifies false rather than erroring, because the
// caller sits on the authentication path.
func (h *Hasher) Verify(secret, stored string) bool {
	parts := strings.Split(stored, "$")
	if len(parts) != 3 || parts[0] != hashScheme {
		return false
	}
	salt, err := hex.DecodeString(parts[1])
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(digest(salt, secret)), []byte(parts[2]))
}

func digest(salt []byte, secret string) string {
	mac := hmac.New(sha256.New, salt)
	mac.Write([]byte(secret))
	return hex.EncodeToString(mac.Sum(nil))
}
