// ABOUTME: Password hashing and verification built on bcrypt
// ABOUTME: Salted adaptive hashing with a timing-safe path for unknown badges

package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultHashCost is the bcrypt work factor for new password hashes.
const DefaultHashCost = 12

// dummyHash is a valid bcrypt hash of a throwaway value. Login paths that
// fail before reaching a real hash compare against it so the response time
// does not reveal whether a badge ID exists.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// PasswordHasher hashes and verifies security codes. The cost is injectable
// so tests can run at bcrypt.MinCost.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher creates a hasher with the given bcrypt cost.
// Costs outside bcrypt's valid range fall back to DefaultHashCost.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultHashCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash returns the bcrypt hash of the secret. The salt is generated per call,
// so hashing the same secret twice yields different output.
func (h *PasswordHasher) Hash(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", fmt.Errorf("hashing secret: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether secret matches the stored hash. Inputs that fail to
// parse as a bcrypt hash return false rather than an error.
func (h *PasswordHasher) Verify(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// CompareDummy burns one bcrypt comparison against a fixed hash. Called on
// the unknown-badge login path to keep its timing aligned with real compares.
func (h *PasswordHasher) CompareDummy(secret string) {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(secret))
}
