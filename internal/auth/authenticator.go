// ABOUTME: Badge credential registration and verification against the store
// ABOUTME: Unknown badges and wrong codes fail with one indistinguishable error

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/redvault/vault-gateway/internal/store"
)

// ErrInvalidCredentials is returned for both unknown badge IDs and wrong
// security codes. The two causes are deliberately indistinguishable so login
// failures never reveal which badges exist.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Authenticator registers and authenticates investigators. It only mints
// principal records; sessions and quota events are separate steps composed
// by the caller.
type Authenticator struct {
	store  store.Store
	hasher *PasswordHasher
	logger *slog.Logger
}

// NewAuthenticator creates an authenticator backed by the given store.
func NewAuthenticator(st store.Store, hasher *PasswordHasher) *Authenticator {
	return &Authenticator{
		store:  st,
		hasher: hasher,
		logger: slog.Default().With("component", "auth"),
	}
}

// Register creates a new investigator for the badge ID. Fails with
// store.ErrBadgeExists when the badge is already taken (case-sensitive).
// Secret length and confirmation are validated by the caller before this.
func (a *Authenticator) Register(ctx context.Context, badgeID, secret string) (*store.Investigator, error) {
	hash, err := a.hasher.Hash(secret)
	if err != nil {
		return nil, fmt.Errorf("hashing security code: %w", err)
	}

	now := time.Now().UTC()
	inv := &store.Investigator{
		ID:           uuid.New().String(),
		BadgeID:      badgeID,
		Email:        badgeID,
		DisplayName:  "Investigator " + strings.ToUpper(badgeID),
		PasswordHash: hash,
		Role:         store.RoleInvestigator,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := a.store.CreateInvestigator(ctx, inv); err != nil {
		if errors.Is(err, store.ErrBadgeExists) {
			return nil, store.ErrBadgeExists
		}
		return nil, fmt.Errorf("creating investigator: %w", err)
	}

	a.logger.Info("registered investigator", "badge_id", badgeID)
	return inv, nil
}

// Authenticate verifies a badge ID and security code. Both an unknown badge
// and a wrong code fail with ErrInvalidCredentials; the unknown-badge path
// burns a dummy hash compare so the two are not separable by timing either.
func (a *Authenticator) Authenticate(ctx context.Context, badgeID, secret string) (*store.Investigator, error) {
	inv, err := a.store.GetInvestigatorByBadgeID(ctx, badgeID)
	if err != nil {
		if errors.Is(err, store.ErrInvestigatorNotFound) {
			a.hasher.CompareDummy(secret)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("looking up investigator: %w", err)
	}

	if !a.hasher.Verify(secret, inv.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	a.logger.Info("authenticated investigator", "badge_id", badgeID)
	return inv, nil
}
