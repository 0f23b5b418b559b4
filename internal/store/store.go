// ABOUTME: Store interface and data types for vault-gateway persistence
// ABOUTME: Defines the Investigator aggregate and its append-only Investigation list

package store

import (
	"context"
	"errors"
	"time"
)

// ErrInvestigatorNotFound is returned when a requested investigator does not exist.
var ErrInvestigatorNotFound = errors.New("investigator not found")

// ErrBadgeExists is returned when registering a badge ID that is already taken.
var ErrBadgeExists = errors.New("badge id already exists")

// ErrQuotaExceeded is returned by AppendInvestigation when the conditional
// append fails because the period count already reached the limit.
var ErrQuotaExceeded = errors.New("investigation quota exceeded")

// RoleInvestigator is the only role assigned to accounts. The column exists
// so the session shape stays fixed if more roles ever land.
const RoleInvestigator = "investigator"

// Investigator is the principal aggregate: account identity plus its
// append-only investigation history. The badge ID doubles as the email
// alias kept for adapter compatibility with the original user layout.
type Investigator struct {
	ID           string
	BadgeID      string
	Email        string
	DisplayName  string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Investigation is one unit of metered usage: a repo investigated and the
// podcast it produced. Immutable once appended.
type Investigation struct {
	ID         string
	RepoURL    string
	RepoName   string
	PodcastID  string
	OccurredAt time.Time
}

// Store defines the durable operations the auth and quota layers build on.
// AppendInvestigation must be atomic with respect to the period-count check
// (see the SQLite implementation); everything else is plain CRUD.
type Store interface {
	// Investigators
	CreateInvestigator(ctx context.Context, inv *Investigator) error
	GetInvestigator(ctx context.Context, id string) (*Investigator, error)
	GetInvestigatorByBadgeID(ctx context.Context, badgeID string) (*Investigator, error)

	// Investigations (append-only)
	AppendInvestigation(ctx context.Context, investigatorID string, inv *Investigation, periodStart time.Time, limit int) error
	ListInvestigations(ctx context.Context, investigatorID string) ([]*Investigation, error)
	CountInvestigationsSince(ctx context.Context, investigatorID string, since time.Time) (int, error)

	// Aggregate counts for the public stats surface
	CountInvestigators(ctx context.Context) (int, error)
	CountInvestigations(ctx context.Context) (int, error)

	// Close releases any resources held by the store
	Close() error
}
