// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides investigator/investigation persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// A single connection serializes writes; without this the pure-Go driver
	// surfaces SQLITE_BUSY under concurrent appends instead of queueing them.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS investigators (
			id            TEXT PRIMARY KEY,
			badge_id      TEXT NOT NULL UNIQUE,
			email         TEXT NOT NULL,
			display_name  TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			role          TEXT NOT NULL DEFAULT 'investigator',
			created_at    TEXT NOT NULL,
			updated_at    TEXT NOT NULL,

			CHECK (role IN ('investigator')),
			CHECK (password_hash <> '')
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_investigators_badge
			ON investigators(badge_id);

		CREATE TABLE IF NOT EXISTS investigations (
			id              TEXT PRIMARY KEY,
			investigator_id TEXT NOT NULL,
			repo_url        TEXT NOT NULL,
			repo_name       TEXT NOT NULL,
			podcast_id      TEXT NOT NULL,
			occurred_at     TEXT NOT NULL,
			FOREIGN KEY (investigator_id) REFERENCES investigators(id)
		);

		CREATE INDEX IF NOT EXISTS idx_investigations_investigator
			ON investigations(investigator_id);

		CREATE INDEX IF NOT EXISTS idx_investigations_investigator_occurred
			ON investigations(investigator_id, occurred_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}

	return nil
}

// CreateInvestigator inserts a new investigator. Returns ErrBadgeExists when
// the badge ID is already taken (case-sensitive exact match).
func (s *SQLiteStore) CreateInvestigator(ctx context.Context, inv *Investigator) error {
	query := `
		INSERT INTO investigators (id, badge_id, email, display_name, password_hash, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		inv.ID,
		inv.BadgeID,
		inv.Email,
		inv.DisplayName,
		inv.PasswordHash,
		inv.Role,
		inv.CreatedAt.UTC().Format(time.RFC3339),
		inv.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrBadgeExists
		}
		return fmt.Errorf("inserting investigator: %w", err)
	}

	s.logger.Info("created investigator", "id", inv.ID, "badge_id", inv.BadgeID)
	return nil
}

// GetInvestigator retrieves an investigator by ID.
func (s *SQLiteStore) GetInvestigator(ctx context.Context, id string) (*Investigator, error) {
	query := `
		SELECT id, badge_id, email, display_name, password_hash, role, created_at, updated_at
		FROM investigators
		WHERE id = ?
	`
	return s.scanInvestigator(s.db.QueryRowContext(ctx, query, id))
}

// GetInvestigatorByBadgeID retrieves an investigator by badge ID.
// The lookup is case-sensitive.
func (s *SQLiteStore) GetInvestigatorByBadgeID(ctx context.Context, badgeID string) (*Investigator, error) {
	query := `
		SELECT id, badge_id, email, display_name, password_hash, role, created_at, updated_at
		FROM investigators
		WHERE badge_id = ?
	`
	return s.scanInvestigator(s.db.QueryRowContext(ctx, query, badgeID))
}

// CountInvestigators returns the total number of registered investigators.
func (s *SQLiteStore) CountInvestigators(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM investigators`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting investigators: %w", err)
	}
	return count, nil
}

// scanInvestigator scans a single investigator row.
func (s *SQLiteStore) scanInvestigator(row *sql.Row) (*Investigator, error) {
	var inv Investigator
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&inv.ID,
		&inv.BadgeID,
		&inv.Email,
		&inv.DisplayName,
		&inv.PasswordHash,
		&inv.Role,
		&createdAtStr,
		&updatedAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvestigatorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying investigator: %w", err)
	}

	inv.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	inv.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &inv, nil
}

// Close closes the underlying database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	// SQLite returns "UNIQUE constraint failed" in the error message
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") || strings.Contains(err.Error(), "unique constraint"))
}

// isForeignKeyError checks if an error is a SQLite foreign key violation.
func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// Ensure SQLiteStore implements the Store interface.
var _ Store = (*SQLiteStore)(nil)
