// ABOUTME: SQLite methods for the append-only investigation ledger
// ABOUTME: Implements the atomic conditional append that enforces the period limit

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AppendInvestigation appends an investigation for the given investigator,
// but only if the number of investigations with occurred_at >= periodStart is
// still below limit. The count check and the insert execute as a single SQL
// statement, so two concurrent appends racing for the last slot cannot both
// succeed. Returns ErrQuotaExceeded when the condition fails and
// ErrInvestigatorNotFound when the investigator does not exist.
func (s *SQLiteStore) AppendInvestigation(ctx context.Context, investigatorID string, inv *Investigation, periodStart time.Time, limit int) error {
	query := `
		INSERT INTO investigations (id, investigator_id, repo_url, repo_name, podcast_id, occurred_at)
		SELECT ?, ?, ?, ?, ?, ?
		WHERE (
			SELECT COUNT(*) FROM investigations
			WHERE investigator_id = ? AND occurred_at >= ?
		) < ?
	`

	result, err := s.db.ExecContext(ctx, query,
		inv.ID,
		investigatorID,
		inv.RepoURL,
		inv.RepoName,
		inv.PodcastID,
		inv.OccurredAt.UTC().Format(time.RFC3339),
		investigatorID,
		periodStart.UTC().Format(time.RFC3339),
		limit,
	)
	if err != nil {
		// Unknown investigators trip the foreign key before the count guard.
		if isForeignKeyError(err) {
			return ErrInvestigatorNotFound
		}
		return fmt.Errorf("appending investigation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Distinguish a full period from a missing investigator so callers
		// don't report quota exhaustion for accounts that were never created.
		var exists int
		err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM investigators WHERE id = ?`, investigatorID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("checking investigator: %w", err)
		}
		if exists == 0 {
			return ErrInvestigatorNotFound
		}
		return ErrQuotaExceeded
	}

	// Keep the aggregate's updated_at in step with its event list.
	if _, err := s.db.ExecContext(ctx,
		`UPDATE investigators SET updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), investigatorID,
	); err != nil {
		return fmt.Errorf("touching investigator: %w", err)
	}

	s.logger.Debug("appended investigation",
		"id", inv.ID,
		"investigator_id", investigatorID,
		"repo_name", inv.RepoName,
	)
	return nil
}

// ListInvestigations retrieves all investigations for an investigator in
// insertion order.
func (s *SQLiteStore) ListInvestigations(ctx context.Context, investigatorID string) ([]*Investigation, error) {
	query := `
		SELECT id, repo_url, repo_name, podcast_id, occurred_at
		FROM investigations
		WHERE investigator_id = ?
		ORDER BY rowid ASC
	`

	rows, err := s.db.QueryContext(ctx, query, investigatorID)
	if err != nil {
		return nil, fmt.Errorf("querying investigations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var invs []*Investigation
	for rows.Next() {
		inv, err := scanInvestigation(rows)
		if err != nil {
			return nil, err
		}
		invs = append(invs, inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating investigation rows: %w", err)
	}

	return invs, nil
}

// CountInvestigationsSince counts investigations with occurred_at >= since.
func (s *SQLiteStore) CountInvestigationsSince(ctx context.Context, investigatorID string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM investigations
		WHERE investigator_id = ? AND occurred_at >= ?
	`

	var count int
	err := s.db.QueryRowContext(ctx, query, investigatorID, since.UTC().Format(time.RFC3339)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting investigations: %w", err)
	}
	return count, nil
}

// CountInvestigations returns the total number of investigations across all
// investigators.
func (s *SQLiteStore) CountInvestigations(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM investigations`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting investigations: %w", err)
	}
	return count, nil
}

// scanInvestigation scans a single investigation row.
func scanInvestigation(rows *sql.Rows) (*Investigation, error) {
	var inv Investigation
	var occurredAtStr string

	err := rows.Scan(
		&inv.ID,
		&inv.RepoURL,
		&inv.RepoName,
		&inv.PodcastID,
		&occurredAtStr,
	)
	if err != nil {
		return nil, fmt.Errorf("scanning investigation row: %w", err)
	}

	inv.OccurredAt, err = time.Parse(time.RFC3339, occurredAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing occurred_at: %w", err)
	}

	return &inv, nil
}
