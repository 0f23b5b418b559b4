// ABOUTME: Quota ledger tracking monthly investigation consumption
// ABOUTME: Status is always recomputed from the store; never cached

package quota

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/redvault/vault-gateway/internal/store"
)

// DefaultMonthlyLimit is the number of investigations allowed per calendar
// month when the configuration does not override it.
const DefaultMonthlyLimit = 2

// ExhaustedMessage is surfaced when the current period has no remaining
// allowance.
const ExhaustedMessage = "RED NOTICE: Monthly investigation limit reached."

// Status describes an investigator's allowance for the current period.
type Status struct {
	Allowed     bool
	Remaining   int
	Limit       int
	PeriodLabel string
	Events      []*store.Investigation
	Message     string
}

// RecordResult is the outcome of a Record call. Recorded is false when the
// quota was already exhausted or the append lost a race for the last slot;
// either way Status reflects the ledger after the call.
type RecordResult struct {
	Recorded bool
	Status   *Status
}

// Ledger computes quota status and appends consumption events. Status is
// recomputed from the authoritative event list on every call; the absence of
// caching is deliberate, so an "allowed" decision is never stale.
type Ledger struct {
	store  store.Store
	limit  int
	logger *slog.Logger
}

// NewLedger creates a quota ledger. A non-positive limit falls back to
// DefaultMonthlyLimit.
func NewLedger(st store.Store, limit int) *Ledger {
	if limit <= 0 {
		limit = DefaultMonthlyLimit
	}
	return &Ledger{
		store:  st,
		limit:  limit,
		logger: slog.Default().With("component", "quota"),
	}
}

// Limit returns the per-period allowance.
func (l *Ledger) Limit() int {
	return l.limit
}

// Status loads the investigator's full event list and buckets it into the
// current UTC calendar month. Fails with store.ErrInvestigatorNotFound for
// unknown investigators.
func (l *Ledger) Status(ctx context.Context, investigatorID string) (*Status, error) {
	if _, err := l.store.GetInvestigator(ctx, investigatorID); err != nil {
		return nil, err
	}

	events, err := l.store.ListInvestigations(ctx, investigatorID)
	if err != nil {
		return nil, fmt.Errorf("listing investigations: %w", err)
	}

	now := time.Now().UTC()
	start := PeriodStart(now)

	var inPeriod []*store.Investigation
	for _, e := range events {
		if !e.OccurredAt.Before(start) {
			inPeriod = append(inPeriod, e)
		}
	}

	count := len(inPeriod)
	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}

	status := &Status{
		Allowed:     count < l.limit,
		Remaining:   remaining,
		Limit:       l.limit,
		PeriodLabel: PeriodLabel(now),
		Events:      inPeriod,
	}
	if remaining == 0 {
		status.Message = ExhaustedMessage
	}
	return status, nil
}

// Record appends one consumption event for the investigator. The quota is
// checked first; when exhausted the call returns Recorded=false without
// touching history, so retries never consume quota. The append itself is the
// store's atomic conditional insert, so two concurrent calls racing past the
// check cannot jointly exceed the limit: the loser surfaces as
// Recorded=false as well. The returned status is freshly recomputed.
func (l *Ledger) Record(ctx context.Context, investigatorID, repoURL, repoName, podcastID string) (*RecordResult, error) {
	status, err := l.Status(ctx, investigatorID)
	if err != nil {
		return nil, err
	}
	if !status.Allowed {
		return &RecordResult{Recorded: false, Status: status}, nil
	}

	now := time.Now().UTC()
	event := &store.Investigation{
		ID:         uuid.New().String(),
		RepoURL:    repoURL,
		RepoName:   repoName,
		PodcastID:  podcastID,
		OccurredAt: now,
	}

	err = l.store.AppendInvestigation(ctx, investigatorID, event, PeriodStart(now), l.limit)
	if err != nil {
		if errors.Is(err, store.ErrQuotaExceeded) {
			// Lost the race for the last slot between check and append.
			status, err := l.Status(ctx, investigatorID)
			if err != nil {
				return nil, err
			}
			return &RecordResult{Recorded: false, Status: status}, nil
		}
		return nil, fmt.Errorf("recording investigation: %w", err)
	}

	l.logger.Info("recorded investigation",
		"investigator_id", investigatorID,
		"repo_name", repoName,
		"podcast_id", podcastID,
	)

	updated, err := l.Status(ctx, investigatorID)
	if err != nil {
		return nil, err
	}
	return &RecordResult{Recorded: true, Status: updated}, nil
}

// History returns the investigator's all-time event list in insertion order.
func (l *Ledger) History(ctx context.Context, investigatorID string) ([]*store.Investigation, error) {
	if _, err := l.store.GetInvestigator(ctx, investigatorID); err != nil {
		return nil, err
	}
	return l.store.ListInvestigations(ctx, investigatorID)
}
