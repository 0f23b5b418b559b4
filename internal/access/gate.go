// ABOUTME: Access gate combining session validation with the quota check
// ABOUTME: Single entry point consulted before any metered operation starts

package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/redvault/vault-gateway/internal/auth"
	"github.com/redvault/vault-gateway/internal/quota"
	"github.com/redvault/vault-gateway/internal/store"
)

// AuthRequiredMessage is surfaced on decisions denied for lack of a session.
const AuthRequiredMessage = "Authentication required. Please log in to proceed."

// Decision is the outcome of an access check. RedirectURL is only set when
// the caller must authenticate first; a quota denial is presented in place
// and never redirects.
type Decision struct {
	Allowed     bool
	Session     *auth.Session
	Status      *quota.Status
	RedirectURL string
}

// Gate authorizes metered access: a valid session and remaining quota.
type Gate struct {
	issuer *auth.Issuer
	ledger *quota.Ledger
	logger *slog.Logger
}

// NewGate creates an access gate over the given session issuer and ledger.
func NewGate(issuer *auth.Issuer, ledger *quota.Ledger) *Gate {
	return &Gate{
		issuer: issuer,
		ledger: ledger,
		logger: slog.Default().With("component", "access"),
	}
}

// Authorize decides whether the holder of token may start an investigation
// of repoURL. Missing, invalid, or expired sessions deny with a login
// redirect that carries the requested repo as a callback target. A valid
// session with an exhausted quota denies without a redirect. Store failures
// propagate as errors.
func (g *Gate) Authorize(ctx context.Context, token, repoURL string) (*Decision, error) {
	sess, err := g.validateSession(token)
	if err != nil {
		return g.denyUnauthenticated(repoURL), nil
	}

	status, err := g.ledger.Status(ctx, sess.InvestigatorID)
	if err != nil {
		if errors.Is(err, store.ErrInvestigatorNotFound) {
			// Sessions can outlive their account; treat like no session.
			return g.denyUnauthenticated(repoURL), nil
		}
		return nil, fmt.Errorf("checking quota status: %w", err)
	}

	return &Decision{
		Allowed: status.Allowed,
		Session: sess,
		Status:  status,
	}, nil
}

// validateSession validates the raw token, rejecting empty tokens outright.
func (g *Gate) validateSession(token string) (*auth.Session, error) {
	if token == "" {
		return nil, auth.ErrInvalidToken
	}
	return g.issuer.Validate(token)
}

// denyUnauthenticated builds the decision for callers without a valid
// session: an empty-allowance status plus the login redirect.
func (g *Gate) denyUnauthenticated(repoURL string) *Decision {
	target := "/?repo=" + url.QueryEscape(repoURL)
	return &Decision{
		Allowed: false,
		Status: &quota.Status{
			Allowed:     false,
			Remaining:   0,
			Limit:       g.ledger.Limit(),
			PeriodLabel: quota.PeriodLabel(time.Now()),
			Message:     AuthRequiredMessage,
		},
		RedirectURL: auth.LoginRedirectURL(target),
	}
}
