// ABOUTME: HTTP API handlers for registration, login, quota status, and recording
// ABOUTME: The JSON surface consumed by the investigation front end

package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/redvault/vault-gateway/internal/access"
	"github.com/redvault/vault-gateway/internal/auth"
	"github.com/redvault/vault-gateway/internal/metrics"
	"github.com/redvault/vault-gateway/internal/quota"
	"github.com/redvault/vault-gateway/internal/store"
)

// MinSecretLength is the minimum security code length accepted at sign-up.
const MinSecretLength = 6

// Fixed user-facing messages. Credential failures share one message so the
// response never reveals whether the badge or the code was wrong.
const (
	msgInvalidCredentials = "Invalid badge ID or security code"
	msgBadgeExists        = "Badge ID already registered"
	msgInternalError      = "An internal error occurred"
)

// RegisterRequest is the JSON request body for POST /api/auth/register.
type RegisterRequest struct {
	BadgeID      string `json:"badge_id"`
	SecurityCode string `json:"security_code"`
	ConfirmCode  string `json:"confirm_code"`
}

// LoginRequest is the JSON request body for POST /api/auth/login.
type LoginRequest struct {
	BadgeID      string `json:"badge_id"`
	SecurityCode string `json:"security_code"`
	CallbackURL  string `json:"callback_url,omitempty"`
}

// SessionResponse is the JSON response for successful register/login calls.
type SessionResponse struct {
	Token       string `json:"token"`
	BadgeID     string `json:"badge_id"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	RedirectURL string `json:"redirect_url,omitempty"`
}

// InvestigationResponse is the JSON shape of one consumption event.
type InvestigationResponse struct {
	ID         string `json:"id"`
	RepoURL    string `json:"repo_url"`
	RepoName   string `json:"repo_name"`
	PodcastID  string `json:"podcast_id"`
	OccurredAt string `json:"occurred_at"`
}

// StatusResponse is the JSON shape of a quota status.
type StatusResponse struct {
	Allowed        bool                    `json:"allowed"`
	Remaining      int                     `json:"remaining"`
	Limit          int                     `json:"limit"`
	CurrentMonth   string                  `json:"current_month"`
	Investigations []InvestigationResponse `json:"investigations"`
	Message        string                  `json:"message,omitempty"`
}

// RecordRequest is the JSON request body for POST /api/investigations.
type RecordRequest struct {
	RepoURL   string `json:"repo_url"`
	RepoName  string `json:"repo_name"`
	PodcastID string `json:"podcast_id"`
}

// RecordResponse is the JSON response for POST /api/investigations.
type RecordResponse struct {
	Recorded bool           `json:"recorded"`
	Status   StatusResponse `json:"status"`
}

// AccessResponse is the JSON response for GET /api/access.
type AccessResponse struct {
	Allowed     bool           `json:"allowed"`
	Status      StatusResponse `json:"status"`
	RedirectURL string         `json:"redirect_url,omitempty"`
}

// StatsResponse is the JSON response for the public GET /api/stats.
type StatsResponse struct {
	Investigators  int `json:"investigators"`
	Investigations int `json:"investigations"`
}

// Server holds the API handlers and their collaborators.
type Server struct {
	authenticator *auth.Authenticator
	issuer        *auth.Issuer
	ledger        *quota.Ledger
	gate          *access.Gate
	store         store.Store
	baseURL       string
	logger        *slog.Logger
}

// NewServer creates the API server. baseURL is the external application URL
// used for post-login redirect reconciliation.
func NewServer(authenticator *auth.Authenticator, issuer *auth.Issuer, ledger *quota.Ledger, gate *access.Gate, st store.Store, baseURL string) *Server {
	return &Server{
		authenticator: authenticator,
		issuer:        issuer,
		ledger:        ledger,
		gate:          gate,
		store:         st,
		baseURL:       baseURL,
		logger:        slog.Default().With("component", "api"),
	}
}

// RegisterRoutes registers all API routes on the given mux. The session gate
// middleware is applied outside this mux; routes under /api/auth, /api/health,
// /api/stats, and /api/access handle anonymous callers themselves.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)

	mux.HandleFunc("GET /api/investigation-status", s.handleStatus)
	mux.HandleFunc("POST /api/investigations", s.handleRecord)
	mux.HandleFunc("GET /api/investigations", s.handleHistory)
	mux.HandleFunc("GET /api/access", s.handleAccess)

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/stats", s.handleStats)
}

// handleRegister handles POST /api/auth/register.
// Secret length and confirmation are validated here, before the
// authenticator is involved.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.BadgeID == "" || req.SecurityCode == "" {
		s.sendJSONError(w, http.StatusBadRequest, "badge_id and security_code are required")
		return
	}
	if len(req.SecurityCode) < MinSecretLength {
		s.sendJSONError(w, http.StatusBadRequest, "security code must be at least 6 characters")
		return
	}
	if req.SecurityCode != req.ConfirmCode {
		s.sendJSONError(w, http.StatusBadRequest, "security codes do not match")
		return
	}

	inv, err := s.authenticator.Register(r.Context(), req.BadgeID, req.SecurityCode)
	if err != nil {
		if errors.Is(err, store.ErrBadgeExists) {
			metrics.RecordRegistration(metrics.OutcomeFailure)
			s.sendJSONError(w, http.StatusConflict, msgBadgeExists)
			return
		}
		metrics.RecordRegistration(metrics.OutcomeError)
		s.logger.Error("registration failed", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	token, err := s.issuer.Issue(inv)
	if err != nil {
		s.logger.Error("issuing session failed", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	metrics.RecordRegistration(metrics.OutcomeSuccess)
	s.setSessionCookie(w, token)
	s.writeJSON(w, http.StatusCreated, SessionResponse{
		Token:       token,
		BadgeID:     inv.BadgeID,
		DisplayName: inv.DisplayName,
		Role:        inv.Role,
	})
}

// handleLogin handles POST /api/auth/login.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.BadgeID == "" || req.SecurityCode == "" {
		s.sendJSONError(w, http.StatusBadRequest, "badge_id and security_code are required")
		return
	}

	inv, err := s.authenticator.Authenticate(r.Context(), req.BadgeID, req.SecurityCode)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			metrics.RecordLogin(metrics.OutcomeFailure)
			s.sendJSONError(w, http.StatusUnauthorized, msgInvalidCredentials)
			return
		}
		metrics.RecordLogin(metrics.OutcomeError)
		s.logger.Error("login failed", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	token, err := s.issuer.Issue(inv)
	if err != nil {
		s.logger.Error("issuing session failed", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	metrics.RecordLogin(metrics.OutcomeSuccess)
	s.setSessionCookie(w, token)
	s.writeJSON(w, http.StatusOK, SessionResponse{
		Token:       token,
		BadgeID:     inv.BadgeID,
		DisplayName: inv.DisplayName,
		Role:        inv.Role,
		RedirectURL: auth.RedirectTarget(req.CallbackURL, s.baseURL),
	})
}

// handleLogout handles POST /api/auth/logout. Sessions are stateless, so
// logout only clears the cookie; the token itself stays valid until expiry.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}

// handleStatus handles GET /api/investigation-status for the current session.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFromContext(r.Context())
	if sess == nil {
		s.sendJSONError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	status, err := s.ledger.Status(r.Context(), sess.InvestigatorID)
	if err != nil {
		if errors.Is(err, store.ErrInvestigatorNotFound) {
			s.sendJSONError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		s.logger.Error("quota status failed", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	s.writeJSON(w, http.StatusOK, toStatusResponse(status))
}

// handleRecord handles POST /api/investigations. Quota exhaustion is a
// normal 200 response with recorded=false; the front end shows the notice
// in place rather than redirecting.
func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFromContext(r.Context())
	if sess == nil {
		s.sendJSONError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req RecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.RepoURL == "" || req.RepoName == "" {
		s.sendJSONError(w, http.StatusBadRequest, "repo_url and repo_name are required")
		return
	}

	result, err := s.ledger.Record(r.Context(), sess.InvestigatorID, req.RepoURL, req.RepoName, req.PodcastID)
	if err != nil {
		if errors.Is(err, store.ErrInvestigatorNotFound) {
			s.sendJSONError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		s.logger.Error("recording investigation failed", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	if result.Recorded {
		metrics.RecordQuotaDecision(metrics.DecisionAllowed)
	} else {
		metrics.RecordQuotaDecision(metrics.DecisionExhausted)
	}

	s.writeJSON(w, http.StatusOK, RecordResponse{
		Recorded: result.Recorded,
		Status:   toStatusResponse(result.Status),
	})
}

// handleHistory handles GET /api/investigations: the all-time event list.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFromContext(r.Context())
	if sess == nil {
		s.sendJSONError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	events, err := s.ledger.History(r.Context(), sess.InvestigatorID)
	if err != nil {
		if errors.Is(err, store.ErrInvestigatorNotFound) {
			s.sendJSONError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		s.logger.Error("listing history failed", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	s.writeJSON(w, http.StatusOK, toInvestigationResponses(events))
}

// handleAccess handles GET /api/access?repo=<url>: the server-side check
// consulted before starting an investigation. The gate validates the session
// itself, so this route stays outside the middleware and a missing session
// comes back as data (allowed=false plus a login redirect), not a 401.
func (s *Server) handleAccess(w http.ResponseWriter, r *http.Request) {
	repoURL := r.URL.Query().Get("repo")
	if repoURL == "" {
		s.sendJSONError(w, http.StatusBadRequest, "repo query parameter is required")
		return
	}

	token := auth.TokenFromRequest(r)

	decision, err := s.gate.Authorize(r.Context(), token, repoURL)
	if err != nil {
		s.logger.Error("access check failed", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	switch {
	case decision.Allowed:
		metrics.RecordQuotaDecision(metrics.DecisionAllowed)
	case decision.RedirectURL != "":
		metrics.RecordQuotaDecision(metrics.DecisionDenied)
	default:
		metrics.RecordQuotaDecision(metrics.DecisionExhausted)
	}

	s.writeJSON(w, http.StatusOK, AccessResponse{
		Allowed:     decision.Allowed,
		Status:      toStatusResponse(decision.Status),
		RedirectURL: decision.RedirectURL,
	})
}

// handleHealth handles the public GET /api/health liveness check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStats handles the public GET /api/stats aggregate counts.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	investigators, err := s.store.CountInvestigators(r.Context())
	if err != nil {
		s.logger.Error("counting investigators failed", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}
	investigations, err := s.store.CountInvestigations(r.Context())
	if err != nil {
		s.logger.Error("counting investigations failed", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	s.writeJSON(w, http.StatusOK, StatsResponse{
		Investigators:  investigators,
		Investigations: investigations,
	})
}

// setSessionCookie attaches the session token to the response.
func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding response failed", "error", err)
	}
}

// sendJSONError writes a JSON error response.
func (s *Server) sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// toStatusResponse converts a ledger status to its JSON shape.
func toStatusResponse(status *quota.Status) StatusResponse {
	return StatusResponse{
		Allowed:        status.Allowed,
		Remaining:      status.Remaining,
		Limit:          status.Limit,
		CurrentMonth:   status.PeriodLabel,
		Investigations: toInvestigationResponses(status.Events),
		Message:        status.Message,
	}
}

// toInvestigationResponses converts events to their JSON shape. Always
// returns a non-nil slice so empty histories encode as [] rather than null.
func toInvestigationResponses(events []*store.Investigation) []InvestigationResponse {
	out := make([]InvestigationResponse, 0, len(events))
	for _, e := range events {
		out = append(out, InvestigationResponse{
			ID:         e.ID,
			RepoURL:    e.RepoURL,
			RepoName:   e.RepoName,
			PodcastID:  e.PodcastID,
			OccurredAt: e.OccurredAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}
