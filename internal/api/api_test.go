// ABOUTME: Tests for the HTTP API surface
// ABOUTME: Exercises the full stack end to end over a temporary SQLite store

package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/redvault/vault-gateway/internal/access"
	"github.com/redvault/vault-gateway/internal/auth"
	"github.com/redvault/vault-gateway/internal/metrics"
	"github.com/redvault/vault-gateway/internal/quota"
	"github.com/redvault/vault-gateway/internal/store"
)

const testBaseURL = "https://vault.example.com"

// setupAPI builds the complete handler stack over a temporary SQLite store.
func setupAPI(t *testing.T) http.Handler {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	st, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	authenticator := auth.NewAuthenticator(st, hasher)
	issuer := auth.NewIssuer([]byte("test-secret"), time.Hour)
	ledger := quota.NewLedger(st, 2)
	gate := access.NewGate(issuer, ledger)

	server := NewServer(authenticator, issuer, ledger, gate, st, testBaseURL)
	mux := http.NewServeMux()
	server.RegisterRoutes(mux)

	// The access check authorizes anonymously via the gate, so it joins the
	// public allowlist.
	publicPaths := append(slices.Clone(auth.DefaultPublicPaths), "/api/access")
	return auth.RequireSession(issuer, publicPaths)(mux)
}

// doJSON performs a JSON request, optionally carrying a session cookie.
func doJSON(t *testing.T, handler http.Handler, method, path, sessionToken string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if sessionToken != "" {
		req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: sessionToken})
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// registerInvestigator registers a badge and returns the session token.
func registerInvestigator(t *testing.T, handler http.Handler, badgeID string) string {
	t.Helper()
	rec := doJSON(t, handler, http.MethodPost, "/api/auth/register", "", RegisterRequest{
		BadgeID:      badgeID,
		SecurityCode: "secret-code",
		ConfirmCode:  "secret-code",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestAPI_Register(t *testing.T) {
	handler := setupAPI(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/auth/register", "", RegisterRequest{
		BadgeID:      "a123",
		SecurityCode: "secret-code",
		ConfirmCode:  "secret-code",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "a123", resp.BadgeID)
	assert.Equal(t, "Investigator A123", resp.DisplayName)
	assert.Equal(t, store.RoleInvestigator, resp.Role)
	assert.NotEmpty(t, resp.Token)

	// A session cookie is set alongside the token.
	var found bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookieName && c.Value == resp.Token {
			found = true
		}
	}
	assert.True(t, found, "session cookie should be set")
}

func TestAPI_Register_Validation(t *testing.T) {
	handler := setupAPI(t)

	tests := []struct {
		name string
		req  RegisterRequest
	}{
		{"short code", RegisterRequest{BadgeID: "A123", SecurityCode: "short", ConfirmCode: "short"}},
		{"mismatched confirmation", RegisterRequest{BadgeID: "A123", SecurityCode: "secret-code", ConfirmCode: "other-code"}},
		{"missing badge", RegisterRequest{SecurityCode: "secret-code", ConfirmCode: "secret-code"}},
		{"missing code", RegisterRequest{BadgeID: "A123"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, handler, http.MethodPost, "/api/auth/register", "", tt.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestAPI_Register_BadgeExists(t *testing.T) {
	handler := setupAPI(t)
	registerInvestigator(t, handler, "A123")

	rec := doJSON(t, handler, http.MethodPost, "/api/auth/register", "", RegisterRequest{
		BadgeID:      "A123",
		SecurityCode: "other-code",
		ConfirmCode:  "other-code",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAPI_Login(t *testing.T) {
	handler := setupAPI(t)
	registerInvestigator(t, handler, "A123")

	rec := doJSON(t, handler, http.MethodPost, "/api/auth/login", "", LoginRequest{
		BadgeID:      "A123",
		SecurityCode: "secret-code",
		CallbackURL:  "/?repo=https%3A%2F%2Fgithub.com%2Fexample%2Frepo",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "A123", resp.BadgeID)
	assert.Equal(t, testBaseURL+"/?repo=https%3A%2F%2Fgithub.com%2Fexample%2Frepo", resp.RedirectURL)
}

func TestAPI_Login_CrossOriginCallbackFallsBack(t *testing.T) {
	handler := setupAPI(t)
	registerInvestigator(t, handler, "A123")

	rec := doJSON(t, handler, http.MethodPost, "/api/auth/login", "", LoginRequest{
		BadgeID:      "A123",
		SecurityCode: "secret-code",
		CallbackURL:  "https://evil.example.com/phish",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, testBaseURL, resp.RedirectURL)
}

func TestAPI_Login_InvalidCredentials(t *testing.T) {
	handler := setupAPI(t)
	registerInvestigator(t, handler, "A123")

	wrongPass := doJSON(t, handler, http.MethodPost, "/api/auth/login", "", LoginRequest{
		BadgeID:      "A123",
		SecurityCode: "wrongpass",
	})
	ghost := doJSON(t, handler, http.MethodPost, "/api/auth/login", "", LoginRequest{
		BadgeID:      "GHOST",
		SecurityCode: "anything",
	})

	// Both causes fail with the same status and the same body.
	assert.Equal(t, http.StatusUnauthorized, wrongPass.Code)
	assert.Equal(t, http.StatusUnauthorized, ghost.Code)
	assert.Equal(t, wrongPass.Body.String(), ghost.Body.String())
}

func TestAPI_Status_RequiresSession(t *testing.T) {
	handler := setupAPI(t)

	rec := doJSON(t, handler, http.MethodGet, "/api/investigation-status", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPI_QuotaScenario(t *testing.T) {
	handler := setupAPI(t)
	token := registerInvestigator(t, handler, "A123")

	// Fresh investigator: full allowance.
	rec := doJSON(t, handler, http.MethodGet, "/api/investigation-status", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.Allowed)
	assert.Equal(t, 2, status.Remaining)
	assert.Empty(t, status.Investigations)

	// First recording.
	rec = doJSON(t, handler, http.MethodPost, "/api/investigations", token, RecordRequest{
		RepoURL:   "https://github.com/example/one",
		RepoName:  "one",
		PodcastID: "pod-1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var record RecordResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
	assert.True(t, record.Recorded)
	assert.Equal(t, 1, record.Status.Remaining)

	// Second recording exhausts the quota.
	rec = doJSON(t, handler, http.MethodPost, "/api/investigations", token, RecordRequest{
		RepoURL:   "https://github.com/example/two",
		RepoName:  "two",
		PodcastID: "pod-2",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
	assert.True(t, record.Recorded)
	assert.Equal(t, 0, record.Status.Remaining)
	assert.False(t, record.Status.Allowed)
	assert.Equal(t, quota.ExhaustedMessage, record.Status.Message)

	// Third attempt is rejected in place and leaves history untouched.
	rec = doJSON(t, handler, http.MethodPost, "/api/investigations", token, RecordRequest{
		RepoURL:   "https://github.com/example/three",
		RepoName:  "three",
		PodcastID: "pod-3",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
	assert.False(t, record.Recorded)

	rec = doJSON(t, handler, http.MethodGet, "/api/investigations", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history []InvestigationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history, 2)
	assert.Equal(t, "one", history[0].RepoName)
	assert.Equal(t, "two", history[1].RepoName)
}

func TestAPI_Record_Validation(t *testing.T) {
	handler := setupAPI(t)
	token := registerInvestigator(t, handler, "A123")

	rec := doJSON(t, handler, http.MethodPost, "/api/investigations", token, RecordRequest{RepoName: "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_Access_Anonymous(t *testing.T) {
	handler := setupAPI(t)

	rec := doJSON(t, handler, http.MethodGet, "/api/access?repo=https%3A%2F%2Fgithub.com%2Fexample%2Frepo", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AccessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Allowed)
	assert.Contains(t, resp.RedirectURL, "/login?callbackUrl=")
	assert.Equal(t, access.AuthRequiredMessage, resp.Status.Message)
}

func TestAPI_Access_WithSession(t *testing.T) {
	handler := setupAPI(t)
	token := registerInvestigator(t, handler, "A123")

	rec := doJSON(t, handler, http.MethodGet, "/api/access?repo=https%3A%2F%2Fgithub.com%2Fexample%2Frepo", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AccessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Allowed)
	assert.Empty(t, resp.RedirectURL)
	assert.Equal(t, 2, resp.Status.Remaining)
}

func TestAPI_Access_BearerToken(t *testing.T) {
	handler := setupAPI(t)
	token := registerInvestigator(t, handler, "A123")

	// The access check honors the Authorization header like every other
	// protected surface, not just the cookie.
	req := httptest.NewRequest(http.MethodGet, "/api/access?repo=https%3A%2F%2Fgithub.com%2Fexample%2Frepo", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AccessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Allowed)
	assert.Empty(t, resp.RedirectURL)
}

func TestAPI_Access_CountsAllowedDecisions(t *testing.T) {
	handler := setupAPI(t)
	token := registerInvestigator(t, handler, "A123")

	before := testutil.ToFloat64(metrics.QuotaDecisions.WithLabelValues(metrics.DecisionAllowed))

	rec := doJSON(t, handler, http.MethodGet, "/api/access?repo=https%3A%2F%2Fgithub.com%2Fexample%2Frepo", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	after := testutil.ToFloat64(metrics.QuotaDecisions.WithLabelValues(metrics.DecisionAllowed))
	assert.Equal(t, before+1, after)
}

func TestAPI_Access_Exhausted(t *testing.T) {
	handler := setupAPI(t)
	token := registerInvestigator(t, handler, "A123")

	for _, name := range []string{"one", "two"} {
		rec := doJSON(t, handler, http.MethodPost, "/api/investigations", token, RecordRequest{
			RepoURL:  "https://github.com/example/" + name,
			RepoName: name,
		})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doJSON(t, handler, http.MethodGet, "/api/access?repo=https%3A%2F%2Fgithub.com%2Fexample%2Fmore", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AccessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	// Exhaustion denies in place: no redirect.
	assert.False(t, resp.Allowed)
	assert.Empty(t, resp.RedirectURL)
}

func TestAPI_Health(t *testing.T) {
	handler := setupAPI(t)

	rec := doJSON(t, handler, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAPI_Stats_Public(t *testing.T) {
	handler := setupAPI(t)
	token := registerInvestigator(t, handler, "A123")

	rec := doJSON(t, handler, http.MethodPost, "/api/investigations", token, RecordRequest{
		RepoURL:  "https://github.com/example/one",
		RepoName: "one",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/stats", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Investigators)
	assert.Equal(t, 1, stats.Investigations)
}

func TestAPI_Logout_ClearsCookie(t *testing.T) {
	handler := setupAPI(t)
	token := registerInvestigator(t, handler, "A123")

	rec := doJSON(t, handler, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared, "session cookie should be cleared")
}
