// ABOUTME: Tests for the session gate middleware
// ABOUTME: Covers the public allowlist, cookie/bearer extraction, and denial modes

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redvault/vault-gateway/internal/store"
)

func newGatedHandler(t *testing.T, issuer *Issuer) http.Handler {
	t.Helper()
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := SessionFromContext(r.Context())
		if sess != nil {
			w.Header().Set("X-Badge", sess.BadgeID)
		}
		w.WriteHeader(http.StatusOK)
	})
	return RequireSession(issuer, nil)(inner)
}

func TestRequireSession_PublicPathsBypass(t *testing.T) {
	issuer := NewIssuer([]byte("test-secret"), time.Hour)
	handler := newGatedHandler(t, issuer)

	for _, path := range []string{"/", "/login", "/api/auth/login", "/api/health", "/api/stats", "/api/podcasts", "/api/podcasts/42"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "path %s should be public", path)
	}
}

func TestRequireSession_ProtectedPageRedirects(t *testing.T) {
	issuer := NewIssuer([]byte("test-secret"), time.Hour)
	handler := newGatedHandler(t, issuer)

	req := httptest.NewRequest(http.MethodGet, "/dossier?repo=x", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?callbackUrl=%2Fdossier%3Frepo%3Dx", rec.Header().Get("Location"))
}

func TestRequireSession_ProtectedAPIGets401(t *testing.T) {
	issuer := NewIssuer([]byte("test-secret"), time.Hour)
	handler := newGatedHandler(t, issuer)

	req := httptest.NewRequest(http.MethodPost, "/api/investigations", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"authentication required"}`, rec.Body.String())
}

func TestRequireSession_ValidCookie(t *testing.T) {
	issuer := NewIssuer([]byte("test-secret"), time.Hour)
	handler := newGatedHandler(t, issuer)

	token, err := issuer.Issue(&store.Investigator{ID: "inv-001", BadgeID: "A123", Role: store.RoleInvestigator})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/dossier", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "A123", rec.Header().Get("X-Badge"))
}

func TestRequireSession_ValidBearer(t *testing.T) {
	issuer := NewIssuer([]byte("test-secret"), time.Hour)
	handler := newGatedHandler(t, issuer)

	token, err := issuer.Issue(&store.Investigator{ID: "inv-001", BadgeID: "A123", Role: store.RoleInvestigator})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/investigations", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireSession_InvalidToken(t *testing.T) {
	issuer := NewIssuer([]byte("test-secret"), time.Hour)
	handler := newGatedHandler(t, issuer)

	req := httptest.NewRequest(http.MethodGet, "/dossier", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "garbage"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestIsPublicPath(t *testing.T) {
	paths := DefaultPublicPaths

	assert.True(t, isPublicPath("/", paths))
	assert.True(t, isPublicPath("/login", paths))
	assert.True(t, isPublicPath("/api/auth/register", paths))
	assert.False(t, isPublicPath("/dossier", paths))
	assert.False(t, isPublicPath("/api/investigations", paths))
	// "/" must not turn the allowlist into allow-everything.
	assert.False(t, isPublicPath("/anything", []string{"/"}))
}
