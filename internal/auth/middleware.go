// ABOUTME: HTTP middleware gating protected surfaces behind a valid session
// ABOUTME: Public paths bypass the gate; everything else redirects or gets 401

package auth

import (
	"net/http"
	"net/url"
	"strings"
)

// SessionCookieName is the name of the session token cookie.
const SessionCookieName = "vault_session"

// LoginPath is where unauthenticated page requests are sent.
const LoginPath = "/login"

// DefaultPublicPaths lists the surfaces that bypass the session gate.
// A request matches on the exact path or any subpath.
var DefaultPublicPaths = []string{
	"/",
	"/login",
	"/api/auth",
	"/api/health",
	"/api/stats",
	"/api/podcasts",
	"/metrics",
}

// isPublicPath reports whether the path matches the allowlist, either
// exactly or as a subpath. "/" only matches itself.
func isPublicPath(path string, publicPaths []string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
		if p != "/" && strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// TokenFromRequest pulls the session token from the cookie or, failing that,
// the Authorization header. Returns "" when neither is present.
func TokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// LoginRedirectURL builds the login URL carrying the original target as a
// callback parameter so the login flow can send the caller back.
func LoginRedirectURL(target string) string {
	return LoginPath + "?callbackUrl=" + url.QueryEscape(target)
}

// RequireSession creates middleware that validates the session token and
// attaches the Session to the request context. Paths on the allowlist pass
// through untouched. Requests without a valid session get a 401 JSON body
// on API paths and a redirect to the login surface everywhere else.
func RequireSession(issuer *Issuer, publicPaths []string) func(http.Handler) http.Handler {
	if publicPaths == nil {
		publicPaths = DefaultPublicPaths
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path, publicPaths) {
				next.ServeHTTP(w, r)
				return
			}

			token := TokenFromRequest(r)
			if token == "" {
				denySession(w, r)
				return
			}

			sess, err := issuer.Validate(token)
			if err != nil {
				denySession(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

// denySession rejects an unauthenticated request: JSON 401 for API calls,
// login redirect for page requests.
func denySession(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"authentication required"}`))
		return
	}

	target := r.URL.Path
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	http.Redirect(w, r, LoginRedirectURL(target), http.StatusSeeOther)
}
