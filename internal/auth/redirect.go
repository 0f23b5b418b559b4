// ABOUTME: Post-login redirect reconciliation
// ABOUTME: Rejects cross-origin absolute targets to prevent open redirects

package auth

import (
	"net/url"
	"strings"
)

// RedirectTarget reconciles a requested post-login destination against the
// application base URL. Relative targets resolve against the base, absolute
// same-origin targets pass through, and everything else falls back to the
// base URL.
func RedirectTarget(requested, base string) string {
	if requested == "" {
		return base
	}

	if strings.HasPrefix(requested, "/") {
		// Scheme-relative URLs ("//evil.example") are absolute in disguise.
		if strings.HasPrefix(requested, "//") {
			return base
		}
		return strings.TrimRight(base, "/") + requested
	}

	reqURL, err := url.Parse(requested)
	if err != nil || !reqURL.IsAbs() {
		return base
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return base
	}

	if reqURL.Scheme == baseURL.Scheme && reqURL.Host == baseURL.Host {
		return requested
	}

	return base
}
