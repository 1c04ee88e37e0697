package auth

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SecurePolicy decides when the session cookie carries the Secure flag.
type SecurePolicy string

const (
	SecureNone          SecurePolicy = "none"            // never Secure; cookie also sent over plain HTTP
	SecureAlways        SecurePolicy = "always"          // always Secure
	SecureSameAsRequest SecurePolicy = "same_as_request" // Secure only when the request arrived over TLS
)

// ParseSecurePolicy maps a config value to a SecurePolicy.
func ParseSecurePolicy(s string) (SecurePolicy, error) {
	switch p := SecurePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case SecureNone, SecureAlways, SecureSameAsRequest:
		return p, nil
	case "":
		return SecureNone, nil
	default:
		return "", fmt.Errorf("unknown cookie secure policy %q (want none|always|same_as_request)", s)
	}
}

// ParseSameSite maps a config value to an http.SameSite mode.
func ParseSameSite(s string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return http.SameSiteNoneMode, nil
	case "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	default:
		return 0, fmt.Errorf("unknown cookie same-site mode %q (want none|lax|strict)", s)
	}
}

// CookiePolicy configures the authentication cookie and how unauthenticated
// requests are challenged.
type CookiePolicy struct {
	Name       string
	Domain     string
	LoginPath  string
	LogoutPath string
	// APIPrefix marks paths that get a bare 401 instead of a login redirect.
	APIPrefix    string
	HTTPOnly     bool
	SecurePolicy SecurePolicy
	SameSite     http.SameSite
	MaxAge       time.Duration
}

// DefaultCookiePolicy returns the policy the app ships with: HTTP-only,
// not Secure, SameSite=None, API paths under /api.
func DefaultCookiePolicy() CookiePolicy {
	return CookiePolicy{
		Name:         "iptgram-session",
		LoginPath:    "/api/account/login",
		LogoutPath:   "/api/account/logout",
		APIPrefix:    "/api",
		HTTPOnly:     true,
		SecurePolicy: SecureNone,
		SameSite:     http.SameSiteNoneMode,
		MaxAge:       14 * 24 * time.Hour,
	}
}

// IsAPIPath reports whether path starts with the API prefix at a segment
// boundary, ignoring case: "/api" and "/API/x" match, "/apiary" does not.
func (p CookiePolicy) IsAPIPath(path string) bool {
	return startsWithSegments(path, p.APIPrefix)
}

// LoginRedirect builds the login URL for a challenged request, carrying the
// original URI as ReturnUrl.
func (p CookiePolicy) LoginRedirect(r *http.Request) string {
	return p.LoginPath + "?ReturnUrl=" + url.QueryEscape(r.URL.RequestURI())
}

// Permissive lists the settings that relax cookie security, for startup warnings.
func (p CookiePolicy) Permissive() []string {
	var out []string
	if p.SecurePolicy == SecureNone {
		out = append(out, "cookie secure policy is none (cookie sent over plain HTTP)")
	}
	if p.SameSite == http.SameSiteNoneMode {
		out = append(out, "cookie SameSite=None (cookie sent on cross-site requests)")
	}
	if !p.HTTPOnly {
		out = append(out, "cookie is readable from scripts (HttpOnly=false)")
	}
	return out
}

func (p CookiePolicy) secureFor(r *http.Request) bool {
	switch p.SecurePolicy {
	case SecureAlways:
		return true
	case SecureSameAsRequest:
		return r != nil && r.TLS != nil
	default:
		return false
	}
}

func startsWithSegments(path, prefix string) bool {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return false
	}
	if len(path) < len(prefix) || !strings.EqualFold(path[:len(prefix)], prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}
