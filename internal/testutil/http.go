package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/ipt-ti2/iptgram/internal/app/system/auth"
	"go.uber.org/zap"
)

// TestSessionKey is a 32+ character signing key for test session managers.
const TestSessionKey = "test-session-key-must-be-32-chars-long"

// NewSessionManager returns a session manager with the default cookie policy.
func NewSessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager(TestSessionKey, auth.DefaultCookiePolicy(), zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	return sm
}

// BootTemplates compiles every template set registered so far and installs
// the engine for templates.Render. Feature packages register their sets in
// init, so importing the feature is enough.
func BootTemplates(t *testing.T) {
	t.Helper()
	eng := templates.New(true)
	if err := eng.Boot(zap.NewNop()); err != nil {
		t.Fatalf("boot templates: %v", err)
	}
	templates.UseEngine(eng, zap.NewNop())
}

// WithUser adds a user to the request context for testing authenticated handlers.
// This bypasses the session middleware and injects the user directly.
func WithUser(r *http.Request, id, userName string) *http.Request {
	return auth.WithTestUser(r, &auth.SessionUser{ID: id, UserName: userName})
}

// NewJSONRequest creates a request with a JSON body.
func NewJSONRequest(method, target, body string) *http.Request {
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// AddCookies copies cookies from a previous response onto req.
func AddCookies(req *http.Request, cookies []*http.Cookie) *http.Request {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

// ResponseRecorder wraps httptest.ResponseRecorder with helper methods.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

// NewRecorder creates a new ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t interface{ Errorf(string, ...any) }, expected int) {
	if r.Code != expected {
		t.Errorf("status code: got %d, want %d", r.Code, expected)
	}
}

// AssertRedirectPrefix checks for a redirect whose Location starts with prefix.
func (r *ResponseRecorder) AssertRedirectPrefix(t interface{ Errorf(string, ...any) }, prefix string) {
	if r.Code != http.StatusSeeOther && r.Code != http.StatusFound && r.Code != http.StatusMovedPermanently {
		t.Errorf("expected redirect status, got %d", r.Code)
	}
	if location := r.Header().Get("Location"); !strings.HasPrefix(location, prefix) {
		t.Errorf("redirect location: got %q, want prefix %q", location, prefix)
	}
}

// AssertContains checks if the response body contains the expected string.
func (r *ResponseRecorder) AssertContains(t interface{ Errorf(string, ...any) }, expected string) {
	if body := r.Body.String(); !strings.Contains(body, expected) {
		t.Errorf("response body does not contain %q", expected)
	}
}

// AssertEmptyBody checks the response wrote no body bytes.
func (r *ResponseRecorder) AssertEmptyBody(t interface{ Errorf(string, ...any) }) {
	if r.Body.Len() != 0 {
		t.Errorf("expected empty body, got %q", r.Body.String())
	}
}
