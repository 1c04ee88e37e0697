package account_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ipt-ti2/iptgram/internal/app/features/account"
	"github.com/ipt-ti2/iptgram/internal/app/system/identity"
	"github.com/ipt-ti2/iptgram/internal/app/system/metrics"
	"github.com/ipt-ti2/iptgram/internal/app/system/ratelimit"
	"github.com/ipt-ti2/iptgram/internal/testutil"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
)

type testEnv struct {
	router  http.Handler
	fx      *testutil.Fixtures
	metrics *metrics.Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	_, store := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, store)

	sm := testutil.NewSessionManager(t)
	sm.SetUserFetcher(identity.Fetcher{Users: fx.Users})
	sim := identity.NewSignInManager(fx.Users, sm, zap.NewNop())

	m := metrics.New()
	limiter := ratelimit.NewLoginLimiterWithConfig(100, time.Minute, 3, time.Minute)
	h := account.NewHandler(sim, limiter, m, zap.NewNop())

	r := chi.NewRouter()
	r.Use(sm.LoadSessionUser)
	r.Mount("/api/account", account.Routes(h, sm))
	return &testEnv{router: r, fx: fx, metrics: m}
}

func (e *testEnv) do(req *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T, user, pw string) []*http.Cookie {
	t.Helper()
	rec := e.do(testutil.NewJSONRequest("POST", "/api/account/login", `{"username":"`+user+`","password":"`+pw+`"}`))
	rec.AssertStatus(t, http.StatusOK)
	return rec.Result().Cookies()
}

func TestLogin_JSONSuccess(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	env.fx.CreateUser(ctx, "ana", "abcdefgh")

	rec := env.do(testutil.NewJSONRequest("POST", "/api/account/login", `{"username":"Ana","password":"abcdefgh","remember_me":true}`))
	rec.AssertStatus(t, http.StatusOK)

	var body struct {
		Authenticated bool `json:"authenticated"`
		User          struct {
			UserName string `json:"username"`
		} `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Authenticated || body.User.UserName != "ana" {
		t.Errorf("unexpected body %s", rec.Body.String())
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "iptgram-session" {
		t.Fatalf("expected auth cookie, got %v", cookies)
	}
	if !cookies[0].HttpOnly {
		t.Error("auth cookie must be HttpOnly")
	}
	if cookies[0].SameSite != http.SameSiteNoneMode {
		t.Errorf("SameSite: got %v", cookies[0].SameSite)
	}
	if got := promtestutil.ToFloat64(env.metrics.SignIns.WithLabelValues("success")); got != 1 {
		t.Errorf("success sign-ins: got %v", got)
	}
}

func TestLogin_FormSuccess(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	env.fx.CreateUser(ctx, "bruno", "abcdefgh")

	form := url.Values{"username": {"bruno"}, "password": {"abcdefgh"}}
	req := httptest.NewRequest("POST", "/api/account/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := env.do(req)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"username":"bruno"`)
}

func TestLogin_BadCredentialsIs401EmptyBody(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	env.fx.CreateUser(ctx, "carla", "abcdefgh")

	for _, body := range []string{
		`{"username":"carla","password":"wrong-pass"}`,
		`{"username":"ghost","password":"abcdefgh"}`,
	} {
		rec := env.do(testutil.NewJSONRequest("POST", "/api/account/login", body))
		rec.AssertStatus(t, http.StatusUnauthorized)
		rec.AssertEmptyBody(t)
		if len(rec.Result().Cookies()) != 0 {
			t.Error("no cookie expected on failure")
		}
	}
}

func TestLogin_InvalidBody(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(testutil.NewJSONRequest("POST", "/api/account/login", `{not json`))
	rec.AssertStatus(t, http.StatusBadRequest)

	rec = env.do(testutil.NewJSONRequest("POST", "/api/account/login", `{"username":"ana"}`))
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "Password is required.")
}

func TestLogin_Throttled(t *testing.T) {
	env := newTestEnv(t)
	body := `{"username":"dora","password":"wrong-pass"}`

	for i := 0; i < 3; i++ {
		env.do(testutil.NewJSONRequest("POST", "/api/account/login", body)).AssertStatus(t, http.StatusUnauthorized)
	}
	rec := env.do(testutil.NewJSONRequest("POST", "/api/account/login", body))
	rec.AssertStatus(t, http.StatusTooManyRequests)
}

func TestLoginStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	env.fx.CreateUser(ctx, "eva", "abcdefgh")

	rec := env.do(httptest.NewRequest("GET", "/api/account/login", nil))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"authenticated":false`)
	rec.AssertContains(t, `"login_path":"/api/account/login"`)

	cookies := env.login(t, "eva", "abcdefgh")
	rec = env.do(testutil.AddCookies(httptest.NewRequest("GET", "/api/account/login", nil), cookies))
	rec.AssertContains(t, `"authenticated":true`)
	rec.AssertContains(t, `"username":"eva"`)
}

func TestMe_RequiresSignIn(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest("GET", "/api/account/me", nil))
	rec.AssertStatus(t, http.StatusUnauthorized)
	rec.AssertEmptyBody(t)
	if loc := rec.Header().Get("Location"); loc != "" {
		t.Errorf("API challenge must not redirect, got Location %q", loc)
	}
}

func TestMe_SignedIn(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	env.fx.CreateUser(ctx, "filipe", "abcdefgh")

	cookies := env.login(t, "filipe", "abcdefgh")
	rec := env.do(testutil.AddCookies(httptest.NewRequest("GET", "/api/account/me", nil), cookies))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"username":"filipe"`)
}

func TestLogout_ClearsCookie(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	env.fx.CreateUser(ctx, "gil", "abcdefgh")
	cookies := env.login(t, "gil", "abcdefgh")

	rec := env.do(testutil.AddCookies(httptest.NewRequest("POST", "/api/account/logout", nil), cookies))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"authenticated":false`)

	cleared := rec.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge >= 0 {
		t.Fatalf("expected expired cookie, got %v", cleared)
	}

	me := env.do(testutil.AddCookies(httptest.NewRequest("GET", "/api/account/me", nil), cleared))
	me.AssertStatus(t, http.StatusUnauthorized)
}

func TestLogout_FormPostRedirects(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	env.fx.CreateUser(ctx, "gaspar", "abcdefgh")
	cookies := env.login(t, "gaspar", "abcdefgh")

	req := httptest.NewRequest("POST", "/api/account/logout", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := env.do(testutil.AddCookies(req, cookies))
	rec.AssertStatus(t, http.StatusSeeOther)
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Errorf("Location: got %q, want /", loc)
	}
	if cleared := rec.Result().Cookies(); len(cleared) != 1 || cleared[0].MaxAge >= 0 {
		t.Errorf("expected expired cookie, got %v", cleared)
	}

	req = httptest.NewRequest("POST", "/api/account/logout?ReturnUrl="+url.QueryEscape("/Home/Index"), strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	env.do(req).AssertRedirectPrefix(t, "/Home/Index")

	req = httptest.NewRequest("POST", "/api/account/logout?ReturnUrl="+url.QueryEscape("https://evil.example/"), strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if loc := env.do(req).Header().Get("Location"); loc != "/" {
		t.Errorf("off-site ReturnUrl must fall back to /, got %q", loc)
	}
}

func TestLogout_GetAnonymous(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(httptest.NewRequest("GET", "/api/account/logout", nil))
	rec.AssertStatus(t, http.StatusOK)
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(testutil.NewJSONRequest("POST", "/api/account/register",
		`{"username":"helena","email":"helena@ipt.pt","name":"Helena","password":"abcdefgh"}`))
	rec.AssertStatus(t, http.StatusCreated)
	rec.AssertContains(t, `"username":"helena"`)
	if len(rec.Result().Cookies()) != 1 {
		t.Error("expected registration to sign the user in")
	}
	if got := promtestutil.ToFloat64(env.metrics.Registrations); got != 1 {
		t.Errorf("registrations: got %v", got)
	}

	dup := env.do(testutil.NewJSONRequest("POST", "/api/account/register", `{"username":"HELENA","password":"abcdefgh"}`))
	dup.AssertStatus(t, http.StatusConflict)
}

func TestRegister_Rejections(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name, body, want string
	}{
		{"short password", `{"username":"ines","password":"abc"}`, "password is too short"},
		{"password over 72 bytes", `{"username":"ines","password":"` + strings.Repeat("a", 73) + `"}`, "password is too long"},
		{"bad user name", `{"username":"in es","password":"abcdefgh"}`, "User name may only contain"},
		{"bad email", `{"username":"ines","email":"nope","password":"abcdefgh"}`, "A valid email address is required."},
		{"missing password", `{"username":"ines"}`, "Password is required."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(testutil.NewJSONRequest("POST", "/api/account/register", tt.body))
			rec.AssertStatus(t, http.StatusBadRequest)
			rec.AssertContains(t, tt.want)
		})
	}
}

func TestLogin_FormRedirectsToReturnURL(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	env.fx.CreateUser(ctx, "joana", "abcdefgh")

	form := url.Values{"username": {"joana"}, "password": {"abcdefgh"}}
	req := httptest.NewRequest("POST", "/api/account/login?ReturnUrl="+url.QueryEscape("/Profile/Index"), strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := env.do(req)
	rec.AssertRedirectPrefix(t, "/Profile/Index")
}

func TestLoginStatus_EchoesReturnURL(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(httptest.NewRequest("GET", "/api/account/login?ReturnUrl="+url.QueryEscape("/Profile"), nil))
	rec.AssertContains(t, `"return_url":"/Profile"`)
}
