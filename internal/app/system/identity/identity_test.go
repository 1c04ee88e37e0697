package identity_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	userstore "github.com/ipt-ti2/iptgram/internal/app/store/users"
	"github.com/ipt-ti2/iptgram/internal/app/system/auth"
	"github.com/ipt-ti2/iptgram/internal/app/system/identity"
	"github.com/ipt-ti2/iptgram/internal/domain/models"
	"github.com/ipt-ti2/iptgram/internal/testutil"
	"go.uber.org/zap"
)

func TestUserManager_CreateHashesPassword(t *testing.T) {
	_, store := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, store)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fx.CreateUser(ctx, "ana", "abcdefgh")
	if u.PasswordHash == "" || u.PasswordHash == "abcdefgh" {
		t.Errorf("expected bcrypt hash, got %q", u.PasswordHash)
	}
	if !fx.Users.CheckPassword(&u, "abcdefgh") {
		t.Error("expected password to verify")
	}
	if fx.Users.CheckPassword(&u, "wrong-password") {
		t.Error("expected wrong password to fail")
	}
}

func TestUserManager_CreateRejectsPolicyViolation(t *testing.T) {
	_, store := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, store)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := fx.Users.Create(ctx, models.User{UserName: "bob"}, "abc")
	var pe *identity.PasswordError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *PasswordError, got %v", err)
	}
	if n, _ := store.Count(ctx); n != 0 {
		t.Errorf("expected no user stored, got %d", n)
	}
}

func TestUserManager_CreateRejectsOverlongPassword(t *testing.T) {
	_, store := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, store)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := fx.Users.Create(ctx, models.User{UserName: "bob"}, strings.Repeat("a", 73))
	var pe *identity.PasswordError
	if !errors.As(err, &pe) || !errors.Is(err, identity.ErrPasswordTooLong) {
		t.Fatalf("expected *PasswordError with ErrPasswordTooLong, got %v", err)
	}
}

func TestUserManager_CreateDuplicate(t *testing.T) {
	_, store := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, store)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx.CreateUser(ctx, "carla", "abcdefgh")
	_, err := fx.Users.Create(ctx, models.User{UserName: "Carla"}, "abcdefgh")
	if !errors.Is(err, userstore.ErrDuplicateUserName) {
		t.Errorf("expected ErrDuplicateUserName, got %v", err)
	}
}

func TestUserManager_ChangePasswordRotatesStamp(t *testing.T) {
	_, store := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, store)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fx.CreateUser(ctx, "dora", "abcdefgh")
	oldStamp := u.SecurityStamp

	if err := fx.Users.ChangePassword(ctx, &u, "wrong", "new-secret"); !errors.Is(err, identity.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := fx.Users.ChangePassword(ctx, &u, "abcdefgh", "new-secret"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	stored, err := store.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.SecurityStamp == oldStamp {
		t.Error("expected security stamp to rotate")
	}
	if !fx.Users.CheckPassword(stored, "new-secret") {
		t.Error("expected new password to verify")
	}
}

func newSignIn(t *testing.T) (*identity.SignInManager, *testutil.Fixtures) {
	t.Helper()
	_, store := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, store)
	return identity.NewSignInManager(fx.Users, testutil.NewSessionManager(t), zap.NewNop()), fx
}

func TestPasswordSignIn_Success(t *testing.T) {
	sim, fx := newSignIn(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx.CreateUser(ctx, "eva", "abcdefgh")

	req := httptest.NewRequest("POST", "/api/account/login", nil)
	rec := httptest.NewRecorder()
	u, err := sim.PasswordSignIn(rec, req, "EVA", "abcdefgh", false)
	if err != nil {
		t.Fatalf("PasswordSignIn failed: %v", err)
	}
	if u.UserName != "eva" {
		t.Errorf("UserName: got %q", u.UserName)
	}
	if len(rec.Result().Cookies()) == 0 {
		t.Error("expected auth cookie")
	}
}

func TestPasswordSignIn_BadCredentials(t *testing.T) {
	sim, fx := newSignIn(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx.CreateUser(ctx, "filipa", "abcdefgh")

	for _, tc := range []struct{ user, pw string }{
		{"filipa", "wrong-one"},
		{"nobody", "abcdefgh"},
	} {
		req := httptest.NewRequest("POST", "/api/account/login", nil)
		rec := httptest.NewRecorder()
		_, err := sim.PasswordSignIn(rec, req, tc.user, tc.pw, false)
		if !errors.Is(err, identity.ErrInvalidCredentials) {
			t.Errorf("%s/%s: expected ErrInvalidCredentials, got %v", tc.user, tc.pw, err)
		}
		if len(rec.Result().Cookies()) != 0 {
			t.Errorf("%s/%s: expected no cookie on failure", tc.user, tc.pw)
		}
	}
}

func TestFetcher_ReloadsUser(t *testing.T) {
	sim, fx := newSignIn(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := fx.CreateUser(ctx, "gil", "abcdefgh")

	f := identity.Fetcher{Users: sim.Users}
	got := f.FetchUser(ctx, u.ID)
	if got == nil || got.UserName != "gil" || got.SecurityStamp != u.SecurityStamp {
		t.Errorf("FetchUser returned %+v", got)
	}
	if f.FetchUser(ctx, "missing") != nil {
		t.Error("expected nil for unknown user")
	}
}

func TestFetcher_PasswordChangeInvalidatesCookie(t *testing.T) {
	sim, fx := newSignIn(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := fx.CreateUser(ctx, "hugo", "abcdefgh")

	loginRec := httptest.NewRecorder()
	if _, err := sim.PasswordSignIn(loginRec, httptest.NewRequest("POST", "/api/account/login", nil), "hugo", "abcdefgh", true); err != nil {
		t.Fatalf("PasswordSignIn failed: %v", err)
	}
	cookies := loginRec.Result().Cookies()

	sim.Sessions.SetUserFetcher(identity.Fetcher{Users: sim.Users})
	if err := sim.Users.ChangePassword(ctx, &u, "abcdefgh", "outra-senha"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	var signedIn bool
	h := sim.Sessions.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, signedIn = auth.CurrentUser(r)
	}))
	req := testutil.AddCookies(httptest.NewRequest("GET", "/", nil), cookies)
	h.ServeHTTP(httptest.NewRecorder(), req)

	if signedIn {
		t.Error("expected old cookie to be rejected after password change")
	}
}
