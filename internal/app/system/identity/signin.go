package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	userstore "github.com/ipt-ti2/iptgram/internal/app/store/users"
	"github.com/ipt-ti2/iptgram/internal/app/system/auth"
	"github.com/ipt-ti2/iptgram/internal/app/system/timeouts"
	"github.com/ipt-ti2/iptgram/internal/domain/models"
	"go.uber.org/zap"
)

// SignInManager signs users in and out with the auth cookie.
type SignInManager struct {
	Users    *UserManager
	Sessions *auth.SessionManager
	Log      *zap.Logger
}

// NewSignInManager wires a SignInManager.
func NewSignInManager(users *UserManager, sessions *auth.SessionManager, logger *zap.Logger) *SignInManager {
	return &SignInManager{Users: users, Sessions: sessions, Log: logger}
}

// PasswordSignIn checks the credentials and, on success, issues the auth
// cookie. Unknown users and wrong passwords both return ErrInvalidCredentials.
func (s *SignInManager) PasswordSignIn(w http.ResponseWriter, r *http.Request, userName, password string, persistent bool) (*models.User, error) {
	u, err := s.Users.FindByName(r.Context(), userName)
	if errors.Is(err, userstore.ErrNotFound) {
		s.Users.CheckPasswordMissingUser(password)
		s.Log.Info("sign-in failed", zap.String("user_name", userName), zap.String("reason", "user_not_found"))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !s.Users.CheckPassword(u, password) {
		s.Log.Info("sign-in failed", zap.String("user_name", userName), zap.String("reason", "bad_password"))
		return nil, ErrInvalidCredentials
	}

	if err := s.Sessions.SignIn(w, r, ToSessionUser(u), persistent); err != nil {
		return nil, err
	}
	s.Log.Info("sign-in succeeded", zap.String("user_id", u.ID), zap.String("user_name", u.UserName))
	return u, nil
}

// SignOut clears the auth cookie.
func (s *SignInManager) SignOut(w http.ResponseWriter, r *http.Request) error {
	return s.Sessions.SignOut(w, r)
}

// ToSessionUser projects a stored user onto the cookie payload.
func ToSessionUser(u *models.User) auth.SessionUser {
	return auth.SessionUser{
		ID:            u.ID,
		UserName:      u.UserName,
		Name:          u.Name,
		Email:         u.Email,
		SecurityStamp: u.SecurityStamp,
	}
}

// Fetcher implements auth.UserFetcher over the user manager so every request
// sees the stored user rather than the cookie snapshot.
type Fetcher struct {
	Users *UserManager
}

// FetchUser returns nil if the user is gone or the lookup fails.
func (f Fetcher) FetchUser(ctx context.Context, userID string) *auth.SessionUser {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	u, err := f.Users.FindByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, userstore.ErrNotFound) {
			f.Users.Log.Warn("user refresh failed", zap.String("user_id", userID), zap.Error(err))
		}
		return nil
	}
	su := ToSessionUser(u)
	return &su
}
