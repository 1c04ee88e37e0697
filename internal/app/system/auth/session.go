package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Session keys                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

const (
	isAuthKey        = "is_authenticated"
	userIDKey        = "user_id"
	userNameKey      = "user_name"
	nameKey          = "name"
	emailKey         = "email"
	securityStampKey = "security_stamp"
)

// SessionUser is what we cache in the session & inject into r.Context().
type SessionUser struct {
	ID            string `json:"id"`
	UserName      string `json:"user_name"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	SecurityStamp string `json:"-"`
}

// UserFetcher loads the current state of a signed-in user. It returns nil
// when the user no longer exists; LoadSessionUser then treats the request as
// anonymous. A returned user whose SecurityStamp differs from the one in the
// cookie is also rejected.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) *SessionUser
}

// SessionManager owns the cookie store and the cookie policy.
type SessionManager struct {
	store   *sessions.CookieStore
	policy  CookiePolicy
	fetcher UserFetcher
	log     *zap.Logger
}

// NewSessionManager builds the cookie store from the signing key and policy.
func NewSessionManager(sessionKey string, policy CookiePolicy, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide ≥32 random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}
	if policy.Name == "" {
		return nil, fmt.Errorf("session cookie name is empty")
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	store.Options = &sessions.Options{
		Domain:   policy.Domain,
		Path:     "/",
		MaxAge:   int(policy.MaxAge.Seconds()),
		Secure:   policy.SecurePolicy == SecureAlways,
		HttpOnly: policy.HTTPOnly,
		SameSite: policy.SameSite,
	}
	if policy.MaxAge > 0 {
		store.MaxAge(int(policy.MaxAge.Seconds()))
	}

	logger.Info("session store initialized",
		zap.String("cookie", policy.Name),
		zap.String("secure_policy", string(policy.SecurePolicy)),
		zap.Int("same_site", int(policy.SameSite)),
		zap.String("domain", policy.Domain))

	return &SessionManager{store: store, policy: policy, log: logger}, nil
}

// SetUserFetcher enables per-request refresh of the signed-in user.
func (sm *SessionManager) SetUserFetcher(f UserFetcher) {
	sm.fetcher = f
}

// Policy returns the cookie policy in effect.
func (sm *SessionManager) Policy() CookiePolicy {
	return sm.policy
}

// Store exposes the underlying cookie store.
func (sm *SessionManager) Store() *sessions.CookieStore {
	return sm.store
}

// GetSession returns the auth session for r. On a decode failure (rotated key,
// tampered cookie) it returns a fresh session together with the error so
// callers can still overwrite the cookie.
func (sm *SessionManager) GetSession(r *http.Request) (*sessions.Session, error) {
	return sm.store.Get(r, sm.policy.Name)
}

// SignIn writes the user into a new auth cookie. When persistent is false the
// cookie lasts only for the browser session.
func (sm *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, u SessionUser, persistent bool) error {
	sess, err := sm.GetSession(r)
	if err != nil && !isDecodeError(err) {
		return fmt.Errorf("load session: %w", err)
	}
	sm.applyOptions(sess, r)
	if !persistent {
		sess.Options.MaxAge = 0
	}

	sess.Values[isAuthKey] = true
	sess.Values[userIDKey] = u.ID
	sess.Values[userNameKey] = u.UserName
	sess.Values[nameKey] = u.Name
	sess.Values[emailKey] = u.Email
	sess.Values[securityStampKey] = u.SecurityStamp

	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// SignOut deletes the auth cookie. It succeeds even when the incoming
// cookie cannot be decoded.
func (sm *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess, err := sm.GetSession(r)
	if err != nil {
		sm.log.Warn("session decode failed during sign-out", zap.Error(err))
	}
	sm.applyOptions(sess, r)
	sess.Options.MaxAge = -1 // delete immediately
	sess.Values = map[interface{}]interface{}{}

	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// sessionUser decodes the signed-in user from the request cookie, if any.
func (sm *SessionManager) sessionUser(r *http.Request) (*SessionUser, bool) {
	sess, err := sm.GetSession(r)
	if err != nil {
		if isDecodeError(err) {
			sm.log.Debug("ignoring undecodable session cookie", zap.Error(err))
		} else {
			sm.log.Warn("session load failed", zap.Error(err))
		}
		return nil, false
	}
	if isAuth, _ := sess.Values[isAuthKey].(bool); !isAuth {
		return nil, false
	}
	return &SessionUser{
		ID:            getString(sess, userIDKey),
		UserName:      getString(sess, userNameKey),
		Name:          getString(sess, nameKey),
		Email:         getString(sess, emailKey),
		SecurityStamp: getString(sess, securityStampKey),
	}, true
}

func (sm *SessionManager) applyOptions(sess *sessions.Session, r *http.Request) {
	opts := *sm.store.Options
	opts.Secure = sm.policy.secureFor(r)
	sess.Options = &opts
}

// getString safely extracts a string from a session value.
func getString(s *sessions.Session, key string) string {
	if v, ok := s.Values[key].(string); ok {
		return v
	}
	return ""
}

func isDecodeError(err error) bool {
	var scErr securecookie.Error
	if errors.As(err, &scErr) {
		return scErr.IsDecode()
	}
	return false
}
