package auth

import (
	"context"
	"net/http"

	"go.uber.org/zap"
)

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user & “found?” flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok && u != nil
}

// WithTestUser injects u into the request context, bypassing the cookie.
// Intended for handler tests.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

// LoadSessionUser injects the user into context if they are signed in.
//
// With a UserFetcher set, the user is reloaded on every request; a user that
// was deleted or whose security stamp changed (password reset) is treated as
// signed out.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := sm.sessionUser(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		if sm.fetcher != nil {
			fresh := sm.fetcher.FetchUser(r.Context(), u.ID)
			if fresh == nil {
				next.ServeHTTP(w, r)
				return
			}
			if fresh.SecurityStamp != u.SecurityStamp {
				sm.log.Info("session rejected: security stamp changed",
					zap.String("user_id", u.ID))
				next.ServeHTTP(w, r)
				return
			}
			u = fresh
		}

		next.ServeHTTP(w, withUser(r, u))
	})
}

// RequireSignedIn ensures there is a user in context (set by LoadSessionUser).
// Anonymous requests are challenged; see Challenge.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		sm.Challenge(w, r)
	})
}

// Challenge answers an unauthenticated request:
//   - API paths (policy APIPrefix): 401 with an empty body.
//   - Everything else: 302 to LoginPath?ReturnUrl=<original URI>.
func (sm *SessionManager) Challenge(w http.ResponseWriter, r *http.Request) {
	if sm.policy.IsAPIPath(r.URL.Path) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, sm.policy.LoginRedirect(r), http.StatusFound)
}

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}
