// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	userstore "github.com/ipt-ti2/iptgram/internal/app/store/users"
	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per key. It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	limit   rate.Limit
	burst   int
	idle    time.Duration // entries unused this long are dropped
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New creates a limiter allowing burst requests per key, refilled evenly over
// per. So New(10, time.Minute) admits 10 immediately and one more every 6s.
func New(burst int, per time.Duration) *Limiter {
	return &Limiter{
		entries: make(map[string]*entry),
		limit:   rate.Every(per / time.Duration(burst)),
		burst:   burst,
		idle:    per * 2,
	}
}

// Allow reports whether a request for key may proceed now.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = e
	}
	e.lastSeen = time.Now()
	lim := e.limiter
	l.mu.Unlock()

	return lim.Allow()
}

// Reset forgets key, restoring its full burst.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Sweep drops entries idle since before now-idle.
func (l *Limiter) Sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, e := range l.entries {
		if now.Sub(e.lastSeen) > l.idle {
			delete(l.entries, key)
		}
	}
}

// Run sweeps idle entries until ctx is done.
func (l *Limiter) Run(ctx context.Context) {
	ticker := time.NewTicker(l.idle)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.Sweep(now)
		}
	}
}

// ClientIP extracts the client IP from an HTTP request.
// It checks X-Forwarded-For and X-Real-IP headers first (for proxied requests),
// then falls back to RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// LoginLimiter throttles password sign-in attempts per client IP and per
// user name.
type LoginLimiter struct {
	ip   *Limiter
	user *Limiter
}

// NewLoginLimiter uses 10 attempts per IP per minute and 5 per user name per
// 5 minutes.
func NewLoginLimiter() *LoginLimiter {
	return NewLoginLimiterWithConfig(10, time.Minute, 5, 5*time.Minute)
}

// NewLoginLimiterWithConfig creates a login limiter with custom limits.
func NewLoginLimiterWithConfig(ipLimit int, ipPer time.Duration, userLimit int, userPer time.Duration) *LoginLimiter {
	return &LoginLimiter{
		ip:   New(ipLimit, ipPer),
		user: New(userLimit, userPer),
	}
}

// Check reports whether a sign-in attempt for userName may proceed.
func (ll *LoginLimiter) Check(r *http.Request, userName string) bool {
	if !ll.ip.Allow(ClientIP(r)) {
		return false
	}
	if key := userKey(userName); key != "" {
		return ll.user.Allow(key)
	}
	return true
}

// ResetUser clears the per-user bucket after a successful sign-in.
func (ll *LoginLimiter) ResetUser(userName string) {
	if key := userKey(userName); key != "" {
		ll.user.Reset(key)
	}
}

// Run sweeps both limiters until ctx is done.
func (ll *LoginLimiter) Run(ctx context.Context) {
	go ll.ip.Run(ctx)
	ll.user.Run(ctx)
}

// userKey folds the name the same way the user store does, so every
// spelling that signs in as one account shares one bucket.
func userKey(userName string) string {
	return userstore.NormalizeUserName(userName)
}
