package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiter_AllowsBurstThenBlocks(t *testing.T) {
	l := New(3, time.Hour)
	for i := 0; i < 3; i++ {
		if !l.Allow("k") {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	if l.Allow("k") {
		t.Error("fourth attempt should be blocked")
	}
	if !l.Allow("other") {
		t.Error("other keys are independent")
	}
}

func TestLimiter_Reset(t *testing.T) {
	l := New(1, time.Hour)
	l.Allow("k")
	if l.Allow("k") {
		t.Fatal("expected block")
	}
	l.Reset("k")
	if !l.Allow("k") {
		t.Error("expected allow after reset")
	}
}

func TestLimiter_Sweep(t *testing.T) {
	l := New(1, time.Minute)
	l.Allow("a")
	l.Sweep(time.Now())
	if l.Len() != 1 {
		t.Fatalf("fresh entry should survive, got %d", l.Len())
	}
	l.Sweep(time.Now().Add(3 * time.Minute))
	if l.Len() != 0 {
		t.Errorf("idle entry should be dropped, got %d", l.Len())
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	if got := ClientIP(r); got != "10.0.0.1" {
		t.Errorf("RemoteAddr: got %q", got)
	}

	r.Header.Set("X-Real-IP", "10.0.0.2")
	if got := ClientIP(r); got != "10.0.0.2" {
		t.Errorf("X-Real-IP: got %q", got)
	}

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.3")
	if got := ClientIP(r); got != "203.0.113.9" {
		t.Errorf("X-Forwarded-For: got %q", got)
	}
}

func TestLoginLimiter_PerUser(t *testing.T) {
	ll := NewLoginLimiterWithConfig(100, time.Hour, 2, time.Hour)
	r := httptest.NewRequest("POST", "/api/account/login", nil)

	if !ll.Check(r, "ana") || !ll.Check(r, " ANA ") {
		t.Fatal("first two attempts should pass")
	}
	if ll.Check(r, "ana") {
		t.Error("third attempt for the same user should be blocked")
	}
	if !ll.Check(r, "bia") {
		t.Error("a different user should pass")
	}

	ll.ResetUser("Ana")
	if !ll.Check(r, "ana") {
		t.Error("expected allow after ResetUser")
	}
}

func TestLoginLimiter_PerIP(t *testing.T) {
	ll := NewLoginLimiterWithConfig(1, time.Hour, 100, time.Hour)
	r := httptest.NewRequest("POST", "/api/account/login", nil)
	ll.Check(r, "a")
	if ll.Check(r, "b") {
		t.Error("second attempt from the same IP should be blocked")
	}
}

func TestLoginLimiter_PerUserFoldsLikeStore(t *testing.T) {
	ll := NewLoginLimiterWithConfig(100, time.Hour, 2, time.Hour)
	r := httptest.NewRequest("POST", "/api/account/login", nil)

	if !ll.Check(r, "joão") || !ll.Check(r, "JOAO") {
		t.Fatal("first two attempts should pass")
	}
	if ll.Check(r, "João") {
		t.Error("accented and unaccented spellings of one user must share a bucket")
	}
	if got := userKey(" João "); got != "joao" {
		t.Errorf("userKey: got %q", got)
	}
}
