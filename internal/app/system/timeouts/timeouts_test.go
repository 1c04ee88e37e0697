package timeouts

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestConfigure_IgnoresZeroValues(t *testing.T) {
	defer Reset()

	Configure(Config{Short: 7 * time.Second})
	got := Current()
	if got.Short != 7*time.Second {
		t.Errorf("Short: got %v", got.Short)
	}
	if got.Ping != DefaultPing || got.Medium != DefaultMedium || got.Long != DefaultLong {
		t.Errorf("unset values changed: %+v", got)
	}
}

func TestReset(t *testing.T) {
	Configure(Config{Ping: time.Minute, Long: time.Hour})
	Reset()
	if Ping() != DefaultPing || Long() != DefaultLong {
		t.Errorf("Reset did not restore defaults: %+v", Current())
	}
}

func TestWithTimeout_LogsOnDeadline(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	ctx, cancel := WithTimeout(context.Background(), time.Millisecond, zap.New(core), "seed")
	<-ctx.Done()
	cancel()

	if logs.FilterMessage("operation timed out").Len() != 1 {
		t.Errorf("expected one timeout warning, got %d entries", logs.Len())
	}
}

func TestWithTimeout_SilentOnCancel(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	_, cancel := WithTimeout(context.Background(), time.Hour, zap.New(core), "seed")
	cancel()

	if logs.Len() != 0 {
		t.Errorf("expected no warnings, got %d", logs.Len())
	}
}
