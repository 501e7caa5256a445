package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/kbukum/peerkit/errors"
)

func TestRateLimiter_BurstThenLimit(t *testing.T) {
	limited := 0
	rl := NewRateLimiter(RateLimiterConfig{Name: "batch", Rate: 1, Burst: 2, OnLimit: func(string) { limited++ }})

	if !rl.Allow() || !rl.Allow() {
		t.Fatal("expected burst of 2 to be allowed")
	}
	if rl.Allow() {
		t.Error("expected third call to be limited")
	}
	if limited != 1 {
		t.Errorf("expected OnLimit once, got %d", limited)
	}
	err := rl.Execute(func() error { return nil })
	if !errors.HasCode(err, errors.ErrCodeRateLimited) {
		t.Errorf("expected RATE_LIMITED, got %v", err)
	}
}

func TestRateLimiter_Defaults(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{})
	if rl.Rate() != 50 || rl.Burst() != 50 {
		t.Errorf("unexpected defaults rate=%v burst=%d", rl.Rate(), rl.Burst())
	}
	if rl.Tokens() <= 0 {
		t.Error("expected a full bucket")
	}
}

func TestRateLimiter_WaitHonoursContext(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 0.001, Burst: 1})
	_ = rl.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx); err == nil {
		t.Error("expected Wait to fail when the deadline is shorter than the refill")
	}
}

func TestKeyedRateLimiter(t *testing.T) {
	k := NewKeyedRateLimiter(RateLimiterConfig{Rate: 1, Burst: 1}, time.Minute)
	if !k.Allow("peer-a") {
		t.Fatal("first call for peer-a should pass")
	}
	if k.Allow("peer-a") {
		t.Error("second call for peer-a should be limited")
	}
	if !k.Allow("peer-b") {
		t.Error("peer-b has its own bucket")
	}
	if k.Len() != 2 {
		t.Errorf("expected 2 buckets, got %d", k.Len())
	}
}
