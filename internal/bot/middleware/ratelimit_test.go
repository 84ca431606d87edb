package middleware

import (
	"testing"
	"time"
)

func TestRateLimiterSlidingWindow(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Close()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("alice") || !rl.Allow("Alice") {
		t.Fatalf("first two events must pass")
	}
	if rl.Allow("ALICE") {
		t.Fatalf("third event in the window must be limited")
	}
	if !rl.Allow("bob") {
		t.Fatalf("keys must be limited independently")
	}

	now = now.Add(61 * time.Second)
	if !rl.Allow("alice") {
		t.Fatalf("window must slide")
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(0, time.Minute)
	defer rl.Close()
	for i := 0; i < 100; i++ {
		if !rl.Allow("alice") {
			t.Fatalf("limit 0 must disable limiting")
		}
	}
}
