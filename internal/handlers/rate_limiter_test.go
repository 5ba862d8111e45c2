package handlers

import (
	"testing"
	"time"
)

func TestSimpleRateLimiter_WindowReset(t *testing.T) {
	now := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	limiter := newSimpleRateLimiter(2, time.Minute, func() time.Time { return now })

	if !limiter.Allow("10.0.0.1:100") || !limiter.Allow("10.0.0.1:200") {
		t.Fatal("first two events should be allowed")
	}
	if limiter.Allow("10.0.0.1:300") {
		t.Fatal("third event inside the window should be rejected")
	}

	now = now.Add(61 * time.Second)
	if !limiter.Allow("10.0.0.1:400") {
		t.Fatal("a new window should reset the budget")
	}
}

func TestSimpleRateLimiter_KeysByHost(t *testing.T) {
	limiter := newSimpleRateLimiter(1, time.Minute, nil)

	if !limiter.Allow("192.0.2.1:5000") {
		t.Fatal("first event should be allowed")
	}
	if limiter.Allow("192.0.2.1:6000") {
		t.Fatal("same host on another port should share the budget")
	}
	if !limiter.Allow("192.0.2.2:5000") {
		t.Fatal("a different host keeps its own budget")
	}
}

func TestSimpleRateLimiter_DisabledConfig(t *testing.T) {
	if limiter := newSimpleRateLimiter(0, time.Minute, nil); limiter != nil {
		t.Fatal("zero limit should disable the limiter")
	}
	if limiter := newSimpleRateLimiter(5, 0, nil); limiter != nil {
		t.Fatal("zero window should disable the limiter")
	}
}
