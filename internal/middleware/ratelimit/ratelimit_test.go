package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiter_AllowBurstThenDeny(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerSecond: 1, Burst: 3})
	defer rl.Stop()

	now := time.Now()
	for i := 0; i < 3; i++ {
		if wait := rl.reserve("10.0.0.1", now); wait != 0 {
			t.Fatalf("request %d should be allowed, wait=%v", i, wait)
		}
	}
	if wait := rl.reserve("10.0.0.1", now); wait <= 0 {
		t.Fatal("fourth request in the same instant should be limited")
	}
	if wait := rl.reserve("10.0.0.2", now); wait != 0 {
		t.Fatal("other clients have their own bucket")
	}
	if wait := rl.reserve("10.0.0.1", now.Add(1100*time.Millisecond)); wait != 0 {
		t.Fatalf("a token should be back after one second, wait=%v", wait)
	}

	m := rl.GetMetrics()
	if m.TotalHits != 1 || m.ClientCount != 2 {
		t.Errorf("metrics = %+v, want 1 hit and 2 clients", m)
	}
}

func TestLimiter_DeniedRequestDoesNotConsumeToken(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerSecond: 1, Burst: 1})
	defer rl.Stop()

	now := time.Now()
	rl.reserve("c", now)
	for i := 0; i < 5; i++ {
		rl.reserve("c", now.Add(100*time.Millisecond))
	}
	if wait := rl.reserve("c", now.Add(1001*time.Millisecond)); wait != 0 {
		t.Fatalf("denied requests must not push the next token back, wait=%v", wait)
	}
}

func TestLimiter_CleanupStaleEntries(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerSecond: 5, Burst: 5, IdleTimeout: time.Minute})
	defer rl.Stop()

	now := time.Now()
	rl.reserve("old", now.Add(-2*time.Minute))
	rl.reserve("fresh", now)

	if removed := rl.cleanupStaleEntries(now); removed != 1 {
		t.Fatalf("removed %d entries, want 1", removed)
	}
	if rl.ActiveClients() != 1 {
		t.Errorf("ActiveClients() = %d, want 1", rl.ActiveClients())
	}
}

func TestLimiter_Middleware(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerSecond: 0.001, Burst: 1})
	defer rl.Stop()

	handler := rl.Middleware(
		func(r *http.Request) string { return "same" },
		func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTooManyRequests) },
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("first request status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		wait time.Duration
		want string
	}{
		{10 * time.Millisecond, "1"},
		{1500 * time.Millisecond, "2"},
		{30 * time.Second, "30"},
	}
	for _, tt := range tests {
		if got := retryAfter(tt.wait); got != tt.want {
			t.Errorf("retryAfter(%v) = %s, want %s", tt.wait, got, tt.want)
		}
	}
}
