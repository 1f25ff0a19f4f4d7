package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"
)

func TestRateLimit_AllowsRequestsUnderLimit(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{
		RequestsPerMinute: 10,
		CleanupInterval:   time.Minute,
	})

	clientIP := "192.168.1.1"

	// Should allow first 10 requests
	for i := 0; i < 10; i++ {
		allowed, remaining, _ := limiter.Allow(clientIP)
		if !allowed {
			t.Errorf("Request %d should be allowed, but was blocked", i+1)
		}
		expectedRemaining := 10 - i - 1
		if remaining != expectedRemaining {
			t.Errorf("Request %d: expected %d remaining, got %d", i+1, expectedRemaining, remaining)
		}
	}
}

func TestRateLimit_BlocksRequestsOverLimit(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{RequestsPerMinute: 5})
	clientIP := "192.168.1.2"

	for i := 0; i < 5; i++ {
		if allowed, _, _ := limiter.Allow(clientIP); !allowed {
			t.Fatalf("Request %d should be allowed", i+1)
		}
	}

	allowed, remaining, _ := limiter.Allow(clientIP)
	if allowed {
		t.Error("Request over limit should be blocked")
	}
	if remaining != 0 {
		t.Errorf("Expected 0 remaining tokens, got %d", remaining)
	}

	// other clients are unaffected
	if allowed, _, _ := limiter.Allow("192.168.1.99"); !allowed {
		t.Error("Different client should be allowed")
	}
}

func TestRateLimit_LimitResetsAfterTimeWindow(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{RequestsPerMinute: 3})
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	clientIP := "192.168.1.3"
	for i := 0; i < 3; i++ {
		limiter.Allow(clientIP)
	}
	if allowed, _, _ := limiter.Allow(clientIP); allowed {
		t.Fatal("Should be blocked after exhausting limit")
	}

	now = now.Add(61 * time.Second)
	allowed, remaining, _ := limiter.Allow(clientIP)
	if !allowed {
		t.Fatal("Should be allowed after time window reset")
	}
	if remaining != 2 {
		t.Errorf("Expected 2 remaining after reset, got %d", remaining)
	}
}

func TestRateLimit_Middleware(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{RequestsPerMinute: 1})
	h := limiter.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/admin/stats", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Header().Get("X-RateLimit-Limit") != "1" {
		t.Errorf("missing rate limit header")
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestClientIP(t *testing.T) {
	trusted := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}

	tests := []struct {
		name   string
		remote string
		xff    string
		want   string
	}{
		{name: "direct", remote: "203.0.113.5:4000", want: "203.0.113.5"},
		{name: "untrusted proxy header ignored", remote: "203.0.113.5:4000", xff: "1.2.3.4", want: "203.0.113.5"},
		{name: "trusted proxy", remote: "10.1.2.3:4000", xff: "garbage, 198.51.100.7", want: "198.51.100.7"},
		{name: "trusted proxy without header", remote: "10.1.2.3:4000", want: "10.1.2.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := ClientIP(req, trusted); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}
