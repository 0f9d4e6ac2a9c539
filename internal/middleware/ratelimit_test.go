package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func limiterRouter(rl *RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(rl.RateLimit())
	r.GET("/api/proxy/api/v1/analyze", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func hit(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "203.0.113.7:1234"
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimitExhaustsBurst(t *testing.T) {
	clock := time.Now()
	rl := NewRateLimiter(1, 3)
	rl.now = func() time.Time { return clock }
	r := limiterRouter(rl)

	for i := 0; i < 3; i++ {
		if w := hit(r, "/api/proxy/api/v1/analyze"); w.Code != http.StatusOK {
			t.Fatalf("request %d within burst rejected: %d", i+1, w.Code)
		}
	}

	w := hit(r, "/api/proxy/api/v1/analyze")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("429 must carry a Retry-After hint")
	}
}

func TestRateLimitRefills(t *testing.T) {
	clock := time.Now()
	rl := NewRateLimiter(1, 1)
	rl.now = func() time.Time { return clock }
	r := limiterRouter(rl)

	if w := hit(r, "/api/proxy/api/v1/analyze"); w.Code != http.StatusOK {
		t.Fatalf("first request rejected: %d", w.Code)
	}
	if w := hit(r, "/api/proxy/api/v1/analyze"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 with empty bucket, got %d", w.Code)
	}

	clock = clock.Add(2 * time.Second)

	if w := hit(r, "/api/proxy/api/v1/analyze"); w.Code != http.StatusOK {
		t.Errorf("bucket did not refill after waiting: %d", w.Code)
	}
}

func TestRateLimitSkipsExemptPaths(t *testing.T) {
	clock := time.Now()
	rl := NewRateLimiter(1, 1, "/health")
	rl.now = func() time.Time { return clock }
	r := limiterRouter(rl)

	for i := 0; i < 10; i++ {
		if w := hit(r, "/health"); w.Code != http.StatusOK {
			t.Fatalf("health check rate limited on attempt %d: %d", i+1, w.Code)
		}
	}
}

func TestRateLimitIsolatesClients(t *testing.T) {
	clock := time.Now()
	rl := NewRateLimiter(1, 1)
	rl.now = func() time.Time { return clock }
	r := limiterRouter(rl)

	if w := hit(r, "/api/proxy/api/v1/analyze"); w.Code != http.StatusOK {
		t.Fatalf("first client rejected: %d", w.Code)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/proxy/api/v1/analyze", nil)
	req.RemoteAddr = "198.51.100.9:4321"
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("second client throttled by first client's bucket: %d", w.Code)
	}
}
