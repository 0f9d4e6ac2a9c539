package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/sitesage/gateway/internal/client"
	"github.com/sitesage/gateway/internal/middleware"
)

func lighthouseRouter(backendURL, internalKey string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/reports/:id/lighthouse", LighthouseWaitHandler(backendURL, internalKey))
	return r
}

func TestLighthouseWaitInvalidID(t *testing.T) {
	r := lighthouseRouter("http://127.0.0.1:1", "sekrit")

	for _, id := range []string{"abc", "0", "-3"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/reports/"+id+"/lighthouse", nil)
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("id %q: expected 400, got %d", id, w.Code)
		}
	}
}

func TestLighthouseWaitReturnsReadyReport(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/reports/7" {
			t.Errorf("unexpected backend path: %s", r.URL.Path)
		}
		if got := r.Header.Get("X-INTERNAL-API-KEY"); got != "sekrit" {
			t.Errorf("internal key not forwarded: %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer visitor-token" {
			t.Errorf("caller token not forwarded: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":7,"url":"https://example.com","lighthouse_performance":91,"lighthouse_status":"completed"}`))
	}))
	defer backend.Close()

	r := lighthouseRouter(backend.URL, "sekrit")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/reports/7/lighthouse", nil)
	req.Header.Set("Authorization", "Bearer visitor-token")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Status string `json:"status"`
		Report struct {
			ID                    int  `json:"id"`
			LighthousePerformance *int `json:"lighthouse_performance"`
		} `json:"report"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if body.Status != "completed" {
		t.Errorf("expected completed status, got %q", body.Status)
	}
	if body.Report.LighthousePerformance == nil || *body.Report.LighthousePerformance != 91 {
		t.Errorf("report scores not passed through: %+v", body.Report)
	}
}

func TestLighthouseWaitMapsBackendErrors(t *testing.T) {
	cases := []struct {
		name     string
		upstream int
		want     int
	}{
		{"NotFound", http.StatusNotFound, http.StatusNotFound},
		{"Forbidden", http.StatusForbidden, http.StatusForbidden},
		{"RateLimited", http.StatusTooManyRequests, http.StatusTooManyRequests},
		{"ServerError", http.StatusInternalServerError, http.StatusBadGateway},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.upstream)
				w.Write([]byte(`{"detail":"nope"}`))
			}))
			defer backend.Close()

			r := lighthouseRouter(backend.URL, "sekrit")

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/reports/7/lighthouse", nil)
			r.ServeHTTP(w, req)

			if w.Code != tc.want {
				t.Errorf("upstream %d: expected %d, got %d", tc.upstream, tc.want, w.Code)
			}
		})
	}
}

func TestLighthouseWaitUnreachableBackend(t *testing.T) {
	r := lighthouseRouter("http://127.0.0.1:1", "sekrit")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/reports/7/lighthouse", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("expected 502 for unreachable backend, got %d", w.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	t.Run("BackendUp", func(t *testing.T) {
		backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/health" {
				t.Errorf("unexpected probe path: %s", r.URL.Path)
			}
			w.Write([]byte(`{"status":"ok"}`))
		}))
		defer backend.Close()

		gin.SetMode(gin.TestMode)
		r := gin.New()
		r.GET("/health", HealthHandler(client.New(backend.URL), "https://app.example.com/api"))

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), `"status":"healthy"`) {
			t.Errorf("expected healthy status: %s", w.Body.String())
		}
	})

	t.Run("BackendDown", func(t *testing.T) {
		gin.SetMode(gin.TestMode)
		r := gin.New()
		r.GET("/health", HealthHandler(client.New("http://127.0.0.1:1"), ""))

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("health endpoint must stay 200 when backend is down, got %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), `"status":"degraded"`) {
			t.Errorf("expected degraded status: %s", w.Body.String())
		}
	})
}

func TestRedirectHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/session/redirect", RedirectHandler())

	t.Run("ReplaysStoredIntent", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/session/redirect", nil)
		req.AddCookie(&http.Cookie{Name: middleware.RedirectCookie, Value: "/settings"})
		r.ServeHTTP(w, req)

		if !strings.Contains(w.Body.String(), `"redirect":"/settings"`) {
			t.Errorf("stored intent not replayed: %s", w.Body.String())
		}
	})

	t.Run("DefaultsToDashboard", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/session/redirect", nil))

		if !strings.Contains(w.Body.String(), `"redirect":"/dashboard"`) {
			t.Errorf("expected dashboard default: %s", w.Body.String())
		}
	})
}

func TestStatisticsHandlerWithoutDatabase(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/statistics", StatisticsHandler(nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/statistics", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 when stats are disabled, got %d", w.Code)
	}
}
