package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

func setupRouter(store Pinger) *gin.Engine {
	h := NewHealthHandler(store)
	r := gin.New()
	r.GET("/healthz", h.Health)
	r.HEAD("/healthz", h.Health)
	r.OPTIONS("/healthz", h.Health)
	return r
}

func TestHealth_GET(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		store          Pinger
		expectedStatus int
		expectedBody   map[string]string
	}{
		{
			name:           "liveness only",
			store:          nil,
			expectedStatus: http.StatusOK,
			expectedBody:   map[string]string{"status": "ok"},
		},
		{
			name:           "store reachable",
			store:          pingerFunc(func(ctx context.Context) error { return nil }),
			expectedStatus: http.StatusOK,
			expectedBody:   map[string]string{"status": "ok", "store": "ok"},
		},
		{
			name:           "store unreachable",
			store:          pingerFunc(func(ctx context.Context) error { return errors.New("unable to open database file") }),
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   map[string]string{"status": "unavailable", "store": "unable to open database file"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			setupRouter(tt.store).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			var response map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if len(response) != len(tt.expectedBody) {
				t.Errorf("expected body %v, got %v", tt.expectedBody, response)
			}
			for k, v := range tt.expectedBody {
				if response[k] != v {
					t.Errorf("expected %s=%q, got %q", k, v, response[k])
				}
			}
			if w.Header().Get("Cache-Control") != "no-store" {
				t.Errorf("expected Cache-Control 'no-store', got %q", w.Header().Get("Cache-Control"))
			}
		})
	}
}

func TestHealth_HEAD(t *testing.T) {
	t.Parallel()

	called := false
	store := pingerFunc(func(ctx context.Context) error { called = true; return nil })
	w := httptest.NewRecorder()
	setupRouter(store).ServeHTTP(w, httptest.NewRequest(http.MethodHead, "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("expected empty body for HEAD request, got %d bytes", w.Body.Len())
	}
	if called {
		t.Error("HEAD must not ping the store")
	}
}

func TestHealth_OPTIONS(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	setupRouter(nil).ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/healthz", nil))

	if w.Code != http.StatusNoContent {
		t.Errorf("expected status %d, got %d", http.StatusNoContent, w.Code)
	}
	if w.Header().Get("Cache-Control") != "no-store" {
		t.Errorf("expected Cache-Control 'no-store', got %q", w.Header().Get("Cache-Control"))
	}
}
