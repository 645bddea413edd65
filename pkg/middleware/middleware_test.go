package middleware_test

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"testing"

	"github.com/JaimeStill/promptvault/pkg/middleware"
)

func TestApplyOrder(t *testing.T) {
	var order []string
	var mw middleware.Stack

	for _, name := range []string{"first", "second"} {
		mw.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		})
	}

	handler := mw.Apply(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if want := []string{"first", "second", "handler"}; !slices.Equal(order, want) {
		t.Errorf("order: got %v, want %v", order, want)
	}
}

func corsHandler(cfg *middleware.CORSConfig, origin, method string) *httptest.ResponseRecorder {
	handler := middleware.CORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, "/projects/p1/prompts/greeting", nil)
	req.Header.Set("Origin", origin)
	if method == http.MethodOptions {
		req.Header.Set("Access-Control-Request-Method", "DELETE")
	}
	handler.ServeHTTP(rec, req)
	return rec
}

func TestCORS(t *testing.T) {
	cfg := &middleware.CORSConfig{
		Enabled:          true,
		Origins:          []string{"http://console.local"},
		AllowedMethods:   []string{"GET", "DELETE"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           600,
	}

	t.Run("allowed origin", func(t *testing.T) {
		rec := corsHandler(cfg, "http://console.local", "DELETE")

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://console.local" {
			t.Errorf("allow-origin: got %s", got)
		}
		if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "GET, DELETE" {
			t.Errorf("allow-methods: got %s", got)
		}
		if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
			t.Errorf("allow-credentials: got %s", got)
		}
		if got := rec.Header().Get("Access-Control-Max-Age"); got != "600" {
			t.Errorf("max-age: got %s", got)
		}
		if rec.Code != http.StatusAccepted {
			t.Errorf("status: got %d, want handler's 202", rec.Code)
		}
		if got := rec.Header().Get("Vary"); got != "Origin" {
			t.Errorf("vary: got %q, want Origin", got)
		}
	})

	t.Run("disallowed origin", func(t *testing.T) {
		rec := corsHandler(cfg, "http://elsewhere.local", "DELETE")
		if rec.Header().Get("Access-Control-Allow-Origin") != "" {
			t.Error("allow-origin set for disallowed origin")
		}
	})

	t.Run("preflight", func(t *testing.T) {
		rec := corsHandler(cfg, "http://console.local", "OPTIONS")
		if rec.Code != http.StatusNoContent {
			t.Errorf("preflight status: got %d, want 204", rec.Code)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		rec := corsHandler(&middleware.CORSConfig{Origins: cfg.Origins}, "http://console.local", "DELETE")
		if rec.Header().Get("Access-Control-Allow-Origin") != "" {
			t.Error("CORS headers set while disabled")
		}
	})
}

func TestLogger(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{"success", http.StatusOK, "level=INFO"},
		{"conflict", http.StatusConflict, "level=INFO"},
		{"locked", http.StatusLocked, "level=INFO"},
		{"server error", http.StatusInternalServerError, "level=ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			handler := middleware.Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest("DELETE", "/projects/p1/prompts/greeting", nil))

			if rec.Code != tt.status {
				t.Errorf("status: got %d, want %d", rec.Code, tt.status)
			}
			out := buf.String()
			if !strings.Contains(out, tt.wantLevel) {
				t.Errorf("log level: want %s in %q", tt.wantLevel, out)
			}
			if want := "status=" + strconv.Itoa(tt.status); !strings.Contains(out, want) {
				t.Errorf("want %s in %q", want, out)
			}
		})
	}
}

func TestCORSConfigFinalizeDefaults(t *testing.T) {
	cfg := middleware.CORSConfig{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if !slices.Contains(cfg.AllowedMethods, "DELETE") {
		t.Errorf("allowed_methods: got %v, want DELETE included", cfg.AllowedMethods)
	}
	if len(cfg.AllowedHeaders) != 2 {
		t.Errorf("allowed_headers: got %d, want 2", len(cfg.AllowedHeaders))
	}
	if cfg.MaxAge != 3600 {
		t.Errorf("max_age: got %d, want 3600", cfg.MaxAge)
	}
}

func TestCORSConfigFinalizeEnv(t *testing.T) {
	t.Setenv("TEST_CORS_ENABLED", "true")
	t.Setenv("TEST_CORS_ORIGINS", "http://a.com, http://b.com,")
	t.Setenv("TEST_CORS_METHODS", "GET,DELETE")

	env := &middleware.CORSEnv{
		Enabled:        "TEST_CORS_ENABLED",
		Origins:        "TEST_CORS_ORIGINS",
		AllowedMethods: "TEST_CORS_METHODS",
	}

	cfg := middleware.CORSConfig{}
	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if !cfg.Enabled {
		t.Error("enabled should be true")
	}
	if want := []string{"http://a.com", "http://b.com"}; !slices.Equal(cfg.Origins, want) {
		t.Errorf("origins: got %v, want %v", cfg.Origins, want)
	}
	if want := []string{"GET", "DELETE"}; !slices.Equal(cfg.AllowedMethods, want) {
		t.Errorf("methods: got %v, want %v", cfg.AllowedMethods, want)
	}
}

func TestCORSConfigMerge(t *testing.T) {
	base := middleware.CORSConfig{
		Origins:        []string{"http://base.com"},
		AllowedMethods: []string{"GET"},
		MaxAge:         3600,
	}

	base.Merge(&middleware.CORSConfig{
		Enabled: true,
		Origins: []string{"http://overlay.com"},
	})

	if !base.Enabled {
		t.Error("enabled should be true after merge")
	}
	if !slices.Equal(base.Origins, []string{"http://overlay.com"}) {
		t.Errorf("origins: got %v", base.Origins)
	}
	if !slices.Equal(base.AllowedMethods, []string{"GET"}) {
		t.Errorf("methods: got %v, want base kept", base.AllowedMethods)
	}
	if base.MaxAge != 3600 {
		t.Errorf("max_age: got %d, want 3600 kept", base.MaxAge)
	}
}
