package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequireActor(t *testing.T) {
	var seenActor string
	handler := RequireActor(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actorID, ok := actorFromContext(r.Context())
		if !ok {
			t.Fatalf("actor missing from context")
		}
		seenActor = actorID
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("missing header is rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/pools", nil)
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("unexpected status: %d", rec.Code)
		}
	})

	t.Run("blank header is rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/pools", nil)
		req.Header.Set(ActorHeader, "   ")
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("unexpected status: %d", rec.Code)
		}
	})

	t.Run("header flows into context", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/pools", nil)
		req.Header.Set(ActorHeader, "user-42")
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("unexpected status: %d", rec.Code)
		}
		if seenActor != "user-42" {
			t.Fatalf("unexpected actor: %q", seenActor)
		}
	})
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("wildcard allows any origin", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/pools", nil)
		req.Header.Set("Origin", "https://anywhere.example.com")
		CORS([]string{"*"}, next).ServeHTTP(rec, req)
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Fatalf("unexpected allow-origin: %q", got)
		}
	})

	t.Run("listed origin is echoed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/pools", nil)
		req.Header.Set("Origin", "https://app.example.com")
		CORS([]string{"https://app.example.com"}, next).ServeHTTP(rec, req)
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
			t.Fatalf("unexpected allow-origin: %q", got)
		}
	})

	t.Run("unlisted origin gets no headers", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/pools", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		CORS([]string{"https://app.example.com"}, next).ServeHTTP(rec, req)
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Fatalf("unexpected allow-origin for unlisted origin: %q", got)
		}
	})

	t.Run("preflight short-circuits", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodOptions, "/v1/pools", nil)
		req.Header.Set("Origin", "https://app.example.com")
		CORS([]string{"https://app.example.com"}, next).ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("unexpected preflight status: %d", rec.Code)
		}
		allowHeaders := rec.Header().Get("Access-Control-Allow-Headers")
		if !strings.Contains(allowHeaders, ActorHeader) {
			t.Fatalf("actor header missing from allow-headers: %q", allowHeaders)
		}
	})

	t.Run("no origin passes through untouched", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/pools", nil)
		CORS([]string{"*"}, next).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("unexpected status: %d", rec.Code)
		}
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Fatalf("unexpected allow-origin without an Origin header: %q", got)
		}
	})
}

func TestShouldTraceRequest(t *testing.T) {
	for path, want := range map[string]bool{
		"/healthz":  false,
		"/livez":    false,
		"/readyz":   false,
		"/v1/pools": true,
		"/":         true,
	} {
		if got := shouldTraceRequest(path); got != want {
			t.Fatalf("shouldTraceRequest(%q) = %t, want %t", path, got, want)
		}
	}
}
