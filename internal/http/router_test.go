package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/yungbote/thinkbank-worker/internal/http/handlers"
	"github.com/yungbote/thinkbank-worker/internal/observability"
	"github.com/yungbote/thinkbank-worker/internal/pkg/logger"
)

func serve(t *testing.T, r http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRouter_Healthz(t *testing.T) {
	r := NewRouter(RouterConfig{Log: logger.Nop()})
	rec := serve(t, r, "/healthz")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}
	if rec := serve(t, r, "/metrics"); rec.Code != http.StatusNotFound {
		t.Fatalf("metrics without handler: %d", rec.Code)
	}
}

func TestRouter_Readyz(t *testing.T) {
	dbUp := true
	h := handlers.NewHealthHandler(map[string]handlers.Check{
		"postgres": func(context.Context) error {
			if dbUp {
				return nil
			}
			return errors.New("connection refused")
		},
		"redis": func(context.Context) error { return nil },
	})
	r := NewRouter(RouterConfig{Log: logger.Nop(), HealthHandler: h})

	rec := serve(t, r, "/readyz")
	if rec.Code != http.StatusOK {
		t.Fatalf("ready: %d %s", rec.Code, rec.Body.String())
	}

	dbUp = false
	rec = serve(t, r, "/readyz")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("not ready: %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("content-type=%q", ct)
	}
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "unavailable" || body.Checks["postgres"] != "connection refused" || body.Checks["redis"] != "ok" {
		t.Fatalf("checks=%v", body.Checks)
	}
}

func TestRouter_Metrics(t *testing.T) {
	m := observability.NewMetrics()
	m.IncFallback("translate")
	r := NewRouter(RouterConfig{Log: logger.Nop(), Metrics: m.Handler()})
	rec := serve(t, r, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `thinkbank_worker_step_fallbacks_total{step="translate"} 1`) {
		t.Fatalf("missing fallback counter in:\n%s", rec.Body.String())
	}
}
