package server

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/devscout/devscout/config"
	"github.com/devscout/devscout/internal/agent/core"
	"github.com/devscout/devscout/internal/agent/telemetry"
)

func newTestRouter(runner discoveryRunner) *echo.Echo {
	cfg := &config.Config{}
	tel := telemetry.NewTelemetryWith(config.TelemetryConfig{Enabled: true}, prometheus.NewRegistry())
	return newRouter(cfg, tel, runner, log.New(io.Discard, "", 0))
}

func TestRouterWelcome(t *testing.T) {
	e := newTestRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response decode: %v", err)
	}
	if resp["service"] != "devscout" {
		t.Fatalf("unexpected service field: %q", resp["service"])
	}
	if !strings.Contains(resp["message"], "/search/") {
		t.Fatalf("welcome message should point at /search/: %q", resp["message"])
	}
}

func TestRouterHealthz(t *testing.T) {
	e := newTestRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("unexpected healthz response: %d %q", rec.Code, rec.Body.String())
	}
}

func TestRouterMetricsExposed(t *testing.T) {
	e := newTestRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "# HELP") {
		t.Fatalf("expected prometheus exposition output")
	}
}

func TestRouterSearchErrorEnvelope(t *testing.T) {
	e := newTestRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/search/", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response decode: %v", err)
	}
	if resp["error"] != "question cannot be empty" {
		t.Fatalf("unexpected error field: %q", resp["error"])
	}
}

func TestRouterSearchBothVerbsAndForms(t *testing.T) {
	raw := `[{"title":"Stripe"}]`
	runner := &stubRunner{result: core.RunResult{FinalOutput: raw}}
	e := newTestRouter(runner)

	for _, tc := range []struct {
		method string
		target string
	}{
		{http.MethodGet, "/search?question=payments"},
		{http.MethodPost, "/search?question=payments"},
		{http.MethodGet, "/search/?question=payments"},
		{http.MethodPost, "/search/?question=payments"},
	} {
		req := httptest.NewRequest(tc.method, tc.target, nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("%s %s: expected 200, got %d", tc.method, tc.target, rec.Code)
		}
		if rec.Body.String() != raw {
			t.Fatalf("%s %s: unexpected body %q", tc.method, tc.target, rec.Body.String())
		}
	}
}

func TestRouterUnknownRouteEnvelope(t *testing.T) {
	e := newTestRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/definitely-not-here", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response decode: %v", err)
	}
	if resp["error"] == "" {
		t.Fatalf("expected error envelope, got %q", rec.Body.String())
	}
}
