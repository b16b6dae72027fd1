package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hcevision/cardio/internal/config"
	"github.com/hcevision/cardio/internal/domain/extraction"
	"github.com/hcevision/cardio/internal/platform/diagnostics"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Env:                "test",
		StoreBackend:       config.StoreMemory,
		BoltPath:           filepath.Join(dir, "hce.db"),
		CORSOrigins:        []string{"http://localhost:3000"},
		RateLimitRPS:       100,
		RateLimitBurst:     100,
		RequestTimeout:     5 * time.Second,
		BodyLimit:          "25M",
		ExtractionProvider: config.ProviderStatic,
		ExtractionTimeout:  time.Second,
		DiagnosticsDir:     filepath.Join(dir, "diagnostics"),
	}
}

func TestNewApp_RoutesRegistered(t *testing.T) {
	a, err := newApp(context.Background(), testConfig(t), zerolog.Nop())
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer a.Close()

	routes := make(map[string]bool)
	for _, r := range a.echo.Routes() {
		routes[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"POST /patients",
		"GET /patients",
		"GET /patients/:id/summary",
		"PATCH /patients/:id",
		"DELETE /patients/:id",
		"POST /patients/:id/blood_pressure",
		"GET /patients/:id/lab_trends/export",
		"POST /extract_data",
		"POST /submit_analysis",
		"POST /diagnostics/client_error",
		"GET /health",
		"GET /metrics",
	} {
		if !routes[want] {
			t.Errorf("missing route %s", want)
		}
	}
	if routes["GET /health/db"] {
		t.Error("db health route must only exist for the postgres store")
	}
}

func TestNewApp_EndToEnd(t *testing.T) {
	a, err := newApp(context.Background(), testConfig(t), zerolog.Nop())
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer a.Close()

	req := httptest.NewRequest(http.MethodPost, "/patients", strings.NewReader(`{"name":"End To End","age":61,"sex":"M"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected request id header")
	}

	req = httptest.NewRequest(http.MethodGet, "/patients/unknown/summary", nil)
	rec = httptest.NewRecorder()
	a.echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestNewApp_BoltStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.StoreBackend = config.StoreBolt

	a, err := newApp(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	a.Close()
}

func TestNewApp_BadRedisURL(t *testing.T) {
	cfg := testConfig(t)
	cfg.RedisURL = "not-a-redis-url"
	if _, err := newApp(context.Background(), cfg, zerolog.Nop()); err == nil {
		t.Error("expected error for invalid REDIS_URL")
	}
}

func TestNewExtractor(t *testing.T) {
	cfg := testConfig(t)
	if _, ok := newExtractor(cfg, zerolog.Nop()).(*extraction.Static); !ok {
		t.Error("expected static adapter")
	}
	cfg.ExtractionProvider = config.ProviderGemini
	if _, ok := newExtractor(cfg, zerolog.Nop()).(*extraction.GeminiAdapter); !ok {
		t.Error("expected gemini adapter")
	}
}

func TestNewLogger_Level(t *testing.T) {
	cfg := &config.Config{Env: "production", LogLevel: "warn"}
	if got := newLogger(cfg).GetLevel(); got != zerolog.WarnLevel {
		t.Errorf("expected warn level, got %s", got)
	}
	cfg.LogLevel = "nonsense"
	if got := newLogger(cfg).GetLevel(); got != zerolog.InfoLevel {
		t.Errorf("expected info level fallback, got %s", got)
	}
}

func TestDiagnosticsSummaryCommand(t *testing.T) {
	dir := t.TempDir()
	sink, err := diagnostics.NewFileSink(dir)
	if err != nil {
		t.Fatalf("NewFileSink: %v", err)
	}
	sink.RecordServerError(context.Background(), diagnostics.ServerError{
		Method: "POST", Path: "/submit_analysis", Status: 500, ErrorType: "*errors.errorString", Message: "boom",
	})

	cmd := diagnosticsCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"summary", "--dir", dir})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out.String(), "POST /submit_analysis") {
		t.Errorf("expected endpoint in report, got:\n%s", out.String())
	}
}
