package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_UsesRouteTemplate(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())
	e.GET("/patients/:id/summary", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	})

	counter := httpRequestsTotal.WithLabelValues(http.MethodGet, "/patients/:id/summary", "404")
	before := testutil.ToFloat64(counter)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/patients/abc/summary", nil))

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("expected one request counted under the route template, got %v", got)
	}
}

func TestMiddleware_PlainErrorIs500(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/submit_analysis", nil), httptest.NewRecorder())
	c.SetPath("/submit_analysis")

	counter := httpRequestsTotal.WithLabelValues(http.MethodPost, "/submit_analysis", "500")
	before := testutil.ToFloat64(counter)

	Middleware()(func(echo.Context) error { return errors.New("boom") })(c)

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("expected status 500 for a plain error, got delta %v", got)
	}
}

func TestDomainHelpers(t *testing.T) {
	fallback := extractionsTotal.WithLabelValues("gemini", "fallback")
	before := testutil.ToFloat64(fallback)
	RecordExtraction("gemini", true, 10*time.Millisecond)
	if got := testutil.ToFloat64(fallback) - before; got != 1 {
		t.Errorf("expected fallback outcome counted, got %v", got)
	}

	skipped := labEntriesSkipped.WithLabelValues("historical")
	before = testutil.ToFloat64(skipped)
	RecordLabEntrySkipped("historical")
	if got := testutil.ToFloat64(skipped) - before; got != 1 {
		t.Errorf("expected skipped entry counted, got %v", got)
	}

	hits := cacheLookups.WithLabelValues("hit")
	before = testutil.ToFloat64(hits)
	RecordCacheLookup(true)
	if got := testutil.ToFloat64(hits) - before; got != 1 {
		t.Errorf("expected cache hit counted, got %v", got)
	}
}

func TestHandler_ExposesMetrics(t *testing.T) {
	RecordPatientCreated()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "patients_created_total") {
		t.Error("expected patients_created_total in exposition")
	}
}
