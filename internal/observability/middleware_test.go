package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danmuck/renderframe/internal/testutil/testlog"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func TestMiddlewareRecordsRequests(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestLogger(zerolog.Nop()), RequestMetricsMiddleware("middleware-test"))
	router.GET("/ping/:id", func(c *gin.Context) {
		c.Status(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping/7", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	got := testutil.ToFloat64(httpRequests.WithLabelValues("middleware-test", "GET", "/ping/:id", "418"))
	if got != 1 {
		t.Fatalf("expected route template label, got count %v", got)
	}
}

func TestMiddlewareCollapsesUnmatchedPaths(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestMetricsMiddleware("middleware-unmatched-test"))

	for _, path := range []string{"/a", "/b/c"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}
	got := testutil.ToFloat64(httpRequests.WithLabelValues("middleware-unmatched-test", "GET", unmatchedPath, "404"))
	if got != 2 {
		t.Fatalf("expected unmatched requests collapsed, got %v", got)
	}
}
