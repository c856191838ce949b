package monitoring

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func TestGinMiddlewareRecordsAndExports(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(GinMiddleware())
	router.GET("/v1/rooms/:id", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	req := httptest.NewRequest(http.MethodGet, "/v1/rooms/room_abc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	SetBuildInfo("test", "")

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	body := rec.Body.String()
	for _, metric := range []string{
		"nexis_http_requests_total",
		"nexis_http_latency_seconds",
		"nexis_http_responses_total",
		"nexis_build_info",
	} {
		if !strings.Contains(body, metric) {
			t.Errorf("exported metrics missing %s", metric)
		}
	}
	// The route template, not the raw path, labels the series.
	if !strings.Contains(body, `path="/v1/rooms/:id"`) {
		t.Error("expected the route template as the path label")
	}
}
