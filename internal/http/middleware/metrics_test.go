package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func serve(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestMetrics_Counters_InflightAndPathFallback(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Metrics())
	r.GET("/admin/recipes", func(c *gin.Context) { c.String(http.StatusOK, "page") })
	r.DELETE("/views/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	baseOK := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/admin/recipes", "200"))
	base404 := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/does-not-exist", "404"))
	baseDel := testutil.ToFloat64(httpReqs.WithLabelValues("DELETE", "/views/:id", "204"))

	if w := serve(r, http.MethodGet, "/admin/recipes"); w.Code != http.StatusOK {
		t.Fatalf("GET /admin/recipes -> %d", w.Code)
	}
	if w := serve(r, http.MethodGet, "/does-not-exist"); w.Code != http.StatusNotFound {
		t.Fatalf("GET /does-not-exist -> %d", w.Code)
	}
	if w := serve(r, http.MethodDelete, "/views/v-1"); w.Code != http.StatusNoContent {
		t.Fatalf("DELETE /views/v-1 -> %d", w.Code)
	}

	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/admin/recipes", "200")); got != baseOK+1 {
		t.Fatalf("counter /admin/recipes 200 = %v; want %v", got, baseOK+1)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/does-not-exist", "404")); got != base404+1 {
		t.Fatalf("counter 404 fallback = %v; want %v", got, base404+1)
	}
	// Route template, not the concrete id.
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("DELETE", "/views/:id", "204")); got != baseDel+1 {
		t.Fatalf("counter /views/:id 204 = %v; want %v", got, baseDel+1)
	}
	if inFlight := testutil.ToFloat64(httpInflight); inFlight != 0 {
		t.Fatalf("httpInflight = %v; want 0", inFlight)
	}
}

func TestMetrics_CacheStatusAndReplays(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Metrics())
	r.GET("/admin/stats", func(c *gin.Context) {
		c.Header(HeaderCacheStatus, c.Query("s"))
		c.String(http.StatusOK, "{}")
	})
	r.POST("/recipes/:id/approve", func(c *gin.Context) {
		if c.Query("replay") == "1" {
			c.Set(ctxKeyIdemReplay, true)
		}
		c.String(http.StatusOK, "{}")
	})

	baseFresh := testutil.ToFloat64(httpCacheServed.WithLabelValues("/admin/stats", "fresh"))
	baseStale := testutil.ToFloat64(httpCacheServed.WithLabelValues("/admin/stats", "stale"))
	baseReplay := testutil.ToFloat64(httpReplays.WithLabelValues("/recipes/:id/approve"))

	serve(r, http.MethodGet, "/admin/stats?s=fresh")
	serve(r, http.MethodGet, "/admin/stats?s=fresh")
	serve(r, http.MethodGet, "/admin/stats?s=stale")
	serve(r, http.MethodGet, "/admin/stats") // no header, not counted
	serve(r, http.MethodPost, "/recipes/r1/approve")
	serve(r, http.MethodPost, "/recipes/r1/approve?replay=1")

	if got := testutil.ToFloat64(httpCacheServed.WithLabelValues("/admin/stats", "fresh")); got != baseFresh+2 {
		t.Fatalf("fresh = %v; want %v", got, baseFresh+2)
	}
	if got := testutil.ToFloat64(httpCacheServed.WithLabelValues("/admin/stats", "stale")); got != baseStale+1 {
		t.Fatalf("stale = %v; want %v", got, baseStale+1)
	}
	if got := testutil.ToFloat64(httpReplays.WithLabelValues("/recipes/:id/approve")); got != baseReplay+1 {
		t.Fatalf("replays = %v; want %v", got, baseReplay+1)
	}
}
