package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsIsolated(t *testing.T) {
	// Two collectors must not collide on registration
	a := NewMetrics()
	b := NewMetrics()

	a.RecordFetch("cached")
	assert.Equal(t, 1.0, testutil.ToFloat64(a.FetchesTotal.WithLabelValues("cached")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.FetchesTotal.WithLabelValues("cached")))
}

func TestSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordFetch("cached")
	m.RecordFetch("started")
	m.RecordFetch("started")
	m.SetRecords(7)
	m.RecordHTTPRequest("GET", "/api/tags", "200", 0, 10)
	m.RecordHTTPRequest("POST", "/api/fetch", "409", 0, 10)

	s := m.Snapshot()
	assert.Equal(t, int64(1), s.FetchesCached)
	assert.Equal(t, int64(2), s.FetchesStarted)
	assert.Equal(t, int64(7), s.Records)
	assert.Equal(t, int64(2), s.TotalRequests)
	assert.Equal(t, int64(1), s.TotalErrors)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordFetch("cached")
		m.RecordState("SUCCESS")
		m.SetRecords(3)
		m.IncWSConnections()
	})
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	router.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/ping", "200")))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "danwiki_http_requests_total")
	assert.Contains(t, w.Body.String(), "danwiki_uptime_seconds")
}
