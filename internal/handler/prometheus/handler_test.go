package prometheus

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/carehospital/admin-api/pkg/metrics"
)

func TestMiddlewareAndEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	h := New(reg)
	m := metrics.NewMetrics("care", reg)
	m.RemindersSent.Inc()

	r := gin.New()
	r.Use(h.Middleware())
	r.GET("/appointments/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	h.RegisterRoutes(&r.RouterGroup)

	for _, id := range []string{"a1", "a2"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/appointments/"+id, nil))
	}

	assert.Equal(t, float64(2), testutil.ToFloat64(h.requestTotal.WithLabelValues("GET", "/appointments/:id", "404")))
	assert.Equal(t, float64(2), testutil.ToFloat64(h.errorTotal.WithLabelValues("GET", "/appointments/:id", "404")))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "care_reminders_sent_total 1")
	assert.Contains(t, w.Body.String(), `http_requests_total{method="GET",path="/appointments/:id",status="404"} 2`)
}
