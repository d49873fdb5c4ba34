package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDisabledReturnsNoop(t *testing.T) {
	recorder := Init(false)
	_, ok := recorder.(*NoopMetrics)
	assert.True(t, ok)
}

func TestInitEnabledReturnsSameInstance(t *testing.T) {
	first := Init(true)
	second := Init(true)
	assert.Same(t, first, second)
}

func TestNoopRecorderDoesNotPanic(t *testing.T) {
	recorder := NewNoopMetrics()
	recorder.RecordAuthAttempt("crowd", true, time.Millisecond)
	recorder.RecordLogin("success")
	recorder.RecordLogout(time.Minute)
	recorder.RecordSessionIssued()
	recorder.RecordSessionValidation("valid", time.Millisecond)
	recorder.RecordSessionInvalidated("logout")
	recorder.RecordDirectoryCall("authenticate", false, time.Millisecond)
	recorder.RecordCacheLookup(true)
	recorder.RecordAuditWriteError()
}

func TestRecordAuthAttempt(t *testing.T) {
	m, ok := Init(true).(*Metrics)
	require.True(t, ok)

	before := testutil.ToFloat64(m.AuthAttemptsTotal.WithLabelValues("crowd", "failure"))
	m.RecordAuthAttempt("crowd", false, 10*time.Millisecond)
	after := testutil.ToFloat64(m.AuthAttemptsTotal.WithLabelValues("crowd", "failure"))

	assert.Equal(t, before+1, after)
}

func TestRecordSessionValidation(t *testing.T) {
	m, ok := Init(true).(*Metrics)
	require.True(t, ok)

	before := testutil.ToFloat64(m.SessionValidationTotal.WithLabelValues("invalid"))
	m.RecordSessionValidation("invalid", time.Millisecond)
	after := testutil.ToFloat64(m.SessionValidationTotal.WithLabelValues("invalid"))

	assert.Equal(t, before+1, after)
}

func TestHTTPMetricsMiddlewareRecordsRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)

	m, ok := Init(true).(*Metrics)
	require.True(t, ok)

	router := gin.New()
	router.Use(HTTPMetricsMiddleware(m))
	router.GET("/profile", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	before := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/profile", "200"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	router.ServeHTTP(w, req)

	after := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/profile", "200"))
	assert.Equal(t, before+1, after)
}

func TestHTTPMetricsMiddlewareSkipsMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)

	m, ok := Init(true).(*Metrics)
	require.True(t, ok)

	router := gin.New()
	router.Use(HTTPMetricsMiddleware(m))
	router.GET("/metrics", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	before := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/metrics", "200"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	router.ServeHTTP(w, req)

	after := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/metrics", "200"))
	assert.Equal(t, before, after)
}
