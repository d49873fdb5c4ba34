package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-crowd/crowdgate/internal/metrics"
	"github.com/go-crowd/crowdgate/internal/models"
	"github.com/go-crowd/crowdgate/internal/services"
	"github.com/go-crowd/crowdgate/internal/store"
)

func newAuditRouter(t *testing.T) (*gin.Engine, *services.AuditService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s, err := store.New("sqlite", ":memory:")
	require.NoError(t, err)
	svc := services.NewAuditService(s, metrics.NewNoopMetrics(), true, 10)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = svc.Shutdown(ctx)
	})

	handler := NewAuditHandler(svc)
	router := gin.New()
	router.GET("/api/audit-logs", handler.ListAuditLogs)
	router.GET("/api/audit-logs/export", handler.ExportAuditLogs)
	return router, svc
}

func seedAuditLogs(t *testing.T, svc *services.AuditService) {
	t.Helper()
	require.NoError(t, svc.LogSync(context.Background(), services.AuditLogEntry{
		EventType:     models.EventAuthenticationSuccess,
		Severity:      models.SeverityInfo,
		ActorUsername: "sclaus",
		ResourceType:  models.ResourceUser,
		ResourceName:  "sclaus",
		Action:        "login",
		Success:       true,
	}))
	require.NoError(t, svc.LogSync(context.Background(), services.AuditLogEntry{
		EventType:     models.EventAuthenticationFailure,
		Severity:      models.SeverityWarning,
		ActorUsername: "grinch",
		ResourceType:  models.ResourceUser,
		ResourceName:  "grinch",
		Action:        "login",
	}))
}

func TestListAuditLogs(t *testing.T) {
	router, svc := newAuditRouter(t)
	seedAuditLogs(t, svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/audit-logs", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sclaus")
	assert.Contains(t, w.Body.String(), "grinch")
	assert.Contains(t, w.Body.String(), `"total_rows":2`)
}

func TestListAuditLogsFiltersByEventType(t *testing.T) {
	router, svc := newAuditRouter(t)
	seedAuditLogs(t, svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
		"/api/audit-logs?event_type=AUTHENTICATION_FAILURE", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "grinch")
	assert.NotContains(t, w.Body.String(), "sclaus")
}

func TestListAuditLogsFiltersBySuccess(t *testing.T) {
	router, svc := newAuditRouter(t)
	seedAuditLogs(t, svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/audit-logs?success=true", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sclaus")
	assert.NotContains(t, w.Body.String(), "grinch")
}

func TestExportAuditLogsCSV(t *testing.T) {
	router, svc := newAuditRouter(t)
	seedAuditLogs(t, svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/audit-logs/export", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "Event Time,Event Type")
	assert.Contains(t, w.Body.String(), "AUTHENTICATION_SUCCESS")
	assert.Contains(t, w.Body.String(), "grinch")
}
