package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/go-crowd/crowdgate/internal/models"
	"github.com/go-crowd/crowdgate/internal/services"
	"github.com/go-crowd/crowdgate/internal/store"
)

// AuditHandler exposes the audit trail over the JSON API.
type AuditHandler struct {
	auditService *services.AuditService
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(auditService *services.AuditService) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
	}
}

func auditFilters(c *gin.Context) store.AuditLogFilters {
	filters := store.AuditLogFilters{
		EventType:     models.EventType(c.Query("event_type")),
		ActorUsername: c.Query("actor_username"),
		ActorIP:       c.Query("actor_ip"),
		ResourceType:  models.ResourceType(c.Query("resource_type")),
		Severity:      models.EventSeverity(c.Query("severity")),
	}

	if successStr := c.Query("success"); successStr != "" {
		success := successStr == "true"
		filters.Success = &success
	}

	if startTimeStr := c.Query("start_time"); startTimeStr != "" {
		if t, err := time.Parse(time.RFC3339, startTimeStr); err == nil {
			filters.StartTime = t
		}
	}
	if endTimeStr := c.Query("end_time"); endTimeStr != "" {
		if t, err := time.Parse(time.RFC3339, endTimeStr); err == nil {
			filters.EndTime = t
		}
	}

	return filters
}

// ListAuditLogs retrieves audit logs with pagination and filtering.
func (h *AuditHandler) ListAuditLogs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))

	params := store.PaginationParams{
		Page:     page,
		PageSize: pageSize,
	}

	logs, pagination, err := h.auditService.GetAuditLogs(params, auditFilters(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve audit logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"logs":       logs,
		"pagination": pagination,
	})
}

// ExportAuditLogs exports the matching audit logs as CSV.
func (h *AuditHandler) ExportAuditLogs(c *gin.Context) {
	params := store.PaginationParams{
		Page:     1,
		PageSize: 500,
	}

	logs, _, err := h.auditService.GetAuditLogs(params, auditFilters(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve audit logs"})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf(
		"attachment; filename=audit_logs_%s.csv",
		time.Now().Format("2006-01-02"),
	))

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	if err := writer.Write([]string{
		"Event Time",
		"Event Type",
		"Severity",
		"Actor Username",
		"Actor IP",
		"Resource Type",
		"Resource Name",
		"Action",
		"Success",
		"Error Message",
	}); err != nil {
		return
	}

	for _, entry := range logs {
		successStr := "Yes"
		if !entry.Success {
			successStr = "No"
		}

		if err := writer.Write([]string{
			entry.EventTime.Format(time.RFC3339),
			string(entry.EventType),
			string(entry.Severity),
			entry.ActorUsername,
			entry.ActorIP,
			string(entry.ResourceType),
			entry.ResourceName,
			entry.Action,
			successStr,
			entry.ErrorMessage,
		}); err != nil {
			return
		}
	}
}
