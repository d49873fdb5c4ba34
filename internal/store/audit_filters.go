package store

import (
	"time"

	"github.com/go-crowd/crowdgate/internal/models"
)

// AuditLogFilters contains filter criteria for querying audit logs
type AuditLogFilters struct {
	EventType     models.EventType     `json:"event_type,omitempty"`
	ActorUsername string               `json:"actor_username,omitempty"`
	ActorIP       string               `json:"actor_ip,omitempty"`
	ResourceType  models.ResourceType  `json:"resource_type,omitempty"`
	Severity      models.EventSeverity `json:"severity,omitempty"`
	Success       *bool                `json:"success,omitempty"`
	StartTime     time.Time            `json:"start_time,omitzero"`
	EndTime       time.Time            `json:"end_time,omitzero"`
}

// PaginationParams describes the requested page.
type PaginationParams struct {
	Page     int `json:"page"`      // 1-based
	PageSize int `json:"page_size"` // capped at maxPageSize
}

// PaginationResult describes the returned page.
type PaginationResult struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalRows  int64 `json:"total_rows"`
	TotalPages int   `json:"total_pages"`
}

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

func (p PaginationParams) normalize() PaginationParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = defaultPageSize
	}
	if p.PageSize > maxPageSize {
		p.PageSize = maxPageSize
	}
	return p
}
