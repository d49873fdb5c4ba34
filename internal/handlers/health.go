package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/go-crowd/crowdgate/internal/core"
	"github.com/go-crowd/crowdgate/internal/crowd"
	"github.com/go-crowd/crowdgate/internal/store"
)

// HealthHandler reports the health of the service and its dependencies.
type HealthHandler struct {
	client *crowd.Client
	store  *store.Store
	cache  core.Cache[core.SessionInfo]
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(
	client *crowd.Client,
	s *store.Store,
	cache core.Cache[core.SessionInfo],
) *HealthHandler {
	return &HealthHandler{
		client: client,
		store:  s,
		cache:  cache,
	}
}

// Health checks the Crowd server, the audit database, and the session cache.
// Any failing component turns the overall status to 503 so load balancers
// stop routing logins here.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	components := gin.H{}
	healthy := true

	if err := h.client.Ping(ctx); err != nil {
		components["crowd"] = gin.H{"status": "down", "error": err.Error()}
		healthy = false
	} else {
		components["crowd"] = gin.H{"status": "up"}
	}

	if h.store != nil {
		if err := h.store.Health(); err != nil {
			components["database"] = gin.H{"status": "down", "error": err.Error()}
			healthy = false
		} else {
			components["database"] = gin.H{"status": "up"}
		}
	}

	if h.cache != nil {
		if err := h.cache.Health(ctx); err != nil {
			components["cache"] = gin.H{"status": "down", "error": err.Error()}
			healthy = false
		} else {
			components["cache"] = gin.H{"status": "up"}
		}
	}

	status := http.StatusOK
	overall := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}
	c.JSON(status, gin.H{
		"status":     overall,
		"components": components,
	})
}
