package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/go-crowd/crowdgate/internal/crowd"
	"github.com/go-crowd/crowdgate/internal/util"
)

// ProfileHandler serves the authenticated user's directory record.
type ProfileHandler struct {
	client *crowd.Client
	nested bool
}

// NewProfileHandler creates a new profile handler. When nested is set, the
// groups listing follows transitive membership.
func NewProfileHandler(client *crowd.Client, nested bool) *ProfileHandler {
	return &ProfileHandler{
		client: client,
		nested: nested,
	}
}

// Profile returns the current user as Crowd knows them. With ?groups=true the
// response includes the user's group names.
func (h *ProfileHandler) Profile(c *gin.Context) {
	ctx := c.Request.Context()
	username := util.GetUsernameFromContext(c)
	if username == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "Login required",
		})
		return
	}

	user, err := h.client.User.Get(ctx, username, false)
	if err != nil {
		if errors.Is(err, crowd.ErrNotFound) {
			// The session outlived the directory record.
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "user_not_found",
				"message": "User no longer exists in the directory",
			})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "directory_unavailable",
			"message": "Directory server is unavailable",
		})
		return
	}

	resp := gin.H{"user": gin.H{
		"username":     user.Username,
		"first_name":   user.FirstName,
		"last_name":    user.LastName,
		"display_name": user.DisplayName,
		"email":        user.Email,
		"active":       user.Active,
	}}
	if c.Query("groups") == "true" {
		groups, err := h.client.User.Groups(ctx, username, h.nested, 0, 0)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{
				"error":   "directory_unavailable",
				"message": "Failed to retrieve groups",
			})
			return
		}
		resp["groups"] = groups
	}

	c.JSON(http.StatusOK, resp)
}
