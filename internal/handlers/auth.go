package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/go-crowd/crowdgate/internal/auth"
	"github.com/go-crowd/crowdgate/internal/core"
	"github.com/go-crowd/crowdgate/internal/crowd"
	"github.com/go-crowd/crowdgate/internal/middleware"
	"github.com/go-crowd/crowdgate/internal/models"
	"github.com/go-crowd/crowdgate/internal/services"
	"github.com/go-crowd/crowdgate/internal/strategy"
	"github.com/go-crowd/crowdgate/internal/util"
)

// AuthHandler handles login and logout against the Crowd directory.
type AuthHandler struct {
	strategy  *strategy.Strategy
	client    *crowd.Client
	validator *auth.CrowdValidator
	audit     *services.AuditService
	metrics   core.Recorder
	baseURL   string
	ssoCookie crowd.CookieConfig
}

// NewAuthHandler creates a new auth handler. ssoCookie carries the SSO cookie
// settings fetched from Crowd at startup.
func NewAuthHandler(
	s *strategy.Strategy,
	client *crowd.Client,
	validator *auth.CrowdValidator,
	audit *services.AuditService,
	recorder core.Recorder,
	baseURL string,
	ssoCookie crowd.CookieConfig,
) *AuthHandler {
	return &AuthHandler{
		strategy:  s,
		client:    client,
		validator: validator,
		audit:     audit,
		metrics:   recorder,
		baseURL:   baseURL,
		ssoCookie: ssoCookie,
	}
}

// loginBody decodes the login request into a generic map so the configured
// credential fields (including nested "user[name]" style paths) can be looked
// up regardless of whether the client sent a form or JSON.
func loginBody(c *gin.Context) (map[string]any, error) {
	contentType := c.ContentType()
	if strings.Contains(contentType, "json") {
		body := map[string]any{}
		if err := c.ShouldBindJSON(&body); err != nil {
			return nil, err
		}
		return body, nil
	}

	if err := c.Request.ParseForm(); err != nil {
		return nil, err
	}
	body := make(map[string]any, len(c.Request.PostForm))
	for key, values := range c.Request.PostForm {
		if len(values) > 0 {
			body[key] = values[0]
		}
	}
	return body, nil
}

// wantsJSON reports whether the client expects a JSON response rather than a
// browser redirect.
func wantsJSON(c *gin.Context) bool {
	if strings.Contains(c.ContentType(), "json") {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}

// Login verifies the submitted credentials against Crowd and establishes both
// a local session and a Crowd SSO session. Form clients are redirected;
// JSON clients get the authenticated profile back.
func (h *AuthHandler) Login(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := loginBody(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Malformed request body",
		})
		return
	}

	redirectTo := c.PostForm("redirect")
	if redirectTo == "" {
		redirectTo = c.Query("redirect")
	}
	if !util.IsRedirectSafe(redirectTo, h.baseURL) {
		redirectTo = ""
	}

	profile, err := h.strategy.Authenticate(ctx, body)
	if err != nil {
		h.loginFailed(c, err, redirectTo)
		return
	}

	// Credentials already checked; mint the SSO token without a second
	// password validation round trip.
	session, err := h.client.Session.CreateUnvalidated(
		ctx, profile.Username, crowd.ValidationFactors(middleware.ValidationFactors(c)), 0,
	)
	if err != nil {
		log.Printf("failed to create SSO session for %s: %v", profile.Username, err)
		h.metrics.RecordLogin("error")
		h.auditEvent(c, services.AuditLogEntry{
			EventType:     models.EventDirectoryUnavailable,
			Severity:      models.SeverityError,
			ActorUsername: profile.Username,
			ResourceType:  models.ResourceSession,
			Action:        "create SSO session",
			ErrorMessage:  err.Error(),
		})
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "directory_unavailable",
			"message": "Directory server did not issue a session",
		})
		return
	}

	local := sessions.Default(c)
	local.Set(middleware.SessionUsername, profile.Username)
	local.Set(middleware.SessionToken, session.Token)
	local.Set(middleware.SessionLoginAt, time.Now().Unix())
	if err := local.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "session_error",
			"message": "Failed to save session",
		})
		return
	}
	h.setSSOCookie(c, session)

	h.metrics.RecordLogin("success")
	h.metrics.RecordSessionIssued()
	h.auditEvent(c, services.AuditLogEntry{
		EventType:     models.EventAuthenticationSuccess,
		Severity:      models.SeverityInfo,
		ActorUsername: profile.Username,
		ResourceType:  models.ResourceUser,
		ResourceName:  profile.Username,
		Action:        "login",
		Success:       true,
		Details: models.AuditDetails{
			"session_token": session.Token,
			"groups":        len(profile.Groups),
		},
	})

	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{
			"profile": profile,
			"expires": session.ExpiresAt,
		})
		return
	}
	if redirectTo == "" {
		redirectTo = "/"
	}
	c.Redirect(http.StatusFound, redirectTo)
}

func (h *AuthHandler) loginFailed(c *gin.Context, err error, redirectTo string) {
	username := c.PostForm("username")

	switch {
	case errors.Is(err, strategy.ErrMissingCredentials):
		h.metrics.RecordLogin("missing_credentials")
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "missing_credentials",
			"message": "Username and password are required",
		})
		return

	case errors.Is(err, auth.ErrInvalidCredentials):
		h.metrics.RecordLogin("invalid")
		h.auditEvent(c, services.AuditLogEntry{
			EventType:     models.EventAuthenticationFailure,
			Severity:      models.SeverityWarning,
			ActorUsername: username,
			ResourceType:  models.ResourceUser,
			ResourceName:  username,
			Action:        "login",
			ErrorMessage:  "invalid credentials",
		})
		if wantsJSON(c) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid_credentials",
				"message": "Invalid username or password",
			})
			return
		}
		c.Redirect(http.StatusFound, "/login?error=invalid_credentials&redirect="+redirectTo)
		return

	case crowd.IsClientError(err):
		// A 4xx outside the credential check, e.g. from group enrichment,
		// still rejects this login; only transport and 5xx failures count as
		// a directory outage. Crowd's error payload is surfaced to the caller.
		h.metrics.RecordLogin("rejected")
		h.auditEvent(c, services.AuditLogEntry{
			EventType:     models.EventAuthenticationFailure,
			Severity:      models.SeverityWarning,
			ActorUsername: username,
			ResourceType:  models.ResourceUser,
			ResourceName:  username,
			Action:        "login",
			ErrorMessage:  err.Error(),
		})
		message := "Login rejected by the directory"
		var apiErr *crowd.APIError
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			message = apiErr.Message
		}
		if wantsJSON(c) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "rejected",
				"message": message,
			})
			return
		}
		c.Redirect(http.StatusFound, "/login?error=rejected&redirect="+redirectTo)
		return

	default:
		log.Printf("directory error during login: %v", err)
		h.metrics.RecordLogin("error")
		h.auditEvent(c, services.AuditLogEntry{
			EventType:     models.EventDirectoryUnavailable,
			Severity:      models.SeverityError,
			ActorUsername: username,
			ResourceType:  models.ResourceUser,
			Action:        "login",
			ErrorMessage:  err.Error(),
		})
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "directory_unavailable",
			"message": "Directory server is unavailable",
		})
	}
}

// setSSOCookie mirrors the Crowd session token into the SSO cookie so other
// applications connected to the same Crowd server pick the login up.
func (h *AuthHandler) setSSOCookie(c *gin.Context, session *crowd.Session) {
	maxAge := int(time.Until(session.ExpiresAt) / time.Second)
	if maxAge <= 0 {
		maxAge = 0
	}
	c.SetCookie(h.ssoCookie.Name, session.Token, maxAge, "/", h.ssoCookie.Domain, h.ssoCookie.Secure, true)
}

// Logout invalidates the Crowd SSO session and clears the local one. With
// ?everywhere=true every session of the user is removed, not just this one.
func (h *AuthHandler) Logout(c *gin.Context) {
	ctx := c.Request.Context()
	local := sessions.Default(c)

	username, _ := local.Get(middleware.SessionUsername).(string)
	token, _ := local.Get(middleware.SessionToken).(string)
	loginAt, _ := local.Get(middleware.SessionLoginAt).(int64)

	everywhere := c.Query("everywhere") == "true"
	reason := "logout"
	if token != "" {
		var err error
		if everywhere && username != "" {
			reason = "logout_everywhere"
			err = h.client.Session.RemoveAll(ctx, username, "")
		} else {
			err = h.validator.Invalidate(ctx, token)
		}
		if err != nil {
			// The local session still goes away; the Crowd token will
			// expire on its own.
			log.Printf("failed to invalidate SSO session for %s: %v", username, err)
		}
		h.metrics.RecordSessionInvalidated(reason)
	}

	local.Clear()
	if err := local.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "session_error",
			"message": "Failed to clear session",
		})
		return
	}
	c.SetCookie(h.ssoCookie.Name, "", -1, "/", h.ssoCookie.Domain, h.ssoCookie.Secure, true)

	if loginAt > 0 {
		h.metrics.RecordLogout(time.Since(time.Unix(loginAt, 0)))
	}
	h.auditEvent(c, services.AuditLogEntry{
		EventType:     models.EventLogout,
		Severity:      models.SeverityInfo,
		ActorUsername: username,
		ResourceType:  models.ResourceSession,
		Action:        reason,
		Success:       true,
		Details: models.AuditDetails{
			"session_token": token,
			"everywhere":    everywhere,
		},
	})

	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
		return
	}
	c.Redirect(http.StatusFound, "/login")
}

func (h *AuthHandler) auditEvent(c *gin.Context, entry services.AuditLogEntry) {
	if h.audit == nil {
		return
	}
	entry.ActorIP = c.ClientIP()
	entry.UserAgent = c.Request.UserAgent()
	entry.RequestPath = c.Request.URL.Path
	entry.RequestMethod = c.Request.Method
	h.audit.Log(c.Request.Context(), entry)
}
