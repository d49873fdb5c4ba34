package middleware

import (
	"net/http"
	"net/url"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/go-crowd/crowdgate/internal/core"
	"github.com/go-crowd/crowdgate/internal/util"
)

// Session keys.
const (
	SessionUsername = "username"
	SessionToken    = "crowd_token"
	SessionLoginAt  = "login_at"
)

// ValidationFactors builds the validation factors bound to this request.
// Crowd re-checks them on every token validation, which ties an SSO token to
// the address it was minted for.
func ValidationFactors(c *gin.Context) map[string]string {
	return map[string]string{
		"remote_address": c.ClientIP(),
	}
}

// RequireAuth requires a logged-in user. A local session wins; without one
// the Crowd SSO cookie is validated, so a login on any other application
// connected to the same Crowd server carries over. Unauthenticated requests
// are redirected to the login page with a return URL.
func RequireAuth(validator core.SessionValidator, ssoCookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		if username, ok := session.Get(SessionUsername).(string); ok && username != "" {
			c.Set(util.ContextKeyUsername, username)
			c.Next()
			return
		}

		if validator != nil && ssoCookieName != "" {
			if token, err := c.Cookie(ssoCookieName); err == nil && token != "" {
				info, err := validator.ValidateSession(c, token, ValidationFactors(c))
				if err == nil {
					c.Set(util.ContextKeyUsername, info.Username)
					c.Next()
					return
				}
			}
		}

		redirectURL := url.QueryEscape(c.Request.URL.String())
		c.Redirect(http.StatusFound, "/login?redirect="+redirectURL)
		c.Abort()
	}
}

// RequireAuthJSON is RequireAuth for API routes: it answers 401 instead of
// redirecting.
func RequireAuthJSON(validator core.SessionValidator, ssoCookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		if username, ok := session.Get(SessionUsername).(string); ok && username != "" {
			c.Set(util.ContextKeyUsername, username)
			c.Next()
			return
		}

		if validator != nil && ssoCookieName != "" {
			if token, err := c.Cookie(ssoCookieName); err == nil && token != "" {
				info, err := validator.ValidateSession(c, token, ValidationFactors(c))
				if err == nil {
					c.Set(util.ContextKeyUsername, info.Username)
					c.Next()
					return
				}
			}
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "Login required",
		})
	}
}
