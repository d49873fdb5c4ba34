package crowd

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// SessionResource manages Crowd SSO session tokens.
type SessionResource struct {
	c *Client
}

type crowdSessionRequest struct {
	Username          string                  `json:"username"`
	Password          string                  `json:"password,omitempty"`
	ValidationFactors *crowdValidationFactors `json:"validation-factors,omitempty"`
}

// clampDuration applies the configured default session timeout when the
// requested duration is unset or exceeds it. Crowd enforces its own maximum
// server-side; this keeps the client's requests honest about it.
func (r *SessionResource) clampDuration(duration time.Duration) time.Duration {
	if duration <= 0 || duration > r.c.cfg.SessionTimeout {
		return r.c.cfg.SessionTimeout
	}
	return duration
}

func sessionQuery(duration time.Duration) url.Values {
	seconds := int64(duration / time.Second)
	return url.Values{"duration": {strconv.FormatInt(seconds, 10)}}
}

// Create authenticates the user and creates a new session token. If an
// ongoing session already exists for the same credentials and validation
// factors, Crowd returns that session's token instead of minting a new one.
// Factors may be nil; a zero duration uses the configured default.
func (r *SessionResource) Create(
	ctx context.Context,
	username, password string,
	factors ValidationFactors,
	duration time.Duration,
) (*Session, error) {
	payload := crowdSessionRequest{Username: username, Password: password}
	if len(factors) > 0 {
		vf := factors.toCrowd()
		payload.ValidationFactors = &vf
	}
	q := sessionQuery(r.clampDuration(duration))

	var out crowdSession
	if err := r.c.do(ctx, http.MethodPost, "/session?"+q.Encode(), payload, &out); err != nil {
		return nil, wrapAuthRejected(err)
	}
	return sessionFromCrowd(out), nil
}

// CreateUnvalidated creates a session token without checking the user's
// password. This backs SSO bootstrap flows where the user was already
// authenticated by other means.
func (r *SessionResource) CreateUnvalidated(
	ctx context.Context,
	username string,
	factors ValidationFactors,
	duration time.Duration,
) (*Session, error) {
	payload := crowdSessionRequest{Username: username}
	if len(factors) > 0 {
		vf := factors.toCrowd()
		payload.ValidationFactors = &vf
	}
	q := sessionQuery(r.clampDuration(duration))
	q.Set("validate-password", "false")

	var out crowdSession
	if err := r.c.do(ctx, http.MethodPost, "/session?"+q.Encode(), payload, &out); err != nil {
		return nil, wrapAuthRejected(err)
	}
	return sessionFromCrowd(out), nil
}

// Validate checks the token against the validation factors it was created
// with and keeps the SSO session alive. An unknown or expired token, or
// mismatched factors, yields ErrUnauthorized.
func (r *SessionResource) Validate(ctx context.Context, token string, factors ValidationFactors) (*Session, error) {
	payload := factors.toCrowd()
	var out crowdSession
	if err := r.c.do(ctx, http.MethodPost, "/session/"+url.PathEscape(token), payload, &out); err != nil {
		return nil, wrapAuthRejected(err)
	}
	return sessionFromCrowd(out), nil
}

// User retrieves the user the session token belongs to.
func (r *SessionResource) User(ctx context.Context, token string) (*User, error) {
	var out struct {
		User crowdUser `json:"user"`
	}
	if err := r.c.do(ctx, http.MethodGet, "/session/"+url.PathEscape(token), nil, &out); err != nil {
		return nil, err
	}
	return userFromCrowd(out.User), nil
}

// Remove invalidates the token.
func (r *SessionResource) Remove(ctx context.Context, token string) error {
	return r.c.do(ctx, http.MethodDelete, "/session/"+url.PathEscape(token), nil, nil)
}

// RemoveAll invalidates every token for the user. A non-empty exceptToken is
// spared, which lets "log out everywhere else" keep the current session.
func (r *SessionResource) RemoveAll(ctx context.Context, username, exceptToken string) error {
	q := url.Values{"username": {username}}
	if exceptToken != "" {
		q.Set("exclude", exceptToken)
	}
	return r.c.do(ctx, http.MethodDelete, "/session?"+q.Encode(), nil, nil)
}

// wrapAuthRejected marks 400-range rejections of credentials, tokens or
// validation factors so errors.Is(err, ErrUnauthorized) holds regardless of
// whether Crowd answered 400 or 401.
func wrapAuthRejected(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if asAPIError(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
		if apiErr.StatusCode == 404 {
			return err
		}
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	return err
}
