package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-crowd/crowdgate/internal/core"
	"github.com/go-crowd/crowdgate/internal/crowd"
)

// Compile-time interface check.
var _ core.SessionValidator = (*CrowdValidator)(nil)

// CrowdValidator validates SSO tokens against Crowd, with a read-through
// cache in front so hot tokens do not hit the Crowd server on every request.
// Cache entries never outlive the session they describe.
type CrowdValidator struct {
	client  *crowd.Client
	cache   core.Cache[core.SessionInfo]
	ttl     time.Duration
	metrics core.Recorder
}

// NewCrowdValidator creates a validator with the given cache and entry TTL.
func NewCrowdValidator(
	client *crowd.Client,
	c core.Cache[core.SessionInfo],
	ttl time.Duration,
	recorder core.Recorder,
) *CrowdValidator {
	return &CrowdValidator{
		client:  client,
		cache:   c,
		ttl:     ttl,
		metrics: recorder,
	}
}

// ValidateSession checks the token with Crowd and returns the session owner.
// A cached hit skips both the validation and the user lookup; the trade-off
// is that factor changes within the TTL window go unnoticed.
func (v *CrowdValidator) ValidateSession(
	ctx context.Context,
	token string,
	factors map[string]string,
) (*core.SessionInfo, error) {
	if info, err := v.cache.Get(ctx, token); err == nil {
		v.metrics.RecordCacheLookup(true)
		return &info, nil
	}
	v.metrics.RecordCacheLookup(false)

	start := time.Now()
	session, err := v.client.Session.Validate(ctx, token, crowd.ValidationFactors(factors))
	if err != nil {
		if errors.Is(err, crowd.ErrUnauthorized) || errors.Is(err, crowd.ErrNotFound) {
			v.metrics.RecordSessionValidation("invalid", time.Since(start))
			return nil, fmt.Errorf("%w: %w", ErrInvalidSession, err)
		}
		v.metrics.RecordSessionValidation("error", time.Since(start))
		return nil, err
	}

	user, err := v.client.Session.User(ctx, token)
	if err != nil {
		v.metrics.RecordSessionValidation("error", time.Since(start))
		return nil, err
	}
	v.metrics.RecordSessionValidation("valid", time.Since(start))

	info := core.SessionInfo{
		Token:    session.Token,
		Username: user.Username,
	}

	// Cap the TTL at the session's remaining lifetime.
	ttl := v.ttl
	if remaining := time.Until(session.ExpiresAt); remaining > 0 && remaining < ttl {
		ttl = remaining
	}
	if ttl > 0 {
		_ = v.cache.Set(ctx, session.Token, info, ttl)
	}

	return &info, nil
}

// Invalidate removes the token from Crowd and from the cache.
func (v *CrowdValidator) Invalidate(ctx context.Context, token string) error {
	_ = v.cache.Delete(ctx, token)
	return v.client.Session.Remove(ctx, token)
}
