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
var _ core.Directory = (*CrowdDirectory)(nil)

// CrowdDirectory implements core.Directory backed by a Crowd server. It maps
// the client's error taxonomy onto the package sentinels so callers never see
// raw status codes.
type CrowdDirectory struct {
	client  *crowd.Client
	nested  bool
	metrics core.Recorder
}

// NewCrowdDirectory creates a directory backed by the given Crowd client.
// When nested is set, group listings follow transitive membership.
func NewCrowdDirectory(client *crowd.Client, nested bool, recorder core.Recorder) *CrowdDirectory {
	return &CrowdDirectory{
		client:  client,
		nested:  nested,
		metrics: recorder,
	}
}

// Name returns the directory identifier used in logs and metric labels.
func (d *CrowdDirectory) Name() string {
	return "crowd"
}

// Authenticate verifies the username/password pair against Crowd.
func (d *CrowdDirectory) Authenticate(
	ctx context.Context,
	username, password string,
) (*core.Identity, error) {
	start := time.Now()
	user, err := d.client.Authentication.Authenticate(ctx, username, password)
	d.metrics.RecordDirectoryCall("authenticate", err == nil, time.Since(start))
	d.metrics.RecordAuthAttempt(d.Name(), err == nil, time.Since(start))

	if err != nil {
		if errors.Is(err, crowd.ErrUnauthorized) || errors.Is(err, crowd.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return nil, err
	}

	return &core.Identity{
		Username:    user.Username,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		Active:      user.Active,
	}, nil
}

// Groups lists the user's group names in the order Crowd returns them.
func (d *CrowdDirectory) Groups(ctx context.Context, username string) ([]string, error) {
	start := time.Now()
	groups, err := d.client.User.Groups(ctx, username, d.nested, 0, 0)
	d.metrics.RecordDirectoryCall("groups", err == nil, time.Since(start))
	return groups, err
}
