package strategy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-crowd/crowdgate/internal/core"
)

// stubDirectory counts calls so tests can assert exactly which directory
// operations a login performs.
type stubDirectory struct {
	identity *core.Identity
	groups   []string
	authErr  error
	groupErr error

	authCalls  int
	groupCalls int
}

func (d *stubDirectory) Authenticate(
	ctx context.Context,
	username, password string,
) (*core.Identity, error) {
	d.authCalls++
	if d.authErr != nil {
		return nil, d.authErr
	}
	return d.identity, nil
}

func (d *stubDirectory) Groups(ctx context.Context, username string) ([]string, error) {
	d.groupCalls++
	if d.groupErr != nil {
		return nil, d.groupErr
	}
	return d.groups, nil
}

func (d *stubDirectory) Name() string { return "stub" }

func santaIdentity() *core.Identity {
	return &core.Identity{
		Username:    "sclaus",
		FirstName:   "Santa",
		LastName:    "Claus",
		DisplayName: "Santa Claus",
		Email:       "sclaus@example.com",
		Active:      true,
	}
}

func TestAuthenticateBuildsProfile(t *testing.T) {
	dir := &stubDirectory{identity: santaIdentity()}
	s := New(dir)

	profile, err := s.Authenticate(context.Background(), map[string]any{
		"username": "sclaus",
		"password": "ho-ho-ho",
	})
	require.NoError(t, err)

	assert.Equal(t, "atlassian-crowd", profile.Provider)
	assert.Equal(t, "sclaus", profile.ID)
	assert.Equal(t, "sclaus", profile.Username)
	assert.Equal(t, "Santa Claus", profile.DisplayName)
	assert.Equal(t, Name{GivenName: "Santa", FamilyName: "Claus"}, profile.Name)
	assert.Equal(t, []Email{{Value: "sclaus@example.com"}}, profile.Emails)
	assert.Nil(t, profile.Groups)

	// Exactly one directory call: groups are off by default.
	assert.Equal(t, 1, dir.authCalls)
	assert.Zero(t, dir.groupCalls)
}

func TestAuthenticateMissingCredentials(t *testing.T) {
	dir := &stubDirectory{identity: santaIdentity()}
	s := New(dir)

	cases := []map[string]any{
		{},
		{"username": "sclaus"},
		{"password": "ho-ho-ho"},
		{"username": "", "password": "ho-ho-ho"},
	}
	for _, body := range cases {
		_, err := s.Authenticate(context.Background(), body)
		assert.ErrorIs(t, err, ErrMissingCredentials)
	}

	// The directory is never consulted without a full credential pair.
	assert.Zero(t, dir.authCalls)
}

func TestAuthenticateWithGroups(t *testing.T) {
	dir := &stubDirectory{
		identity: santaIdentity(),
		groups:   []string{"crowd-users", "north-pole", "admins"},
	}
	s := New(dir, WithGroups())

	profile, err := s.Authenticate(context.Background(), map[string]any{
		"username": "sclaus",
		"password": "ho-ho-ho",
	})
	require.NoError(t, err)

	// Group order is the directory's order.
	assert.Equal(t, []string{"crowd-users", "north-pole", "admins"}, profile.Groups)
	assert.Equal(t, 1, dir.authCalls)
	assert.Equal(t, 1, dir.groupCalls)
}

func TestAuthenticateGroupLookupFailure(t *testing.T) {
	groupErr := errors.New("directory unavailable")
	dir := &stubDirectory{identity: santaIdentity(), groupErr: groupErr}
	s := New(dir, WithGroups())

	_, err := s.Authenticate(context.Background(), map[string]any{
		"username": "sclaus",
		"password": "ho-ho-ho",
	})
	assert.ErrorIs(t, err, groupErr)
}

func TestAuthenticateRejectionPassesThrough(t *testing.T) {
	authErr := errors.New("invalid credentials")
	dir := &stubDirectory{authErr: authErr}
	s := New(dir)

	_, err := s.Authenticate(context.Background(), map[string]any{
		"username": "sclaus",
		"password": "wrong",
	})
	assert.ErrorIs(t, err, authErr)
}

func TestAuthenticateCustomFields(t *testing.T) {
	dir := &stubDirectory{identity: santaIdentity()}
	s := New(dir,
		WithUsernameField("user[name]"),
		WithPasswordField("user[secret]"),
	)

	profile, err := s.Authenticate(context.Background(), map[string]any{
		"user": map[string]any{
			"name":   "sclaus",
			"secret": "ho-ho-ho",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "sclaus", profile.Username)
}

func TestVerifyCallbackCanReject(t *testing.T) {
	dir := &stubDirectory{
		identity: santaIdentity(),
		groups:   []string{"crowd-users"},
	}
	rejection := errors.New("not in required group")

	s := New(dir, WithGroups(), WithVerify(
		func(ctx context.Context, profile *Profile) error {
			for _, g := range profile.Groups {
				if g == "admins" {
					return nil
				}
			}
			return rejection
		},
	))

	_, err := s.Authenticate(context.Background(), map[string]any{
		"username": "sclaus",
		"password": "ho-ho-ho",
	})
	assert.ErrorIs(t, err, rejection)
}

func TestVerifyCallbackCanEnrich(t *testing.T) {
	dir := &stubDirectory{identity: santaIdentity()}

	s := New(dir, WithVerify(
		func(ctx context.Context, profile *Profile) error {
			profile.DisplayName = "Mr. " + profile.DisplayName
			return nil
		},
	))

	profile, err := s.Authenticate(context.Background(), map[string]any{
		"username": "sclaus",
		"password": "ho-ho-ho",
	})
	require.NoError(t, err)
	assert.Equal(t, "Mr. Santa Claus", profile.DisplayName)
}
