package strategy

import (
	"context"
	"errors"

	"github.com/go-crowd/crowdgate/internal/core"
)

// Default request body fields holding the credentials.
const (
	defaultUsernameField = "username"
	defaultPasswordField = "password"
)

// ErrMissingCredentials is returned when the request body carries no username
// or no password. No directory call is made in that case.
var ErrMissingCredentials = errors.New("missing credentials")

// VerifyFunc lets the application inspect an authenticated profile before the
// login is accepted. Returning an error rejects the login; the profile may be
// mutated in place (e.g. to attach application roles).
type VerifyFunc func(ctx context.Context, profile *Profile) error

// Strategy verifies password credentials against a directory and produces a
// normalized Profile.
type Strategy struct {
	dir            core.Directory
	usernameField  string
	passwordField  string
	retrieveGroups bool
	verify         VerifyFunc
}

// Option configures a Strategy.
type Option func(*Strategy)

// WithUsernameField overrides the body field holding the username. Bracket
// syntax addresses nested fields, e.g. "user[name]".
func WithUsernameField(field string) Option {
	return func(s *Strategy) {
		if field != "" {
			s.usernameField = field
		}
	}
}

// WithPasswordField overrides the body field holding the password.
func WithPasswordField(field string) Option {
	return func(s *Strategy) {
		if field != "" {
			s.passwordField = field
		}
	}
}

// WithGroups enables group retrieval: every accepted profile is enriched with
// the user's group names, at the cost of one extra directory call per login.
func WithGroups() Option {
	return func(s *Strategy) {
		s.retrieveGroups = true
	}
}

// WithVerify installs an application verify callback.
func WithVerify(fn VerifyFunc) Option {
	return func(s *Strategy) {
		s.verify = fn
	}
}

// New creates a Strategy over the given directory.
func New(dir core.Directory, opts ...Option) *Strategy {
	s := &Strategy{
		dir:           dir,
		usernameField: defaultUsernameField,
		passwordField: defaultPasswordField,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Authenticate extracts credentials from a parsed request body and verifies
// them. The body is the decoded form or JSON payload of the login request.
func (s *Strategy) Authenticate(ctx context.Context, body map[string]any) (*Profile, error) {
	username := lookup(body, s.usernameField)
	password := lookup(body, s.passwordField)
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	return s.AuthenticateCredentials(ctx, username, password)
}

// AuthenticateCredentials verifies an explicit username/password pair. Errors
// from the directory pass through unchanged so callers can distinguish a
// rejection from a directory failure.
func (s *Strategy) AuthenticateCredentials(
	ctx context.Context,
	username, password string,
) (*Profile, error) {
	identity, err := s.dir.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	profile := profileFromIdentity(identity)

	if s.retrieveGroups {
		groups, err := s.dir.Groups(ctx, identity.Username)
		if err != nil {
			return nil, err
		}
		profile.Groups = groups
	}

	if s.verify != nil {
		if err := s.verify(ctx, profile); err != nil {
			return nil, err
		}
	}

	return profile, nil
}
