package auth

import "errors"

var (
	// ErrInvalidCredentials is returned when the directory rejects the
	// presented username/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidSession is returned when an SSO token is unknown, expired, or
	// does not match its validation factors.
	ErrInvalidSession = errors.New("invalid session token")
)
