package core

import "context"

// Identity holds the principal returned by a successful credential check.
type Identity struct {
	Username    string
	FirstName   string
	LastName    string
	DisplayName string
	Email       string // Optional
	Active      bool
}

// Directory is the interface that password-based identity backends must
// implement.
type Directory interface {
	Authenticate(ctx context.Context, username, password string) (*Identity, error)
	Groups(ctx context.Context, username string) ([]string, error)
	Name() string
}

// SessionInfo describes a validated SSO session.
type SessionInfo struct {
	Token    string
	Username string
}

// SessionValidator is implemented by backends that can validate SSO tokens
// against the validation factors they were minted with.
type SessionValidator interface {
	ValidateSession(
		ctx context.Context,
		token string,
		factors map[string]string,
	) (*SessionInfo, error)
}
