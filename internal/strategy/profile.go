package strategy

import "github.com/go-crowd/crowdgate/internal/core"

// Provider is the provider tag stamped on every profile this package builds.
const Provider = "atlassian-crowd"

// Name holds the structured name parts of a profile.
type Name struct {
	GivenName  string `json:"givenName,omitempty"`
	FamilyName string `json:"familyName,omitempty"`
}

// Email is a single address entry. Profiles carry a list to leave room for
// directories that expose more than one address per account.
type Email struct {
	Value string `json:"value"`
}

// Profile is the normalized identity handed to the application after a
// successful login.
type Profile struct {
	Provider    string   `json:"provider"`
	ID          string   `json:"id"`
	Username    string   `json:"username"`
	DisplayName string   `json:"displayName,omitempty"`
	Name        Name     `json:"name"`
	Emails      []Email  `json:"emails,omitempty"`
	Groups      []string `json:"groups,omitempty"`
}

func profileFromIdentity(identity *core.Identity) *Profile {
	p := &Profile{
		Provider:    Provider,
		ID:          identity.Username,
		Username:    identity.Username,
		DisplayName: identity.DisplayName,
		Name: Name{
			GivenName:  identity.FirstName,
			FamilyName: identity.LastName,
		},
	}
	if identity.Email != "" {
		p.Emails = []Email{{Value: identity.Email}}
	}
	return p
}
