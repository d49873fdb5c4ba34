package crowd

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// maxAttributeValueLen is Crowd's storage limit for a single attribute value.
const maxAttributeValueLen = 255

// User is a Crowd user record. Password is write-only: it is sent on create
// and update calls but never populated when reading a user back.
type User struct {
	Username    string
	FirstName   string
	LastName    string
	DisplayName string
	Email       string
	Active      bool
	Password    string
}

// crowdUser is the wire form of a user, using Crowd's hyphenated field names.
type crowdUser struct {
	Name        string         `json:"name"`
	FirstName   string         `json:"first-name"`
	LastName    string         `json:"last-name"`
	DisplayName string         `json:"display-name"`
	Email       string         `json:"email"`
	Active      bool           `json:"active"`
	Password    *crowdPassword `json:"password,omitempty"`
}

type crowdPassword struct {
	Value string `json:"value"`
}

func (u User) toCrowd() crowdUser {
	cu := crowdUser{
		Name:        u.Username,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		Active:      u.Active,
	}
	if u.Password != "" {
		cu.Password = &crowdPassword{Value: u.Password}
	}
	return cu
}

func userFromCrowd(cu crowdUser) *User {
	return &User{
		Username:    cu.Name,
		FirstName:   cu.FirstName,
		LastName:    cu.LastName,
		DisplayName: cu.DisplayName,
		Email:       cu.Email,
		Active:      cu.Active,
	}
}

// Group is a Crowd group record.
type Group struct {
	Name        string
	Description string
	Active      bool
}

type crowdGroup struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
	Active      bool   `json:"active"`
}

func (g Group) toCrowd() crowdGroup {
	return crowdGroup{
		Name:        g.Name,
		Description: g.Description,
		Type:        "GROUP",
		Active:      g.Active,
	}
}

func groupFromCrowd(cg crowdGroup) *Group {
	return &Group{
		Name:        cg.Name,
		Description: cg.Description,
		Active:      cg.Active,
	}
}

// Attributes maps attribute names to values. Crowd stores attribute values as
// string arrays; this client constrains each attribute to exactly one value
// and JSON-encodes it, so values may be of any JSON-serializable type.
type Attributes map[string]any

type crowdAttribute struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// toCrowd converts the set to Crowd's name/values-array wire form. It fails
// before any network call when a value's JSON encoding exceeds the storage
// limit, naming the offending attribute.
func (a Attributes) toCrowd() ([]crowdAttribute, error) {
	names := make([]string, 0, len(a))
	for name := range a {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]crowdAttribute, 0, len(a))
	for _, name := range names {
		encoded, err := json.Marshal(a[name])
		if err != nil {
			return nil, fmt.Errorf("attribute %q is not JSON-serializable: %w", name, err)
		}
		if len(encoded) > maxAttributeValueLen {
			return nil, fmt.Errorf(
				"%w: attribute %q is %d characters after JSON encoding (limit %d)",
				ErrValueTooLarge, name, len(encoded), maxAttributeValueLen,
			)
		}
		out = append(out, crowdAttribute{Name: name, Values: []string{string(encoded)}})
	}
	return out, nil
}

func attributesFromCrowd(attrs []crowdAttribute) (Attributes, error) {
	out := make(Attributes, len(attrs))
	for _, attr := range attrs {
		if len(attr.Values) == 0 {
			out[attr.Name] = nil
			continue
		}
		var value any
		if err := json.Unmarshal([]byte(attr.Values[0]), &value); err != nil {
			return nil, fmt.Errorf("attribute %q holds invalid JSON: %w", attr.Name, err)
		}
		out[attr.Name] = value
	}
	return out, nil
}

// Session is an SSO session token issued by Crowd.
type Session struct {
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// crowdSession carries timestamps as millisecond epochs, per Crowd's
// created-date/expiry-date convention.
type crowdSession struct {
	Token       string `json:"token"`
	CreatedDate int64  `json:"created-date"`
	ExpiryDate  int64  `json:"expiry-date"`
}

func sessionFromCrowd(cs crowdSession) *Session {
	return &Session{
		Token:     cs.Token,
		CreatedAt: time.UnixMilli(cs.CreatedDate),
		ExpiresAt: time.UnixMilli(cs.ExpiryDate),
	}
}

// ValidationFactors bind a session to the context it was created in, e.g.
// {"remote_address": "10.0.0.1"}. Crowd re-checks them on every validation.
type ValidationFactors map[string]string

type crowdValidationFactor struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type crowdValidationFactors struct {
	ValidationFactors []crowdValidationFactor `json:"validationFactors"`
}

func (v ValidationFactors) toCrowd() crowdValidationFactors {
	names := make([]string, 0, len(v))
	for name := range v {
		names = append(names, name)
	}
	sort.Strings(names)

	factors := make([]crowdValidationFactor, 0, len(v))
	for _, name := range names {
		factors = append(factors, crowdValidationFactor{Name: name, Value: v[name]})
	}
	return crowdValidationFactors{ValidationFactors: factors}
}

// groupRef decodes both group reference shapes Crowd emits: the current
// {"name": ...} form and the legacy {"GroupEntity": {"name": ...}} wrapper
// used by older servers (e.g. JIRA's embedded Crowd).
type groupRef struct {
	Name   string `json:"name"`
	Legacy *struct {
		Name string `json:"name"`
	} `json:"GroupEntity,omitempty"`
}

func (g groupRef) name() string {
	if g.Legacy != nil {
		return g.Legacy.Name
	}
	return g.Name
}

type userRef struct {
	Name string `json:"name"`
}

// CookieConfig is Crowd's SSO cookie configuration.
type CookieConfig struct {
	Domain string `json:"domain"`
	Secure bool   `json:"secure"`
	Name   string `json:"name"`
}
