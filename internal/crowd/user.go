package crowd

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Paging defaults for membership and search listings.
const (
	defaultStartIndex = 0
	defaultMaxResults = 1000
)

// pagingQuery fills a query with start-index/max-results, applying the
// defaults when the caller passes zero values.
func pagingQuery(q url.Values, start, max int) url.Values {
	if start < 0 {
		start = defaultStartIndex
	}
	if max <= 0 {
		max = defaultMaxResults
	}
	q.Set("start-index", strconv.Itoa(start))
	q.Set("max-results", strconv.Itoa(max))
	return q
}

func nestingSegment(nested bool) string {
	if nested {
		return "nested"
	}
	return "direct"
}

// UserResource provides user CRUD, attribute, password and group-membership
// operations.
type UserResource struct {
	c *Client
}

// Get retrieves a user by username. When withAttributes is set the returned
// record is expanded with its attribute set on the server side.
func (r *UserResource) Get(ctx context.Context, username string, withAttributes bool) (*User, error) {
	q := url.Values{"username": {username}}
	if withAttributes {
		q.Set("expand", "attributes")
	}
	var cu crowdUser
	if err := r.c.do(ctx, http.MethodGet, "/user?"+q.Encode(), nil, &cu); err != nil {
		return nil, err
	}
	return userFromCrowd(cu), nil
}

// Create creates a new user. Crowd echoes the created record, which is
// returned without the password.
func (r *UserResource) Create(ctx context.Context, user User) (*User, error) {
	var cu crowdUser
	if err := r.c.do(ctx, http.MethodPost, "/user", user.toCrowd(), &cu); err != nil {
		return nil, wrapRejected(err)
	}
	return userFromCrowd(cu), nil
}

// Update replaces the user record. Crowd answers 204 No Content, so the
// updated record is read back for consistency with Create.
func (r *UserResource) Update(ctx context.Context, username string, user User) (*User, error) {
	q := url.Values{"username": {username}}
	if err := r.c.do(ctx, http.MethodPut, "/user?"+q.Encode(), user.toCrowd(), nil); err != nil {
		return nil, wrapRejected(err)
	}
	return r.Get(ctx, username, false)
}

// Remove deletes a user.
func (r *UserResource) Remove(ctx context.Context, username string) error {
	q := url.Values{"username": {username}}
	return r.c.do(ctx, http.MethodDelete, "/user?"+q.Encode(), nil, nil)
}

// Attributes retrieves the user's attribute set.
func (r *UserResource) Attributes(ctx context.Context, username string) (Attributes, error) {
	q := url.Values{"username": {username}}
	var out struct {
		Attributes []crowdAttribute `json:"attributes"`
	}
	if err := r.c.do(ctx, http.MethodGet, "/user/attribute?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return attributesFromCrowd(out.Attributes)
}

// SetAttributes stores the attribute set. Oversized values fail locally
// before any network call; otherwise the set is written and read back so the
// caller receives the state Crowd actually holds.
func (r *UserResource) SetAttributes(ctx context.Context, username string, attrs Attributes) (Attributes, error) {
	encoded, err := attrs.toCrowd()
	if err != nil {
		return nil, err
	}
	q := url.Values{"username": {username}}
	payload := struct {
		Attributes []crowdAttribute `json:"attributes"`
	}{Attributes: encoded}
	if err := r.c.do(ctx, http.MethodPost, "/user/attribute?"+q.Encode(), payload, nil); err != nil {
		return nil, err
	}
	return r.Attributes(ctx, username)
}

// RemoveAttribute deletes a single attribute.
func (r *UserResource) RemoveAttribute(ctx context.Context, username, attribute string) error {
	q := url.Values{"username": {username}, "attributename": {attribute}}
	return r.c.do(ctx, http.MethodDelete, "/user/attribute?"+q.Encode(), nil, nil)
}

// SetPassword updates the user's password.
func (r *UserResource) SetPassword(ctx context.Context, username, password string) error {
	q := url.Values{"username": {username}}
	return r.c.do(ctx, http.MethodPut, "/user/password?"+q.Encode(), crowdPassword{Value: password}, nil)
}

// ResetPassword makes Crowd send the user a password reset link.
func (r *UserResource) ResetPassword(ctx context.Context, username string) error {
	q := url.Values{"username": {username}}
	return r.c.do(ctx, http.MethodPost, "/user/mail/password?"+q.Encode(), nil, nil)
}

// RequestUsernames makes Crowd send a username reminder to every account
// associated with the given email address.
func (r *UserResource) RequestUsernames(ctx context.Context, email string) error {
	q := url.Values{"email": {email}}
	return r.c.do(ctx, http.MethodPost, "/user/mail/usernames?"+q.Encode(), nil, nil)
}

// GroupMembership checks a single membership and returns the group name.
// Nested traversal follows transitive membership; not every backing
// directory supports it.
func (r *UserResource) GroupMembership(ctx context.Context, username, groupname string, nested bool) (string, error) {
	q := url.Values{"username": {username}, "groupname": {groupname}}
	var ref groupRef
	path := fmt.Sprintf("/user/group/%s?%s", nestingSegment(nested), q.Encode())
	if err := r.c.do(ctx, http.MethodGet, path, nil, &ref); err != nil {
		return "", err
	}
	return ref.name(), nil
}

// Groups lists the names of the groups the user belongs to, in the order
// Crowd returns them. Pass zero for start and max to use the defaults.
func (r *UserResource) Groups(ctx context.Context, username string, nested bool, start, max int) ([]string, error) {
	q := pagingQuery(url.Values{"username": {username}}, start, max)
	var out struct {
		Groups []groupRef `json:"groups"`
	}
	path := fmt.Sprintf("/user/group/%s?%s", nestingSegment(nested), q.Encode())
	if err := r.c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(out.Groups))
	for _, ref := range out.Groups {
		names = append(names, ref.name())
	}
	return names, nil
}

// AddGroup adds the user as a direct member of the group.
func (r *UserResource) AddGroup(ctx context.Context, username, groupname string) error {
	q := url.Values{"username": {username}}
	payload := struct {
		Name string `json:"name"`
	}{Name: groupname}
	return r.c.do(ctx, http.MethodPost, "/user/group/direct?"+q.Encode(), payload, nil)
}

// RemoveGroup removes the user's direct membership of the group.
func (r *UserResource) RemoveGroup(ctx context.Context, username, groupname string) error {
	q := url.Values{"username": {username}, "groupname": {groupname}}
	return r.c.do(ctx, http.MethodDelete, "/user/group/direct?"+q.Encode(), nil, nil)
}

// wrapRejected marks 400-range payload rejections (duplicate usernames,
// invalid entities) so errors.Is(err, ErrConflict) holds even though Crowd
// reports them as a generic 400.
func wrapRejected(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if asAPIError(err, &apiErr) && apiErr.StatusCode == 400 {
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return err
}
