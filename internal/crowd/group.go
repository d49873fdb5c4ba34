package crowd

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// GroupResource provides group CRUD, attribute and membership operations,
// including the parent/child group graph.
//
// Nested variants traverse transitive membership. Not all backing directories
// support nesting (OpenLDAP famously does not); treat it as an optional
// capability and expect errors from servers without it.
type GroupResource struct {
	c *Client
}

// Get retrieves a group by name.
func (r *GroupResource) Get(ctx context.Context, groupname string, withAttributes bool) (*Group, error) {
	q := url.Values{"groupname": {groupname}}
	if withAttributes {
		q.Set("expand", "attributes")
	}
	var cg crowdGroup
	if err := r.c.do(ctx, http.MethodGet, "/group?"+q.Encode(), nil, &cg); err != nil {
		return nil, err
	}
	return groupFromCrowd(cg), nil
}

// Create creates a new group. Crowd answers 201 Created with an empty body,
// so the created record is read back.
func (r *GroupResource) Create(ctx context.Context, group Group) (*Group, error) {
	if err := r.c.do(ctx, http.MethodPost, "/group", group.toCrowd(), nil); err != nil {
		return nil, wrapRejected(err)
	}
	return r.Get(ctx, group.Name, false)
}

// Update replaces the group record.
func (r *GroupResource) Update(ctx context.Context, groupname string, group Group) (*Group, error) {
	q := url.Values{"groupname": {groupname}}
	var cg crowdGroup
	if err := r.c.do(ctx, http.MethodPut, "/group?"+q.Encode(), group.toCrowd(), &cg); err != nil {
		return nil, wrapRejected(err)
	}
	return groupFromCrowd(cg), nil
}

// Remove deletes a group.
func (r *GroupResource) Remove(ctx context.Context, groupname string) error {
	q := url.Values{"groupname": {groupname}}
	return r.c.do(ctx, http.MethodDelete, "/group?"+q.Encode(), nil, nil)
}

// Attributes retrieves the group's attribute set.
func (r *GroupResource) Attributes(ctx context.Context, groupname string) (Attributes, error) {
	q := url.Values{"groupname": {groupname}}
	var out struct {
		Attributes []crowdAttribute `json:"attributes"`
	}
	if err := r.c.do(ctx, http.MethodGet, "/group/attribute?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return attributesFromCrowd(out.Attributes)
}

// SetAttributes stores the attribute set, then reads it back. Oversized
// values fail locally before any network call.
func (r *GroupResource) SetAttributes(ctx context.Context, groupname string, attrs Attributes) (Attributes, error) {
	encoded, err := attrs.toCrowd()
	if err != nil {
		return nil, err
	}
	q := url.Values{"groupname": {groupname}}
	payload := struct {
		Attributes []crowdAttribute `json:"attributes"`
	}{Attributes: encoded}
	if err := r.c.do(ctx, http.MethodPost, "/group/attribute?"+q.Encode(), payload, nil); err != nil {
		return nil, err
	}
	return r.Attributes(ctx, groupname)
}

// RemoveAttribute deletes a single group attribute.
func (r *GroupResource) RemoveAttribute(ctx context.Context, groupname, attribute string) error {
	q := url.Values{"groupname": {groupname}, "attributename": {attribute}}
	return r.c.do(ctx, http.MethodDelete, "/group/attribute?"+q.Encode(), nil, nil)
}

// UserMembership checks that the user is a member of the group and returns
// the username.
func (r *GroupResource) UserMembership(ctx context.Context, groupname, username string, nested bool) (string, error) {
	q := url.Values{"groupname": {groupname}, "username": {username}}
	var ref userRef
	path := fmt.Sprintf("/group/user/%s?%s", nestingSegment(nested), q.Encode())
	if err := r.c.do(ctx, http.MethodGet, path, nil, &ref); err != nil {
		return "", err
	}
	return ref.Name, nil
}

// Users lists the usernames of the group's members.
func (r *GroupResource) Users(ctx context.Context, groupname string, nested bool, start, max int) ([]string, error) {
	q := pagingQuery(url.Values{"groupname": {groupname}}, start, max)
	var out struct {
		Users []userRef `json:"users"`
	}
	path := fmt.Sprintf("/group/user/%s?%s", nestingSegment(nested), q.Encode())
	if err := r.c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(out.Users))
	for _, ref := range out.Users {
		names = append(names, ref.Name)
	}
	return names, nil
}

// AddUser adds the user as a direct member of the group.
func (r *GroupResource) AddUser(ctx context.Context, groupname, username string) error {
	q := url.Values{"groupname": {groupname}}
	payload := struct {
		Name string `json:"name"`
	}{Name: username}
	return r.c.do(ctx, http.MethodPost, "/group/user/direct?"+q.Encode(), payload, nil)
}

// RemoveUser removes the user's direct membership.
func (r *GroupResource) RemoveUser(ctx context.Context, groupname, username string) error {
	q := url.Values{"groupname": {groupname}, "username": {username}}
	return r.c.do(ctx, http.MethodDelete, "/group/user/direct?"+q.Encode(), nil, nil)
}

// ParentMembership checks a parent-group relationship and returns the parent
// group name.
func (r *GroupResource) ParentMembership(ctx context.Context, groupname, parentname string, nested bool) (string, error) {
	q := url.Values{"groupname": {groupname}, "parent-groupname": {parentname}}
	var ref groupRef
	path := fmt.Sprintf("/group/parent-group/%s?%s", nestingSegment(nested), q.Encode())
	if err := r.c.do(ctx, http.MethodGet, path, nil, &ref); err != nil {
		return "", err
	}
	return ref.name(), nil
}

// Parents lists the names of the group's parent groups.
func (r *GroupResource) Parents(ctx context.Context, groupname string, nested bool, start, max int) ([]string, error) {
	q := pagingQuery(url.Values{"groupname": {groupname}}, start, max)
	var out struct {
		Groups []groupRef `json:"groups"`
	}
	path := fmt.Sprintf("/group/parent-group/%s?%s", nestingSegment(nested), q.Encode())
	if err := r.c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(out.Groups))
	for _, ref := range out.Groups {
		names = append(names, ref.name())
	}
	return names, nil
}

// AddParent adds a direct parent-group membership.
func (r *GroupResource) AddParent(ctx context.Context, groupname, parentname string) error {
	q := url.Values{"groupname": {groupname}}
	payload := struct {
		Name string `json:"name"`
	}{Name: parentname}
	return r.c.do(ctx, http.MethodPost, "/group/parent-group/direct?"+q.Encode(), payload, nil)
}

// ChildMembership checks a child-group relationship and returns the child
// group name.
func (r *GroupResource) ChildMembership(ctx context.Context, groupname, childname string, nested bool) (string, error) {
	q := url.Values{"groupname": {groupname}, "child-groupname": {childname}}
	var ref groupRef
	path := fmt.Sprintf("/group/child-group/%s?%s", nestingSegment(nested), q.Encode())
	if err := r.c.do(ctx, http.MethodGet, path, nil, &ref); err != nil {
		return "", err
	}
	return ref.name(), nil
}

// Children lists the names of the group's child groups.
func (r *GroupResource) Children(ctx context.Context, groupname string, nested bool, start, max int) ([]string, error) {
	q := pagingQuery(url.Values{"groupname": {groupname}}, start, max)
	var out struct {
		Groups []groupRef `json:"groups"`
	}
	path := fmt.Sprintf("/group/child-group/%s?%s", nestingSegment(nested), q.Encode())
	if err := r.c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(out.Groups))
	for _, ref := range out.Groups {
		names = append(names, ref.name())
	}
	return names, nil
}

// AddChild adds a direct child-group membership.
func (r *GroupResource) AddChild(ctx context.Context, groupname, childname string) error {
	q := url.Values{"groupname": {groupname}}
	payload := struct {
		Name string `json:"name"`
	}{Name: childname}
	return r.c.do(ctx, http.MethodPost, "/group/child-group/direct?"+q.Encode(), payload, nil)
}

// RemoveChild deletes a direct child-group membership.
func (r *GroupResource) RemoveChild(ctx context.Context, groupname, childname string) error {
	q := url.Values{"groupname": {groupname}, "child-groupname": {childname}}
	return r.c.do(ctx, http.MethodDelete, "/group/child-group/direct?"+q.Encode(), nil, nil)
}

// Membership retrieves the full membership dump with users and nested
// groups. Crowd only serves this endpoint as XML, so the body is returned
// verbatim.
func (r *GroupResource) Membership(ctx context.Context) ([]byte, error) {
	return r.c.doRaw(ctx, http.MethodGet, "/group/membership")
}
