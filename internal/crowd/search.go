package crowd

import (
	"context"
	"net/http"
	"net/url"
)

// SearchResource searches users and groups with CQL restrictions. The
// restriction string is a backend-specific filter passed through verbatim.
type SearchResource struct {
	c *Client
}

func searchQuery(entityType, restriction string, start, max int) url.Values {
	q := pagingQuery(url.Values{}, start, max)
	q.Set("entity-type", entityType)
	q.Set("restriction", restriction)
	return q
}

// Users returns the usernames matching the restriction.
func (r *SearchResource) Users(ctx context.Context, restriction string, start, max int) ([]string, error) {
	q := searchQuery("user", restriction, start, max)
	var out struct {
		Users []userRef `json:"users"`
	}
	if err := r.c.do(ctx, http.MethodGet, "/search?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(out.Users))
	for _, ref := range out.Users {
		names = append(names, ref.Name)
	}
	return names, nil
}

// UserEntities returns fully hydrated user records matching the restriction.
func (r *SearchResource) UserEntities(ctx context.Context, restriction string, start, max int) ([]*User, error) {
	q := searchQuery("user", restriction, start, max)
	q.Set("expand", "user")
	var out struct {
		Users []crowdUser `json:"users"`
	}
	if err := r.c.do(ctx, http.MethodGet, "/search?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	users := make([]*User, 0, len(out.Users))
	for _, cu := range out.Users {
		users = append(users, userFromCrowd(cu))
	}
	return users, nil
}

// Groups returns the group names matching the restriction.
func (r *SearchResource) Groups(ctx context.Context, restriction string, start, max int) ([]string, error) {
	q := searchQuery("group", restriction, start, max)
	var out struct {
		Groups []groupRef `json:"groups"`
	}
	if err := r.c.do(ctx, http.MethodGet, "/search?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(out.Groups))
	for _, ref := range out.Groups {
		names = append(names, ref.name())
	}
	return names, nil
}

// GroupEntities returns fully hydrated group records matching the
// restriction.
func (r *SearchResource) GroupEntities(ctx context.Context, restriction string, start, max int) ([]*Group, error) {
	q := searchQuery("group", restriction, start, max)
	q.Set("expand", "group")
	var out struct {
		Groups []crowdGroup `json:"groups"`
	}
	if err := r.c.do(ctx, http.MethodGet, "/search?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	groups := make([]*Group, 0, len(out.Groups))
	for _, cg := range out.Groups {
		groups = append(groups, groupFromCrowd(cg))
	}
	return groups, nil
}
