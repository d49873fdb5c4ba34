package crowd

import (
	"context"
	"net/http"
	"net/url"
)

// AuthenticationResource verifies end-user credentials.
type AuthenticationResource struct {
	c *Client
}

// Authenticate posts the password for the given username and returns the
// authenticated user record on success. Bad credentials, which Crowd reports
// for an unknown user and a wrong password alike, yield an error matching
// ErrUnauthorized that still carries Crowd's error payload for callers that
// need the distinguishing reason code.
func (r *AuthenticationResource) Authenticate(ctx context.Context, username, password string) (*User, error) {
	q := url.Values{"username": {username}}
	var cu crowdUser
	err := r.c.do(ctx, http.MethodPost, "/authentication?"+q.Encode(), crowdPassword{Value: password}, &cu)
	if err != nil {
		return nil, wrapAuthRejected(err)
	}
	return userFromCrowd(cu), nil
}
