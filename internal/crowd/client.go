package crowd

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	httpclient "github.com/appleboy/go-httpclient"

	"github.com/go-crowd/crowdgate/internal/retry"
)

// apiPrefix is the versioned base path of the Crowd usermanagement REST API,
// appended to the configured base URL.
const apiPrefix = "rest/usermanagement/1"

// defaultSessionTimeout is used when no session timeout is configured. Crowd
// clamps requested durations to its own server-side maximum anyway.
const defaultSessionTimeout = 600 * time.Second

// Config holds construction-time settings for a Client. None of it is mutable
// at runtime; the client keeps no other state between calls.
type Config struct {
	// BaseURL is the part before "rest/usermanagement/1",
	// e.g. "https://crowd.example.com/crowd/".
	BaseURL string

	// Application name and password authenticate this application to Crowd
	// via HTTP Basic. These are distinct from any end-user credentials.
	Application string
	Password    string

	// SessionTimeout is the default SSO session duration. Session creation
	// requests asking for more are clamped to this value.
	SessionTimeout time.Duration

	// Timeout bounds each HTTP round trip. Zero means no client timeout.
	Timeout time.Duration

	// CACert optionally holds a PEM bundle to trust instead of the system
	// pool, for Crowd servers behind a private CA.
	CACert []byte

	// InsecureSkipVerify disables TLS verification. Development only.
	InsecureSkipVerify bool

	// MaxRetries enables opt-in retries for transient failures. The default
	// of zero means every operation performs exactly one attempt; retry
	// policy is the caller's decision, never applied silently.
	MaxRetries    int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// doer abstracts the HTTP execution path so the retry client and plain
// client are interchangeable, and tests can count calls.
type doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

type plainDoer struct {
	client *http.Client
}

func (d *plainDoer) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	return d.client.Do(req.WithContext(ctx))
}

// Client is a typed wrapper over the Crowd usermanagement REST API. All
// operations are stateless and safe for concurrent use.
type Client struct {
	cfg  Config
	base string
	http doer

	User           *UserResource
	Group          *GroupResource
	Session        *SessionResource
	Search         *SearchResource
	Authentication *AuthenticationResource
}

// New creates a Client from the given configuration.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("crowd: base URL is required")
	}
	if cfg.Application == "" {
		return nil, fmt.Errorf("crowd: application name is required")
	}
	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = defaultSessionTimeout
	}

	tlsConfig := &tls.Config{
		InsecureSkipVerify: cfg.InsecureSkipVerify, // #nosec G402 -- user-configurable for development
	}
	if len(cfg.CACert) > 0 {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(cfg.CACert) {
			return nil, fmt.Errorf("crowd: no certificates found in CA bundle")
		}
		tlsConfig.RootCAs = pool
	}
	transport := &http.Transport{TLSClientConfig: tlsConfig}

	// Basic auth is set per request; the shared client only carries the
	// timeout and transport settings.
	httpClient, err := httpclient.NewAuthClient(httpclient.AuthModeNone, "",
		httpclient.WithTimeout(cfg.Timeout),
		httpclient.WithTransport(transport),
	)
	if err != nil {
		return nil, fmt.Errorf("crowd: failed to create HTTP client: %w", err)
	}

	var d doer = &plainDoer{client: httpClient}
	if cfg.MaxRetries > 0 {
		d = retry.NewClient(
			retry.WithHTTPClient(httpClient),
			retry.WithMaxRetries(cfg.MaxRetries),
			retry.WithInitialRetryDelay(cfg.RetryDelay),
			retry.WithMaxRetryDelay(cfg.MaxRetryDelay),
		)
	}

	return newClient(cfg, d), nil
}

// newClient wires the resource handles. Split from New so tests can inject a
// call-counting doer.
func newClient(cfg Config, d doer) *Client {
	c := &Client{
		cfg:  cfg,
		base: strings.TrimSuffix(cfg.BaseURL, "/") + "/" + apiPrefix,
		http: d,
	}
	c.User = &UserResource{c: c}
	c.Group = &GroupResource{c: c}
	c.Session = &SessionResource{c: c}
	c.Search = &SearchResource{c: c}
	c.Authentication = &AuthenticationResource{c: c}
	return c
}

// CookieConfig retrieves Crowd's SSO cookie configuration. It is also the
// cheapest call available, so it doubles as a connectivity check.
func (c *Client) CookieConfig(ctx context.Context) (*CookieConfig, error) {
	var out CookieConfig
	if err := c.do(ctx, http.MethodGet, "/config/cookie", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ping verifies the Crowd server is reachable and the application
// credentials are accepted.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.CookieConfig(ctx)
	return err
}

// do performs a single round trip against the Crowd API: marshal the body if
// present, send with application Basic auth, and decode the response into out
// (which may be nil for 204-style operations). Non-2xx statuses are returned
// as *APIError carrying Crowd's error payload.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("crowd: failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reqBody)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrConnection, c.cfg.BaseURL, err)
	}
	req.SetBasicAuth(c.cfg.Application, c.cfg.Password)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrConnection, c.cfg.BaseURL, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %s %s: failed to read response", ErrInvalidResponse, method, path)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       trimQuery(path),
		}
		// Crowd error payloads are {"reason": ..., "message": ...}. Keep a
		// body preview when the payload is not JSON.
		if err := json.Unmarshal(respBody, apiErr); err != nil || apiErr.Message == "" {
			preview := string(respBody)
			if len(preview) > 200 {
				preview = preview[:200] + "..."
			}
			if apiErr.Message == "" {
				apiErr.Message = preview
			}
		}
		return apiErr
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrInvalidResponse, method, trimQuery(path), err)
	}
	return nil
}

// doRaw is like do but returns the response body verbatim, for the one Crowd
// endpoint that only speaks XML (full membership dump).
func (c *Client) doRaw(ctx context.Context, method, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConnection, c.cfg.BaseURL, err)
	}
	req.SetBasicAuth(c.cfg.Application, c.cfg.Password)

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConnection, c.cfg.BaseURL, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: failed to read response", ErrInvalidResponse, method, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       trimQuery(path),
			Message:    string(respBody),
		}
	}
	return respBody, nil
}

// trimQuery strips query parameters from a path before it lands in an error,
// so usernames and tokens do not leak into logs.
func trimQuery(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}
