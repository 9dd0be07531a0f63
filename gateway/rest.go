package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Config configures the REST client.
type Config struct {
	ProjectURL string
	APIKey     string
	// Optional explicit allowlist; if empty, derived from ProjectURL host.
	AllowedHosts []string
	// HTTP timeout per call. Defaults to 10s.
	Timeout time.Duration
}

// RESTClient talks to the platform's REST surface: table operations under
// /rest/v1 and auth operations under /auth/v1. It keeps the current session
// so table calls after sign-in carry the user's token.
type RESTClient struct {
	cfg        Config
	restPrefix string
	authPrefix string
	allowed    map[string]struct{}
	httpc      *http.Client

	mu      sync.Mutex
	session *Session
}

// NewRESTClient creates a client for the given project.
func NewRESTClient(cfg Config) (*RESTClient, error) {
	if cfg.ProjectURL == "" {
		return nil, fmt.Errorf("gateway: project URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gateway: api key is required")
	}
	trimmed := strings.TrimRight(cfg.ProjectURL, "/")

	allowed := make(map[string]struct{})
	if len(cfg.AllowedHosts) == 0 {
		if u, err := url.Parse(cfg.ProjectURL); err == nil && u.Hostname() != "" {
			allowed[u.Hostname()] = struct{}{}
		}
	} else {
		for _, h := range cfg.AllowedHosts {
			if h != "" {
				allowed[h] = struct{}{}
			}
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &RESTClient{
		cfg:        cfg,
		restPrefix: trimmed + "/rest/v1",
		authPrefix: trimmed + "/auth/v1",
		allowed:    allowed,
		httpc:      &http.Client{Timeout: timeout},
	}, nil
}

func (c *RESTClient) Select(ctx context.Context, table string, filters ...Filter) ([]Row, error) {
	path, err := c.tablePath(table, filters)
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("gateway: select %s: %w", table, err)
	}
	return decodeRows(body)
}

func (c *RESTClient) Insert(ctx context.Context, table string, row Row) ([]Row, error) {
	path, err := c.tablePath(table, nil)
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, http.MethodPost, path, row, map[string]string{
		"Prefer": "return=representation",
	})
	if err != nil {
		return nil, fmt.Errorf("gateway: insert %s: %w", table, err)
	}
	return decodeRows(body)
}

func (c *RESTClient) Update(ctx context.Context, table string, row Row, filters ...Filter) ([]Row, error) {
	path, err := c.tablePath(table, filters)
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, http.MethodPatch, path, row, map[string]string{
		"Prefer": "return=representation",
	})
	if err != nil {
		return nil, fmt.Errorf("gateway: update %s: %w", table, err)
	}
	return decodeRows(body)
}

func (c *RESTClient) Delete(ctx context.Context, table string, filters ...Filter) error {
	path, err := c.tablePath(table, filters)
	if err != nil {
		return err
	}
	if _, err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("gateway: delete %s: %w", table, err)
	}
	return nil
}

func (c *RESTClient) RPC(ctx context.Context, fn string, args map[string]any) error {
	if fn == "" {
		return fmt.Errorf("gateway: rpc function name is required")
	}
	path := c.restPrefix + "/rpc/" + url.PathEscape(fn)
	if _, err := c.do(ctx, http.MethodPost, path, args, nil); err != nil {
		return fmt.Errorf("gateway: rpc %s: %w", fn, err)
	}
	return nil
}

func (c *RESTClient) SignUp(ctx context.Context, email, password string, meta map[string]any) (Session, error) {
	payload := map[string]any{"email": email, "password": password}
	if len(meta) > 0 {
		payload["data"] = meta
	}
	body, err := c.do(ctx, http.MethodPost, c.authPrefix+"/signup", payload, nil)
	if err != nil {
		return Session{}, fmt.Errorf("gateway: sign up: %w", err)
	}
	return c.adoptSession(body)
}

func (c *RESTClient) SignIn(ctx context.Context, email, password string) (Session, error) {
	payload := map[string]any{"email": email, "password": password}
	body, err := c.do(ctx, http.MethodPost, c.authPrefix+"/token?grant_type=password", payload, nil)
	if err != nil {
		return Session{}, fmt.Errorf("gateway: sign in: %w", err)
	}
	return c.adoptSession(body)
}

func (c *RESTClient) SignOut(ctx context.Context) error {
	c.mu.Lock()
	had := c.session != nil
	c.mu.Unlock()

	if had {
		// Best effort at the server: the local session is cleared regardless.
		_, err := c.do(ctx, http.MethodPost, c.authPrefix+"/logout", nil, nil)
		c.mu.Lock()
		c.session = nil
		c.mu.Unlock()
		if err != nil {
			return fmt.Errorf("gateway: sign out: %w", err)
		}
	}
	return nil
}

func (c *RESTClient) ResetPassword(ctx context.Context, email string) error {
	payload := map[string]any{"email": email}
	if _, err := c.do(ctx, http.MethodPost, c.authPrefix+"/recover", payload, nil); err != nil {
		return fmt.Errorf("gateway: reset password: %w", err)
	}
	return nil
}

func (c *RESTClient) Session(ctx context.Context) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil, ErrNoSession
	}
	s := *c.session
	return &s, nil
}

// authSessionResponse mirrors the token-bearing auth responses.
type authSessionResponse struct {
	AccessToken string `json:"access_token"`
	User        struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

func (c *RESTClient) adoptSession(body []byte) (Session, error) {
	var resp authSessionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Session{}, fmt.Errorf("gateway: decode session: %w", err)
	}
	if resp.AccessToken == "" {
		return Session{}, fmt.Errorf("gateway: response carried no access token")
	}

	session := Session{
		AccessToken: resp.AccessToken,
		Principal:   Principal{ID: resp.User.ID, Email: resp.User.Email},
	}
	c.mu.Lock()
	c.session = &session
	c.mu.Unlock()
	return session, nil
}

func (c *RESTClient) tablePath(table string, filters []Filter) (string, error) {
	if table == "" {
		return "", fmt.Errorf("gateway: table is required")
	}
	path := c.restPrefix + "/" + url.PathEscape(table)
	if len(filters) > 0 {
		q := url.Values{}
		for _, f := range filters {
			q.Add(f.Column, f.Op+"."+f.Value)
		}
		path += "?" + q.Encode()
	}
	return path, nil
}

func (c *RESTClient) do(ctx context.Context, method, rawURL string, payload any, extra map[string]string) ([]byte, error) {
	if err := c.ensureAllowed(rawURL); err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("apikey", c.cfg.APIKey)
	req.Header.Set("Authorization", "Bearer "+c.bearerToken())
	for k, v := range extra {
		if v != "" {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	default:
		return nil, fmt.Errorf("gateway: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
}

// bearerToken prefers the signed-in user's token over the anon key.
func (c *RESTClient) bearerToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		return c.session.AccessToken
	}
	return c.cfg.APIKey
}

func (c *RESTClient) ensureAllowed(rawURL string) error {
	if len(c.allowed) == 0 {
		return nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("gateway: invalid url: %w", err)
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("gateway: invalid url host")
	}
	if _, ok := c.allowed[host]; !ok {
		return fmt.Errorf("gateway: host not allowed: %s", host)
	}
	return nil
}

func decodeRows(body []byte) ([]Row, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	var rows []Row
	if err := json.Unmarshal(body, &rows); err != nil {
		// Single-object responses are valid for some write shapes.
		var row Row
		if err2 := json.Unmarshal(body, &row); err2 == nil {
			return []Row{row}, nil
		}
		return nil, fmt.Errorf("gateway: decode rows: %w", err)
	}
	return rows, nil
}
