package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/vrelo-dev/vrelo/internal/remote"
)

// Client talks to the replication manager's REST API.
type Client struct {
	endpoint string
	username string
	password string
	http     *remote.Client

	mu    sync.Mutex
	token string
}

// NewClient creates a replication manager client for the given endpoint.
func NewClient(endpoint, username, password string, timeout time.Duration) *Client {
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		username: username,
		password: password,
		http:     remote.NewClient(timeout, 5),
	}
}

// session logs in on first use and caches the session token.
func (c *Client) session(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return c.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint+"/v1/session/add", nil)
	if err != nil {
		return "", fmt.Errorf("create session request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &remote.QueryError{Op: "session", Endpoint: "/v1/session/add", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &remote.QueryError{Op: "session", Endpoint: "/v1/session/add", Status: resp.StatusCode}
	}

	token := resp.Header.Get("x-session-token")
	if token == "" {
		return "", &remote.QueryError{Op: "session", Endpoint: "/v1/session/add", Err: fmt.Errorf("no session token in response")}
	}
	c.token = token
	return token, nil
}

// ListProtectedBy implements Directory.
func (c *Client) ListProtectedBy(ctx context.Context, host string) ([]Workload, error) {
	token, err := c.session(ctx)
	if err != nil {
		return nil, err
	}

	path := "/v1/workloads?protectingHost=" + url.QueryEscape(host)
	req, err := http.NewRequestWithContext(ctx, "GET", c.endpoint+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-session-token", token)

	var workloads []Workload
	if err := c.http.DoJSON("list workloads", req, &workloads); err != nil {
		return nil, err
	}
	return workloads, nil
}

// ReassignProtectingHost implements Directory.
func (c *Client) ReassignProtectingHost(ctx context.Context, workload Workload, currentHost, newHost string) error {
	token, err := c.session(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(struct {
		CurrentHost string `json:"currentHost"`
		NewHost     string `json:"newHost"`
	}{CurrentHost: currentHost, NewHost: newHost})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	path := "/v1/workloads/" + url.PathEscape(workload.Name) + "/reassign"
	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint+path, strings.NewReader(string(body)))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-session-token", token)
	req.Header.Set("Content-Type", "application/json")

	return c.http.DoJSON("reassign workload", req, nil)
}
