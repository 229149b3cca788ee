package topology

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/vrelo-dev/vrelo/internal/remote"
)

// Client talks to the virtualization platform's REST API. Clusters, hosts
// and VMs are addressed by name at this level; the client resolves names to
// platform identifiers internally.
type Client struct {
	endpoint string
	username string
	password string
	http     *remote.Client

	mu    sync.Mutex
	token string
}

// NewClient creates a platform client for the given endpoint.
func NewClient(endpoint, username, password string, timeout time.Duration) *Client {
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		username: username,
		password: password,
		http:     remote.NewClient(timeout, 5),
	}
}

func (c *Client) session(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return c.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint+"/rest/com/vmware/cis/session", nil)
	if err != nil {
		return "", fmt.Errorf("create session request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)

	var out struct {
		Value string `json:"value"`
	}
	if err := c.http.DoJSON("session", req, &out); err != nil {
		return "", err
	}
	if out.Value == "" {
		return "", &remote.QueryError{Op: "session", Endpoint: "/rest/com/vmware/cis/session", Err: fmt.Errorf("empty session id")}
	}
	c.token = out.Value
	return c.token, nil
}

func (c *Client) get(ctx context.Context, op, path string, out any) error {
	token, err := c.session(ctx)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, "GET", c.endpoint+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("vmware-api-session-id", token)
	return c.http.DoJSON(op, req, out)
}

func (c *Client) post(ctx context.Context, op, path string) error {
	token, err := c.session(ctx)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("vmware-api-session-id", token)
	return c.http.DoJSON(op, req, nil)
}

type hostSummary struct {
	Host            string `json:"host"`
	Name            string `json:"name"`
	ConnectionState string `json:"connection_state"`
}

type vmSummary struct {
	VM   string `json:"vm"`
	Name string `json:"name"`
}

// resolveCluster maps a cluster name to its platform identifier.
func (c *Client) resolveCluster(ctx context.Context, cluster string) (string, error) {
	var out struct {
		Value []struct {
			Cluster string `json:"cluster"`
			Name    string `json:"name"`
		} `json:"value"`
	}
	path := "/rest/vcenter/cluster?filter.names=" + url.QueryEscape(cluster)
	if err := c.get(ctx, "resolve cluster", path, &out); err != nil {
		return "", err
	}
	if len(out.Value) == 0 {
		return "", &remote.QueryError{Op: "resolve cluster", Endpoint: path, Err: fmt.Errorf("cluster %q not found", cluster)}
	}
	return out.Value[0].Cluster, nil
}

// resolveHost maps a host name to its platform identifier.
func (c *Client) resolveHost(ctx context.Context, host string) (string, error) {
	var out struct {
		Value []hostSummary `json:"value"`
	}
	path := "/rest/vcenter/host?filter.names=" + url.QueryEscape(host)
	if err := c.get(ctx, "resolve host", path, &out); err != nil {
		return "", err
	}
	if len(out.Value) == 0 {
		return "", &remote.QueryError{Op: "resolve host", Endpoint: path, Err: fmt.Errorf("host %q not found", host)}
	}
	return out.Value[0].Host, nil
}

// ConnectedHosts implements Topology. The platform's ordering is preserved;
// hosts in any state other than CONNECTED are dropped.
func (c *Client) ConnectedHosts(ctx context.Context, cluster string) ([]Host, error) {
	id, err := c.resolveCluster(ctx, cluster)
	if err != nil {
		return nil, err
	}

	var out struct {
		Value []hostSummary `json:"value"`
	}
	path := "/rest/vcenter/host?filter.clusters=" + url.QueryEscape(id)
	if err := c.get(ctx, "list hosts", path, &out); err != nil {
		return nil, err
	}

	var hosts []Host
	for _, h := range out.Value {
		if h.ConnectionState != "CONNECTED" {
			continue
		}
		hosts = append(hosts, Host{Name: h.Name, ConnectionState: h.ConnectionState})
	}
	return hosts, nil
}

// GuestVMs implements Topology.
func (c *Client) GuestVMs(ctx context.Context, host string) ([]string, error) {
	id, err := c.resolveHost(ctx, host)
	if err != nil {
		return nil, err
	}

	var out struct {
		Value []vmSummary `json:"value"`
	}
	path := "/rest/vcenter/vm?filter.hosts=" + url.QueryEscape(id)
	if err := c.get(ctx, "list vms", path, &out); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(out.Value))
	for _, vm := range out.Value {
		names = append(names, vm.Name)
	}
	return names, nil
}

// EnterMaintenance implements Topology. The platform accepts the request and
// evacuates the host in the background.
func (c *Client) EnterMaintenance(ctx context.Context, host string) error {
	id, err := c.resolveHost(ctx, host)
	if err != nil {
		return err
	}
	return c.post(ctx, "enter maintenance", "/rest/vcenter/host/"+url.PathEscape(id)+"/maintenance?action=enter")
}

// ShutdownGuest implements Topology. This is a forced power stop.
func (c *Client) ShutdownGuest(ctx context.Context, vm string) error {
	var out struct {
		Value []vmSummary `json:"value"`
	}
	path := "/rest/vcenter/vm?filter.names=" + url.QueryEscape(vm)
	if err := c.get(ctx, "resolve vm", path, &out); err != nil {
		return err
	}
	if len(out.Value) == 0 {
		return &remote.QueryError{Op: "resolve vm", Endpoint: path, Err: fmt.Errorf("vm %q not found", vm)}
	}
	return c.post(ctx, "stop vm", "/rest/vcenter/vm/"+url.PathEscape(out.Value[0].VM)+"/power/stop")
}
