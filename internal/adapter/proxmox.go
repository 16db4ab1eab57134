package adapter

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dashv/internal/domain"
)

// ProxmoxConfig holds what is needed to talk to a Proxmox VE API
type ProxmoxConfig struct {
	// Host is the API host name or address, without scheme
	Host string
	// Port is the API port (8006 by default)
	Port int
	// APIToken is the composite "account!token=secret" credential
	APIToken string
	// Timeout bounds every request
	Timeout time.Duration
	// VerifyTLS enables certificate verification. Clusters usually run
	// with self-signed certificates, so it is off by default.
	VerifyTLS bool
}

// Client is a minimal Proxmox VE API client
type Client struct {
	baseURL string
	token   string
	timeout time.Duration
	http    *http.Client
}

// NewClient creates a new API client
func NewClient(config ProxmoxConfig) *Client {
	if config.Port == 0 {
		config.Port = domain.DefaultAPIPort
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}

	transport := &http.Transport{
		TLSClientConfig:   &tls.Config{InsecureSkipVerify: !config.VerifyTLS},
		DisableKeepAlives: true,
	}

	return &Client{
		baseURL: fmt.Sprintf("https://%s:%d/api2/json", config.Host, config.Port),
		token:   config.APIToken,
		timeout: config.Timeout,
		http: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
	}
}

// newClientWithHTTP lets tests point the client at an httptest server
func newClientWithHTTP(baseURL, token string, httpClient *http.Client, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/") + "/api2/json",
		token:   token,
		timeout: timeout,
		http:    httpClient,
	}
}

// BaseURL returns the API root the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIError is returned for non-2xx API responses
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, body)
}

// Version returns the platform release string
func (c *Client) Version(ctx context.Context) (string, error) {
	var v versionInfo
	if err := c.get(ctx, "/version", &v); err != nil {
		return "", err
	}
	return v.Version, nil
}

// Nodes lists cluster members
func (c *Client) Nodes(ctx context.Context) ([]NodeInfo, error) {
	var nodes []NodeInfo
	if err := c.get(ctx, "/nodes", &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

// Containers lists the LXC roster of a node
func (c *Client) Containers(ctx context.Context, node string) ([]WorkloadInfo, error) {
	var list []WorkloadInfo
	if err := c.get(ctx, fmt.Sprintf("/nodes/%s/lxc", url.PathEscape(node)), &list); err != nil {
		return nil, err
	}
	return list, nil
}

// VirtualMachines lists the QEMU roster of a node
func (c *Client) VirtualMachines(ctx context.Context, node string) ([]WorkloadInfo, error) {
	var list []WorkloadInfo
	if err := c.get(ctx, fmt.Sprintf("/nodes/%s/qemu", url.PathEscape(node)), &list); err != nil {
		return nil, err
	}
	return list, nil
}

// ContainerConfig returns the raw configuration of a container
func (c *Client) ContainerConfig(ctx context.Context, node string, id int) (map[string]any, error) {
	cfg := make(map[string]any)
	if err := c.get(ctx, fmt.Sprintf("/nodes/%s/lxc/%d/config", url.PathEscape(node), id), &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ContainerStatus returns the raw runtime status of a container
func (c *Client) ContainerStatus(ctx context.Context, node string, id int) (map[string]any, error) {
	status := make(map[string]any)
	if err := c.get(ctx, fmt.Sprintf("/nodes/%s/lxc/%d/status/current", url.PathEscape(node), id), &status); err != nil {
		return nil, err
	}
	return status, nil
}

// GuestInterfaces asks a VM's guest agent for its network interfaces
func (c *Client) GuestInterfaces(ctx context.Context, node string, id int) ([]GuestInterface, error) {
	var res agentResult
	if err := c.get(ctx, fmt.Sprintf("/nodes/%s/qemu/%d/agent/network-get-interfaces", url.PathEscape(node), id), &res); err != nil {
		return nil, err
	}
	return res.Result, nil
}

// StartWorkload powers on a container or VM
func (c *Client) StartWorkload(ctx context.Context, node string, kind domain.WorkloadKind, id int) error {
	if !kind.Valid() {
		return fmt.Errorf("invalid workload type %q", kind)
	}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/nodes/%s/%s/%d/status/start", url.PathEscape(node), kind, id), nil)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, out)
}

// do performs one request and decodes the "data" member of the response
// envelope into out
func (c *Client) do(ctx context.Context, method, path string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "PVEAPIToken="+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(body)}
	}

	if out == nil {
		return nil
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("%s %s: decode envelope: %w", method, path, err)
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("%s %s: decode data: %w", method, path, err)
	}
	return nil
}
