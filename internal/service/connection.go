package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"dashv/internal/adapter"
	"dashv/internal/domain"
	"dashv/internal/repository"
)

var (
	// ErrConnectFailed means the platform rejected or did not answer the
	// connection check
	ErrConnectFailed = errors.New("failed to connect to Proxmox")
	// ErrProvisionFailed means no API token could be created over SSH
	ErrProvisionFailed = errors.New("auto-setup failed")
)

// ConnectionStore persists the platform connection
type ConnectionStore interface {
	SaveConnection(ctx context.Context, c domain.Connection) error
	GetConnection(ctx context.Context) (*domain.Connection, error)
	DeleteConnections(ctx context.Context) error
}

// CredentialProvisioner creates API tokens over SSH
type CredentialProvisioner interface {
	Provision(ctx context.Context, target adapter.SSHTarget, account, tokenHint string) (*domain.Credential, error)
}

// PlatformFactory builds the platform client for a connection
type PlatformFactory func(conn domain.Connection) adapter.Platform

// ConnectionConfig tunes the connection manager
type ConnectionConfig struct {
	RequestTimeout time.Duration
	VerifyTLS      bool
	Concurrency    int
	SSHPort        int
	Account        string
	TokenName      string
}

// ConnectRequest is an operator supplied connection
type ConnectRequest struct {
	Host    string `json:"host"`
	Port    int    `json:"port,omitempty"`
	User    string `json:"user"`
	Token   string `json:"token"`
	TokenID string `json:"tokenId,omitempty"`
}

// Validate checks the required fields
func (r ConnectRequest) Validate() error {
	if strings.TrimSpace(r.Host) == "" || strings.TrimSpace(r.User) == "" || strings.TrimSpace(r.Token) == "" {
		return fmt.Errorf("%w: missing required fields", ErrInvalidInput)
	}
	return nil
}

// AutoSetupRequest asks for a token to be created over SSH
type AutoSetupRequest struct {
	Host        string `json:"host"`
	SSHUser     string `json:"sshUser"`
	SSHPassword string `json:"sshPassword"`
	TokenName   string `json:"tokenName,omitempty"`
}

// Validate checks the required fields
func (r AutoSetupRequest) Validate() error {
	if strings.TrimSpace(r.Host) == "" || strings.TrimSpace(r.SSHUser) == "" || r.SSHPassword == "" {
		return fmt.Errorf("%w: missing required fields: host, sshUser, sshPassword", ErrInvalidInput)
	}
	return nil
}

// ConnectionInfo is the non-secret part of the active connection
type ConnectionInfo struct {
	Host string `json:"host"`
	User string `json:"user"`
}

// ConnectionStatus reports whether a platform is attached
type ConnectionStatus struct {
	Connected bool            `json:"connected"`
	Mock      bool            `json:"mock,omitempty"`
	Config    *ConnectionInfo `json:"config"`
}

// ConnectionManager owns the platform connection and binds it to discovery
type ConnectionManager struct {
	discovery   *Discovery
	store       ConnectionStore
	provisioner CredentialProvisioner
	config      ConnectionConfig
	factory     PlatformFactory

	mu       sync.Mutex
	platform adapter.Platform
	conn     *domain.Connection
	mock     bool
}

// NewConnectionManager creates a connection manager. A nil factory builds
// real Proxmox API clients.
func NewConnectionManager(discovery *Discovery, store ConnectionStore, provisioner CredentialProvisioner, config ConnectionConfig, factory PlatformFactory) *ConnectionManager {
	if store == nil {
		store = repository.Unavailable{}
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 10 * time.Second
	}
	if config.Account == "" {
		config.Account = domain.DefaultAccount
	}
	if config.TokenName == "" {
		config.TokenName = domain.DefaultTokenName
	}
	m := &ConnectionManager{
		discovery:   discovery,
		store:       store,
		provisioner: provisioner,
		config:      config,
		factory:     factory,
	}
	if m.factory == nil {
		m.factory = m.proxmoxClient
	}
	return m
}

func (m *ConnectionManager) proxmoxClient(conn domain.Connection) adapter.Platform {
	return adapter.NewClient(adapter.ProxmoxConfig{
		Host:      conn.Host,
		Port:      conn.Port,
		APIToken:  conn.Token,
		Timeout:   m.config.RequestTimeout,
		VerifyTLS: m.config.VerifyTLS,
	})
}

// Connect verifies the connection, saves it and starts discovery
func (m *ConnectionManager) Connect(ctx context.Context, req ConnectRequest) (domain.Connection, error) {
	if err := req.Validate(); err != nil {
		return domain.Connection{}, err
	}

	host, port := domain.SplitHostPort(req.Host, domain.DefaultAPIPort)
	if req.Port > 0 {
		port = req.Port
	}
	conn := domain.Connection{
		Host:      host,
		Port:      port,
		User:      strings.TrimSpace(req.User),
		Token:     domain.BuildAPIToken(strings.TrimSpace(req.User), req.Token, req.TokenID),
		TokenID:   req.TokenID,
		CreatedAt: time.Now().UTC(),
	}

	platform := m.factory(conn)
	log.Printf("Proxmox: testing connection to %s:%d", conn.Host, conn.Port)
	version, err := platform.Version(ctx)
	if err != nil {
		log.Printf("Proxmox: connection to %s:%d failed: %v", conn.Host, conn.Port, err)
		return domain.Connection{}, fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}
	log.Printf("Proxmox: connected to %s:%d (version %s)", conn.Host, conn.Port, version)

	if err := m.store.SaveConnection(ctx, conn); err != nil {
		if errors.Is(err, repository.ErrUnavailable) {
			log.Printf("Proxmox: could not save connection (running in memory mode)")
		} else {
			log.Printf("Proxmox: could not save connection: %v", err)
		}
	}

	m.attach(ctx, platform, &conn, false)
	return conn, nil
}

// AutoSetup creates an API token over SSH and connects with it
func (m *ConnectionManager) AutoSetup(ctx context.Context, req AutoSetupRequest) (*domain.Credential, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if m.provisioner == nil {
		return nil, fmt.Errorf("%w: no provisioner configured", ErrProvisionFailed)
	}

	host, _ := domain.SplitHostPort(req.Host, domain.DefaultAPIPort)
	target := adapter.SSHTarget{
		Host:     host,
		Port:     m.config.SSHPort,
		Username: strings.TrimSpace(req.SSHUser),
		Password: req.SSHPassword,
	}
	hint := req.TokenName
	if strings.TrimSpace(hint) == "" {
		hint = m.config.TokenName
	}

	log.Printf("SSH: starting auto-setup for %s as %s (token %s)", host, target.Username, hint)
	cred, err := m.provisioner.Provision(ctx, target, m.config.Account, hint)
	if err != nil {
		log.Printf("SSH: auto-setup for %s failed: %v", host, err)
		return nil, fmt.Errorf("%w: %w", ErrProvisionFailed, err)
	}
	log.Printf("SSH: token %s created on %s", cred.TokenID(), host)

	_, err = m.Connect(ctx, ConnectRequest{
		Host:    req.Host,
		User:    cred.AccountName,
		Token:   cred.APIToken(),
		TokenID: cred.TokenName,
	})
	if err != nil {
		return cred, err
	}
	return cred, nil
}

// ConnectMock attaches the built-in mock platform
func (m *ConnectionManager) ConnectMock(ctx context.Context) {
	log.Printf("Proxmox: mock mode, serving canned containers")
	conn := &domain.Connection{Host: "mock", Port: domain.DefaultAPIPort, User: "mock", CreatedAt: time.Now().UTC()}
	m.attach(ctx, adapter.NewMockPlatform(), conn, true)
}

func (m *ConnectionManager) attach(ctx context.Context, platform adapter.Platform, conn *domain.Connection, mock bool) {
	m.discovery.Stop()

	m.mu.Lock()
	m.platform = platform
	m.conn = conn
	m.mock = mock
	m.mu.Unlock()

	m.discovery.Attach(
		adapter.NewLister(platform, m.config.Concurrency),
		adapter.NewResolver(platform, m.config.RequestTimeout),
	)
	m.discovery.Start(context.WithoutCancel(ctx))
}

// Disconnect stops discovery, drops the platform and forgets the saved
// connection
func (m *ConnectionManager) Disconnect(ctx context.Context) error {
	m.discovery.Stop()
	m.discovery.Detach()

	m.mu.Lock()
	m.platform = nil
	m.conn = nil
	m.mock = false
	m.mu.Unlock()

	if err := m.store.DeleteConnections(ctx); err != nil && !errors.Is(err, repository.ErrUnavailable) {
		return fmt.Errorf("delete saved connection: %w", err)
	}
	log.Printf("Proxmox: disconnected")
	return nil
}

// Status reports the active connection
func (m *ConnectionManager) Status() ConnectionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == nil {
		return ConnectionStatus{}
	}
	return ConnectionStatus{
		Connected: true,
		Mock:      m.mock,
		Config:    &ConnectionInfo{Host: m.conn.Host, User: m.conn.User},
	}
}

// Restore reconnects at startup: mock mode first, then the saved
// connection, then fallback (usually from the config file). Failures are
// logged; the server keeps running unconnected.
func (m *ConnectionManager) Restore(ctx context.Context, mock bool, fallback *ConnectRequest) {
	if mock {
		m.ConnectMock(ctx)
		return
	}

	saved, err := m.store.GetConnection(ctx)
	switch {
	case err == nil && saved.Host != "" && saved.User != "" && saved.Token != "":
		log.Printf("Proxmox: reconnecting to saved host %s", saved.Host)
		_, err = m.Connect(ctx, ConnectRequest{
			Host:    saved.Host,
			Port:    saved.Port,
			User:    saved.User,
			Token:   saved.Token,
			TokenID: saved.TokenID,
		})
		if err == nil {
			return
		}
		log.Printf("Proxmox: could not reconnect to saved connection: %v", err)
	case err != nil && !errors.Is(err, repository.ErrNotFound) && !errors.Is(err, repository.ErrUnavailable):
		log.Printf("Proxmox: could not read saved connection: %v", err)
	}

	if fallback != nil && fallback.Validate() == nil {
		log.Printf("Proxmox: connecting to configured host %s", fallback.Host)
		if _, err := m.Connect(ctx, *fallback); err != nil {
			log.Printf("Proxmox: could not connect to configured host: %v", err)
		}
	}
}

// StartWorkload asks the platform to start a stopped container or VM
func (m *ConnectionManager) StartWorkload(ctx context.Context, node string, kind domain.WorkloadKind, id int) error {
	if strings.TrimSpace(node) == "" || id <= 0 || !kind.Valid() {
		return fmt.Errorf("%w: missing node, id or type", ErrInvalidInput)
	}

	m.mu.Lock()
	platform := m.platform
	m.mu.Unlock()
	if platform == nil {
		return ErrNotConnected
	}

	if err := platform.StartWorkload(ctx, node, kind, id); err != nil {
		return fmt.Errorf("start %s %d on %s: %w", kind, id, node, err)
	}
	log.Printf("Proxmox: started %s %d on %s", kind, id, node)
	return nil
}
