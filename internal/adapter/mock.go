package adapter

import (
	"context"
	"fmt"
	"log"
	"sync"

	"dashv/internal/domain"
)

// MockNodeName is the single node served by MockPlatform
const MockNodeName = "pve-mock"

// MockAddress is the address every mock container reports
const MockAddress = "10.0.0.1"

var mockRoster = []string{
	"immich", "jellyfin", "radarr", "sonarr", "lidarr", "qbittorrent",
	"nextcloud", "bitwarden", "grafana", "prometheus", "portainer",
}

// MockPlatform serves a fixed roster for development without a cluster
type MockPlatform struct {
	mu      sync.Mutex
	stopped map[int]bool
}

// NewMockPlatform creates the canned platform
func NewMockPlatform() *MockPlatform {
	return &MockPlatform{stopped: make(map[int]bool)}
}

// Version implements Platform
func (m *MockPlatform) Version(ctx context.Context) (string, error) {
	return "mock", nil
}

// Nodes implements PlatformAPI
func (m *MockPlatform) Nodes(ctx context.Context) ([]NodeInfo, error) {
	return []NodeInfo{{Node: MockNodeName, Status: "online"}}, nil
}

// Containers implements PlatformAPI
func (m *MockPlatform) Containers(ctx context.Context, node string) ([]WorkloadInfo, error) {
	if node != MockNodeName {
		return nil, fmt.Errorf("unknown node %q", node)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	list := make([]WorkloadInfo, len(mockRoster))
	for i, name := range mockRoster {
		id := 100 + i
		status := domain.WorkloadStatusRunning
		if m.stopped[id] {
			status = domain.WorkloadStatusStopped
		}
		list[i] = WorkloadInfo{VMID: FlexInt(id), Name: name, Status: status}
	}
	return list, nil
}

// VirtualMachines implements PlatformAPI
func (m *MockPlatform) VirtualMachines(ctx context.Context, node string) ([]WorkloadInfo, error) {
	if node != MockNodeName {
		return nil, fmt.Errorf("unknown node %q", node)
	}
	return nil, nil
}

// ContainerConfig implements PlatformAPI
func (m *MockPlatform) ContainerConfig(ctx context.Context, node string, id int) (map[string]any, error) {
	if !m.known(node, id) {
		return nil, fmt.Errorf("container %d not found on %s", id, node)
	}
	return map[string]any{
		"hostname": mockRoster[id-100],
		"net0":     fmt.Sprintf("name=eth0,bridge=vmbr0,ip=%s/24,type=veth", MockAddress),
	}, nil
}

// ContainerStatus implements PlatformAPI
func (m *MockPlatform) ContainerStatus(ctx context.Context, node string, id int) (map[string]any, error) {
	if !m.known(node, id) {
		return nil, fmt.Errorf("container %d not found on %s", id, node)
	}
	return map[string]any{"status": domain.WorkloadStatusRunning}, nil
}

// GuestInterfaces implements PlatformAPI
func (m *MockPlatform) GuestInterfaces(ctx context.Context, node string, id int) ([]GuestInterface, error) {
	return nil, fmt.Errorf("no guest agent on mock workload %d", id)
}

// StartWorkload implements Platform
func (m *MockPlatform) StartWorkload(ctx context.Context, node string, kind domain.WorkloadKind, id int) error {
	if kind != domain.WorkloadKindContainer || !m.known(node, id) {
		return fmt.Errorf("%s %d not found on %s", kind, id, node)
	}
	m.mu.Lock()
	delete(m.stopped, id)
	m.mu.Unlock()
	log.Printf("Proxmox: [mock] started %s %d", kind, id)
	return nil
}

// Stop marks a mock container as stopped
func (m *MockPlatform) Stop(id int) {
	m.mu.Lock()
	m.stopped[id] = true
	m.mu.Unlock()
}

func (m *MockPlatform) known(node string, id int) bool {
	return node == MockNodeName && id >= 100 && id < 100+len(mockRoster)
}
