package adapter

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"dashv/internal/domain"
)

// fakeAPI is an in-memory PlatformAPI that records every call
type fakeAPI struct {
	mu sync.Mutex

	nodes      []NodeInfo
	nodesErr   error
	containers map[string][]WorkloadInfo
	vms        map[string][]WorkloadInfo
	rosterErr  map[string]error
	configs    map[int]map[string]any
	statuses   map[int]map[string]any
	agents     map[int][]GuestInterface
	lookupErr  error
	block      chan struct{}

	calls []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		containers: make(map[string][]WorkloadInfo),
		vms:        make(map[string][]WorkloadInfo),
		rosterErr:  make(map[string]error),
		configs:    make(map[int]map[string]any),
		statuses:   make(map[int]map[string]any),
		agents:     make(map[int][]GuestInterface),
	}
}

func (f *fakeAPI) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAPI) Nodes(ctx context.Context) ([]NodeInfo, error) {
	f.record("nodes")
	return f.nodes, f.nodesErr
}

func (f *fakeAPI) Containers(ctx context.Context, node string) ([]WorkloadInfo, error) {
	f.record("lxc:" + node)
	if err := f.rosterErr[node]; err != nil {
		return nil, err
	}
	return f.containers[node], nil
}

func (f *fakeAPI) VirtualMachines(ctx context.Context, node string) ([]WorkloadInfo, error) {
	f.record("qemu:" + node)
	if err := f.rosterErr[node]; err != nil {
		return nil, err
	}
	return f.vms[node], nil
}

func (f *fakeAPI) wait(ctx context.Context) error {
	if f.block == nil {
		return nil
	}
	select {
	case <-f.block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeAPI) ContainerConfig(ctx context.Context, node string, id int) (map[string]any, error) {
	f.record(fmt.Sprintf("config:%d", id))
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	cfg, ok := f.configs[id]
	if !ok {
		return nil, errors.New("no config")
	}
	return cfg, nil
}

func (f *fakeAPI) ContainerStatus(ctx context.Context, node string, id int) (map[string]any, error) {
	f.record(fmt.Sprintf("status:%d", id))
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	st, ok := f.statuses[id]
	if !ok {
		return nil, errors.New("no status")
	}
	return st, nil
}

func (f *fakeAPI) GuestInterfaces(ctx context.Context, node string, id int) ([]GuestInterface, error) {
	f.record(fmt.Sprintf("agent:%d", id))
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	ifaces, ok := f.agents[id]
	if !ok {
		return nil, errors.New("QEMU guest agent is not running")
	}
	return ifaces, nil
}

func container(id int, name string, tags ...string) domain.Workload {
	return domain.Workload{ID: id, Name: name, Status: "running", Kind: domain.WorkloadKindContainer, Node: "pve1", Tags: tags}
}

func vm(id int, name string) domain.Workload {
	return domain.Workload{ID: id, Name: name, Status: "running", Kind: domain.WorkloadKindVM, Node: "pve1"}
}
