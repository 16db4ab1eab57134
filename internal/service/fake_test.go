package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"dashv/internal/domain"
	"dashv/internal/repository"
)

// fakeLister serves a mutable workload list
type fakeLister struct {
	mu        sync.Mutex
	workloads []domain.Workload
	err       error
	panicMsg  string
	gate      chan struct{}
	entered   chan struct{}

	calls   atomic.Int32
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (f *fakeLister) set(ws ...domain.Workload) {
	f.mu.Lock()
	f.workloads = ws
	f.mu.Unlock()
}

func (f *fakeLister) ListWorkloads(ctx context.Context) ([]domain.Workload, error) {
	f.calls.Add(1)
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		m := f.maxSeen.Load()
		if n <= m || f.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}

	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.err != nil {
		return nil, f.err
	}
	return append([]domain.Workload(nil), f.workloads...), nil
}

// fakeResolver answers from a map, unknown otherwise
type fakeResolver struct {
	mu    sync.Mutex
	addrs map[int]string
}

func (f *fakeResolver) setAddr(id int, addr string) {
	f.mu.Lock()
	f.addrs[id] = addr
	f.mu.Unlock()
}

func (f *fakeResolver) ResolveAddress(ctx context.Context, w domain.Workload) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.addrs[w.ID]; ok {
		return a
	}
	return domain.AddressUnknown
}

// recorder collects published events
type recorder struct {
	mu     sync.Mutex
	events []domain.ChangeEvent
}

func (r *recorder) Publish(ev domain.ChangeEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) take() []domain.ChangeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.events
	r.events = nil
	return out
}

func kinds(events []domain.ChangeEvent) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = string(ev.Kind) + " " + ev.ServiceID()
	}
	return out
}

// memStore is a ServiceStore that can be told to fail
type memStore struct {
	mu      sync.Mutex
	fail    error
	saved   map[string]domain.Service
	changes []string
}

func newMemStore() *memStore {
	return &memStore{saved: make(map[string]domain.Service)}
}

func (m *memStore) UpsertService(ctx context.Context, s domain.Service) (domain.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return domain.Service{}, m.fail
	}
	m.saved[s.ID] = s
	return s, nil
}

func (m *memStore) LogServiceChange(ctx context.Context, id string, kind domain.EventKind, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.changes = append(m.changes, string(kind)+" "+id)
	return nil
}

func lxc(id int, name string) domain.Workload {
	return domain.Workload{ID: id, Name: name, Status: "running", Kind: domain.WorkloadKindContainer, Node: "pve1"}
}

// fakeSource is a fixed discovered service list
type fakeSource struct {
	services []domain.Service
}

func (f *fakeSource) Services() []domain.Service {
	return append([]domain.Service(nil), f.services...)
}

func (f *fakeSource) Service(id string) (domain.Service, bool) {
	for _, s := range f.services {
		if s.ID == id {
			return s, true
		}
	}
	return domain.Service{}, false
}

// dashStore keeps dashboard state in maps
type dashStore struct {
	mu        sync.Mutex
	fail      error
	manual    map[string]domain.Service
	overrides map[string]domain.Override
}

func newDashStore() *dashStore {
	return &dashStore{manual: make(map[string]domain.Service), overrides: make(map[string]domain.Override)}
}

func (d *dashStore) SaveManualService(ctx context.Context, s domain.Service) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail != nil {
		return d.fail
	}
	d.manual[s.ID] = s
	return nil
}

func (d *dashStore) DeleteManualService(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail != nil {
		return d.fail
	}
	delete(d.manual, id)
	delete(d.overrides, id)
	return nil
}

func (d *dashStore) ListManualServices(ctx context.Context) ([]domain.Service, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail != nil {
		return nil, d.fail
	}
	out := make([]domain.Service, 0, len(d.manual))
	for _, s := range d.manual {
		out = append(out, s)
	}
	return out, nil
}

func (d *dashStore) SaveOverride(ctx context.Context, o domain.Override) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail != nil {
		return d.fail
	}
	if o.Empty() {
		delete(d.overrides, o.ServiceID)
		return nil
	}
	d.overrides[o.ServiceID] = o
	return nil
}

func (d *dashStore) ListOverrides(ctx context.Context) ([]domain.Override, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail != nil {
		return nil, d.fail
	}
	out := make([]domain.Override, 0, len(d.overrides))
	for _, o := range d.overrides {
		out = append(out, o)
	}
	return out, nil
}

// connStore remembers the last saved connection
type connStore struct {
	mu      sync.Mutex
	conn    *domain.Connection
	saves   int
	deletes int
}

func (c *connStore) SaveConnection(ctx context.Context, conn domain.Connection) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn = &conn
	c.saves++
	return nil
}

func (c *connStore) GetConnection(ctx context.Context) (*domain.Connection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil, repository.ErrNotFound
	}
	conn := *c.conn
	return &conn, nil
}

func (c *connStore) DeleteConnections(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn = nil
	c.deletes++
	return nil
}
