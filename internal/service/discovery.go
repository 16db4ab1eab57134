package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"dashv/internal/adapter"
	"dashv/internal/domain"
)

// ErrNotConnected is returned when discovery runs without a platform
var ErrNotConnected = errors.New("not connected to a platform")

// ServiceStore is the persistence discovery mirrors its changes to
type ServiceStore interface {
	UpsertService(ctx context.Context, s domain.Service) (domain.Service, error)
	LogServiceChange(ctx context.Context, serviceID string, kind domain.EventKind, at time.Time) error
}

// DiscoveryConfig holds the reconciler settings
type DiscoveryConfig struct {
	// Interval between timer-driven cycles
	Interval time.Duration
	// Concurrency bounds parallel address lookups within a cycle
	Concurrency int
}

// TriggerResult reports the outcome of a manual cycle
type TriggerResult struct {
	Before  int `json:"servicesBefore"`
	After   int `json:"servicesAfter"`
	New     int `json:"newServices"`
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Removed int `json:"removed"`
}

// Status describes the reconciler for diagnostics
type Status struct {
	Running        bool      `json:"running"`
	Connected      bool      `json:"connected"`
	InProgress     bool      `json:"inProgress"`
	ServicesFound  int       `json:"servicesFound"`
	Cycles         int       `json:"cycles"`
	LastUpdate     time.Time `json:"lastUpdate"`
	LastDurationMs int64     `json:"lastDurationMs"`
	LastError      string    `json:"lastError,omitempty"`
}

// Discovery periodically lists platform workloads, maps them to services
// and reconciles the result against the previous snapshot, publishing one
// event per actual change. Cycles never overlap.
type Discovery struct {
	mapper      *Mapper
	publisher   Publisher
	store       ServiceStore
	interval    time.Duration
	concurrency int

	sourceMu sync.RWMutex
	lister   adapter.WorkloadLister
	resolver adapter.AddressResolver

	// inFlight holds a token while a cycle runs
	inFlight chan struct{}

	mu       sync.RWMutex
	snapshot map[string]domain.Service
	status   Status

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewDiscovery creates a reconciler with an empty snapshot. store may be
// nil, in which case nothing is persisted.
func NewDiscovery(mapper *Mapper, publisher Publisher, store ServiceStore, config DiscoveryConfig) *Discovery {
	if mapper == nil {
		mapper = NewMapper(nil)
	}
	if publisher == nil {
		publisher = PublisherFunc(func(domain.ChangeEvent) {})
	}
	if config.Interval <= 0 {
		config.Interval = 30 * time.Second
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 4
	}
	return &Discovery{
		mapper:      mapper,
		publisher:   publisher,
		store:       store,
		interval:    config.Interval,
		concurrency: config.Concurrency,
		inFlight:    make(chan struct{}, 1),
		snapshot:    make(map[string]domain.Service),
	}
}

// Attach binds the platform discovery reads from
func (d *Discovery) Attach(lister adapter.WorkloadLister, resolver adapter.AddressResolver) {
	d.sourceMu.Lock()
	defer d.sourceMu.Unlock()
	d.lister = lister
	d.resolver = resolver
}

// Detach unbinds the platform. The snapshot is kept.
func (d *Discovery) Detach() {
	d.sourceMu.Lock()
	defer d.sourceMu.Unlock()
	d.lister = nil
	d.resolver = nil
}

// Connected reports whether a platform is attached
func (d *Discovery) Connected() bool {
	lister, _ := d.source()
	return lister != nil
}

func (d *Discovery) source() (adapter.WorkloadLister, adapter.AddressResolver) {
	d.sourceMu.RLock()
	defer d.sourceMu.RUnlock()
	return d.lister, d.resolver
}

// Start runs a cycle now and then on every interval until Stop is called
// or ctx is cancelled. Calling Start on a running reconciler does nothing.
func (d *Discovery) Start(ctx context.Context) {
	d.runMu.Lock()
	defer d.runMu.Unlock()

	if d.cancel != nil {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})

	d.mu.Lock()
	d.status.Running = true
	d.mu.Unlock()

	go d.loop(loopCtx, d.done)
	log.Printf("Discovery: started (interval=%s)", d.interval)
}

// Stop cancels the timer and waits for an in-flight cycle to finish. No
// timer-driven cycle starts afterwards.
func (d *Discovery) Stop() {
	d.runMu.Lock()
	defer d.runMu.Unlock()

	if d.cancel == nil {
		return
	}
	d.cancel()
	<-d.done
	d.cancel = nil
	d.done = nil

	d.mu.Lock()
	d.status.Running = false
	d.mu.Unlock()
	log.Printf("Discovery: stopped")
}

// Running reports whether the timer is active
func (d *Discovery) Running() bool {
	d.runMu.Lock()
	defer d.runMu.Unlock()
	return d.cancel != nil
}

func (d *Discovery) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	d.tick(ctx)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

// tick runs a timer-driven cycle unless one is already in flight
func (d *Discovery) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	select {
	case d.inFlight <- struct{}{}:
	default:
		log.Printf("Discovery: cycle already in progress, skipping tick")
		return
	}
	defer func() { <-d.inFlight }()

	// Stop lets a started cycle finish, so the cycle does not inherit
	// the loop's cancellation
	if _, err := d.runCycle(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, ErrNotConnected) {
		log.Printf("Discovery: cycle failed: %v", err)
	}
}

// Trigger runs a cycle now and reports the before/after counts. A cycle
// already in flight is waited for rather than overlapped.
func (d *Discovery) Trigger(ctx context.Context) (TriggerResult, error) {
	select {
	case d.inFlight <- struct{}{}:
	case <-ctx.Done():
		return TriggerResult{}, ctx.Err()
	}
	defer func() { <-d.inFlight }()

	before := d.Count()
	stats, err := d.runCycle(ctx)
	after := d.Count()

	result := TriggerResult{
		Before:  before,
		After:   after,
		New:     after - before,
		Added:   stats.added,
		Updated: stats.updated,
		Removed: stats.removed,
	}
	return result, err
}

type cycleStats struct {
	added, updated, removed int
}

// runCycle performs one reconciliation. The caller holds the in-flight
// token.
func (d *Discovery) runCycle(ctx context.Context) (stats cycleStats, err error) {
	start := time.Now()
	d.setInProgress(true)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("discovery cycle panicked: %v", r)
			log.Printf("Discovery: %v", err)
		}
		d.finishCycle(start, err)
	}()

	lister, resolver := d.source()
	if lister == nil || resolver == nil {
		return stats, ErrNotConnected
	}

	workloads, err := lister.ListWorkloads(ctx)
	if err != nil {
		return stats, fmt.Errorf("list workloads: %w", err)
	}

	addresses := d.resolveAll(ctx, resolver, workloads)
	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("cycle interrupted: %w", err)
	}

	next := make(map[string]domain.Service)
	var order []string
	for i, w := range workloads {
		for _, s := range d.mapper.MapWorkload(w, addresses[i]) {
			if _, dup := next[s.ID]; dup {
				log.Printf("Discovery: duplicate service id %s from %s, keeping the first", s.ID, w.Name)
				continue
			}
			next[s.ID] = s
			order = append(order, s.ID)
		}
	}

	prev := d.current()

	var events []domain.ChangeEvent
	for _, id := range order {
		s := next[id]
		old, existed := prev[id]
		switch {
		case !existed:
			events = append(events, domain.ServiceAdded(s))
			stats.added++
		case !old.SameAs(s):
			events = append(events, domain.ServiceUpdated(s))
			stats.updated++
		default:
			// unchanged: keep the prior record and its timestamp
			next[id] = old
		}
	}

	var gone []string
	for id := range prev {
		if _, ok := next[id]; !ok {
			gone = append(gone, id)
		}
	}
	sort.Strings(gone)
	for _, id := range gone {
		events = append(events, domain.ServiceRemoved(prev[id].Ref()))
		stats.removed++
	}

	d.mu.Lock()
	d.snapshot = next
	d.mu.Unlock()

	for _, ev := range events {
		d.publisher.Publish(ev)
		d.persist(ctx, ev)
		switch ev.Kind {
		case domain.EventServiceAdded:
			log.Printf("Discovery: service added: %s (%s)", ev.Service.Name, ev.Service.ID)
		case domain.EventServiceUpdated:
			log.Printf("Discovery: service updated: %s (%s)", ev.Service.Name, ev.Service.ID)
		case domain.EventServiceRemoved:
			log.Printf("Discovery: service removed: %s (%s)", ev.Ref.Name, ev.Ref.ID)
		}
	}

	return stats, nil
}

// resolveAll resolves every workload address with bounded concurrency.
// Results are index-aligned with workloads.
func (d *Discovery) resolveAll(ctx context.Context, resolver adapter.AddressResolver, workloads []domain.Workload) []string {
	addresses := make([]string, len(workloads))

	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for i, w := range workloads {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("Discovery: address lookup for %s panicked: %v", w.Name, r)
					addresses[i] = domain.AddressUnknown
				}
			}()
			addresses[i] = resolver.ResolveAddress(ctx, w)
			return nil
		})
	}
	_ = g.Wait()

	return addresses
}

// persist mirrors one change to the store. Failures leave discovery in
// memory-only mode for this change.
func (d *Discovery) persist(ctx context.Context, ev domain.ChangeEvent) {
	if d.store == nil {
		return
	}
	if ev.Service != nil {
		if _, err := d.store.UpsertService(ctx, *ev.Service); err != nil {
			log.Printf("Discovery: could not save service %s (memory-only mode): %v", ev.Service.ID, err)
			return
		}
	}
	if err := d.store.LogServiceChange(ctx, ev.ServiceID(), ev.Kind, time.Now()); err != nil {
		log.Printf("Discovery: could not log change of %s (memory-only mode): %v", ev.ServiceID(), err)
	}
}

func (d *Discovery) current() map[string]domain.Service {
	d.mu.RLock()
	defer d.mu.RUnlock()
	// Snapshots are replaced, never mutated, so sharing the map is safe
	return d.snapshot
}

func (d *Discovery) setInProgress(v bool) {
	d.mu.Lock()
	d.status.InProgress = v
	d.mu.Unlock()
}

func (d *Discovery) finishCycle(start time.Time, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status.InProgress = false
	d.status.Cycles++
	d.status.LastUpdate = time.Now()
	d.status.LastDurationMs = time.Since(start).Milliseconds()
	d.status.LastError = ""
	if err != nil {
		d.status.LastError = err.Error()
	}
}

// Services returns a copy of the current snapshot sorted by id
func (d *Discovery) Services() []domain.Service {
	d.mu.RLock()
	defer d.mu.RUnlock()

	services := make([]domain.Service, 0, len(d.snapshot))
	for _, s := range d.snapshot {
		services = append(services, s)
	}
	sort.Slice(services, func(i, j int) bool { return services[i].ID < services[j].ID })
	return services
}

// Service returns one service of the current snapshot
func (d *Discovery) Service(id string) (domain.Service, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.snapshot[id]
	return s, ok
}

// Count returns the number of services in the current snapshot
func (d *Discovery) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.snapshot)
}

// Status returns the reconciler diagnostics
func (d *Discovery) Status() Status {
	d.mu.RLock()
	status := d.status
	status.ServicesFound = len(d.snapshot)
	d.mu.RUnlock()

	status.Connected = d.Connected()
	return status
}
