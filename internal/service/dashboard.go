package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"dashv/internal/domain"
	"dashv/internal/repository"
)

// ErrInvalidInput marks requests missing required fields
var ErrInvalidInput = errors.New("invalid input")

// DashboardStore persists operator dashboard state
type DashboardStore interface {
	SaveManualService(ctx context.Context, s domain.Service) error
	DeleteManualService(ctx context.Context, id string) error
	ListManualServices(ctx context.Context) ([]domain.Service, error)
	SaveOverride(ctx context.Context, o domain.Override) error
	ListOverrides(ctx context.Context) ([]domain.Override, error)
}

// ServiceSource provides the discovered services
type ServiceSource interface {
	Services() []domain.Service
	Service(id string) (domain.Service, bool)
}

// HiddenService is an entry of the hidden list
type HiddenService struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// IconOverride is a custom icon for a service
type IconOverride struct {
	ID      string `json:"id"`
	IconURL string `json:"iconUrl"`
}

// Preferences lists the operator's hidden services and icon overrides
type Preferences struct {
	Hidden        []HiddenService `json:"hidden"`
	IconOverrides []IconOverride  `json:"iconOverrides"`
}

// ServiceEdit changes the displayed name and/or port of a service. Nil
// fields are left alone.
type ServiceEdit struct {
	Name *string `json:"name,omitempty"`
	Port *int    `json:"port,omitempty"`
}

// Dashboard combines discovered services with manual services and the
// operator's overrides
type Dashboard struct {
	source    ServiceSource
	publisher Publisher
	store     DashboardStore

	mu          sync.RWMutex
	manual      map[string]domain.Service
	manualOrder []string
	overrides   map[string]domain.Override

	now   func() time.Time
	newID func() string
}

// NewDashboard creates the dashboard overlay. store may be
// repository.Unavailable for memory-only operation.
func NewDashboard(source ServiceSource, publisher Publisher, store DashboardStore) *Dashboard {
	if publisher == nil {
		publisher = PublisherFunc(func(domain.ChangeEvent) {})
	}
	if store == nil {
		store = repository.Unavailable{}
	}
	return &Dashboard{
		source:    source,
		publisher: publisher,
		store:     store,
		manual:    make(map[string]domain.Service),
		overrides: make(map[string]domain.Override),
		now:       time.Now,
		newID:     func() string { return domain.ManualPrefix + uuid.NewString() },
	}
}

// Load restores manual services and overrides from the store
func (d *Dashboard) Load(ctx context.Context) error {
	manual, err := d.store.ListManualServices(ctx)
	if err != nil {
		return fmt.Errorf("load manual services: %w", err)
	}
	overrides, err := d.store.ListOverrides(ctx)
	if err != nil {
		return fmt.Errorf("load overrides: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range manual {
		if _, ok := d.manual[s.ID]; !ok {
			d.manualOrder = append(d.manualOrder, s.ID)
		}
		d.manual[s.ID] = s
	}
	for _, o := range overrides {
		d.overrides[o.ServiceID] = o
	}
	log.Printf("Dashboard: loaded %d manual services, %d overrides", len(manual), len(overrides))
	return nil
}

// Services returns the dashboard list: discovered services then manual
// services, hidden ones removed and overrides applied
func (d *Dashboard) Services() []domain.Service {
	discovered := d.source.Services()

	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]domain.Service, 0, len(discovered)+len(d.manual))
	for _, s := range discovered {
		if o, ok := d.overrides[s.ID]; ok {
			if o.Hidden {
				continue
			}
			s = o.Apply(s)
		}
		out = append(out, s)
	}
	for _, id := range d.manualOrder {
		s := d.manual[id]
		if o, ok := d.overrides[id]; ok {
			if o.Hidden {
				continue
			}
			s = o.Apply(s)
		}
		out = append(out, s)
	}
	return out
}

// Lookup finds a service of the dashboard list by id, hidden or not
func (d *Dashboard) Lookup(id string) (domain.Service, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lookupLocked(id)
}

func (d *Dashboard) lookupLocked(id string) (domain.Service, bool) {
	s, ok := d.manual[id]
	if !ok {
		s, ok = d.source.Service(id)
	}
	if !ok {
		return domain.Service{}, false
	}
	if o, found := d.overrides[id]; found {
		s = o.Apply(s)
	}
	return s, true
}

// Preferences returns hidden services and icon overrides, by id
func (d *Dashboard) Preferences() Preferences {
	d.mu.RLock()
	defer d.mu.RUnlock()

	prefs := Preferences{Hidden: []HiddenService{}, IconOverrides: []IconOverride{}}
	for id, o := range d.overrides {
		if o.Hidden {
			name := o.Label
			if name == "" {
				name = id
			}
			prefs.Hidden = append(prefs.Hidden, HiddenService{ID: id, Name: name})
		}
		if o.IconURL != "" {
			prefs.IconOverrides = append(prefs.IconOverrides, IconOverride{ID: id, IconURL: o.IconURL})
		}
	}
	sort.Slice(prefs.Hidden, func(i, j int) bool { return prefs.Hidden[i].ID < prefs.Hidden[j].ID })
	sort.Slice(prefs.IconOverrides, func(i, j int) bool { return prefs.IconOverrides[i].ID < prefs.IconOverrides[j].ID })
	return prefs
}

// SetHidden hides or shows a service. name is remembered for the hidden
// list.
func (d *Dashboard) SetHidden(ctx context.Context, id, name string, hidden bool) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: missing service id", ErrInvalidInput)
	}
	d.updateOverride(ctx, id, func(o *domain.Override) {
		o.Hidden = hidden
		o.Label = ""
		if hidden {
			o.Label = name
			if o.Label == "" {
				o.Label = id
			}
		}
	})
	return nil
}

// SetIcon sets a custom icon URL for a service
func (d *Dashboard) SetIcon(ctx context.Context, id, iconURL string) error {
	if strings.TrimSpace(id) == "" || strings.TrimSpace(iconURL) == "" {
		return fmt.Errorf("%w: missing id or iconUrl", ErrInvalidInput)
	}
	d.updateOverride(ctx, id, func(o *domain.Override) {
		o.IconURL = iconURL
	})
	return nil
}

func (d *Dashboard) updateOverride(ctx context.Context, id string, change func(*domain.Override)) domain.Override {
	d.mu.Lock()
	o, ok := d.overrides[id]
	if !ok {
		o = domain.Override{ServiceID: id}
	}
	change(&o)
	if o.Empty() {
		delete(d.overrides, id)
	} else {
		d.overrides[id] = o
	}
	d.mu.Unlock()

	if err := d.store.SaveOverride(ctx, o); err != nil {
		logPersistence("override "+id, err)
	}
	return o
}

// AddManual creates a manual service and announces it
func (d *Dashboard) AddManual(ctx context.Context, m domain.ManualService) (domain.Service, error) {
	if err := m.Validate(); err != nil {
		return domain.Service{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	s := m.Service(d.newID(), d.now())

	d.mu.Lock()
	d.manual[s.ID] = s
	d.manualOrder = append(d.manualOrder, s.ID)
	d.mu.Unlock()

	if err := d.store.SaveManualService(ctx, s); err != nil {
		logPersistence("manual service "+s.ID, err)
	}
	d.publisher.Publish(domain.ServiceAdded(s))
	log.Printf("Dashboard: manual service added: %s (%s)", s.Name, s.ID)
	return s, nil
}

// DeleteManual removes a manual service and announces it
func (d *Dashboard) DeleteManual(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidInput)
	}

	d.mu.Lock()
	_, ok := d.manual[id]
	if ok {
		delete(d.manual, id)
		delete(d.overrides, id)
		for i, mid := range d.manualOrder {
			if mid == id {
				d.manualOrder = append(d.manualOrder[:i], d.manualOrder[i+1:]...)
				break
			}
		}
	}
	d.mu.Unlock()

	if !ok {
		return fmt.Errorf("manual service %s: %w", id, repository.ErrNotFound)
	}

	if err := d.store.DeleteManualService(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
		logPersistence("manual service "+id, err)
	}
	d.publisher.Publish(domain.ServiceRemoved(domain.ServiceRef{ID: id, Name: id}))
	log.Printf("Dashboard: manual service removed: %s", id)
	return nil
}

// Edit renames and/or re-ports a service. Manual services are edited in
// place; discovered services get an override so the next discovery cycle
// does not undo the change.
func (d *Dashboard) Edit(ctx context.Context, id string, edit ServiceEdit) (domain.Service, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Service{}, fmt.Errorf("%w: missing service id", ErrInvalidInput)
	}
	if edit.Port != nil && (*edit.Port < 0 || *edit.Port > 65535) {
		return domain.Service{}, fmt.Errorf("%w: port %d out of range", ErrInvalidInput, *edit.Port)
	}

	d.mu.Lock()
	if s, ok := d.manual[id]; ok {
		if edit.Name != nil {
			s.Name = *edit.Name
		}
		if edit.Port != nil {
			s.Port = *edit.Port
		}
		s.LastUpdated = d.now()
		d.manual[id] = s
		if o, found := d.overrides[id]; found {
			s = o.Apply(s)
		}
		d.mu.Unlock()

		if err := d.store.SaveManualService(ctx, d.manualRecord(id)); err != nil {
			logPersistence("manual service "+id, err)
		}
		d.publisher.Publish(domain.ServiceUpdated(s))
		return s, nil
	}
	d.mu.Unlock()

	if _, ok := d.source.Service(id); !ok {
		return domain.Service{}, fmt.Errorf("service %s: %w", id, repository.ErrNotFound)
	}

	d.updateOverride(ctx, id, func(o *domain.Override) {
		if edit.Name != nil {
			o.Name = *edit.Name
		}
		if edit.Port != nil {
			o.Port = *edit.Port
		}
	})

	s, ok := d.Lookup(id)
	if !ok {
		return domain.Service{}, fmt.Errorf("service %s: %w", id, repository.ErrNotFound)
	}
	d.publisher.Publish(domain.ServiceUpdated(s))
	return s, nil
}

func (d *Dashboard) manualRecord(id string) domain.Service {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.manual[id]
}

func logPersistence(what string, err error) {
	if errors.Is(err, repository.ErrUnavailable) {
		log.Printf("Dashboard: %s kept in memory only (database unavailable)", what)
		return
	}
	log.Printf("Dashboard: could not save %s: %v", what, err)
}
