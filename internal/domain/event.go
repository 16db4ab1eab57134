package domain

// EventKind names a service change notification
type EventKind string

const (
	EventServiceAdded   EventKind = "service:added"
	EventServiceUpdated EventKind = "service:updated"
	EventServiceRemoved EventKind = "service:removed"
)

// ChangeEvent is a single service change. Added and updated events carry
// the full record, removed events carry only the id and name.
type ChangeEvent struct {
	Kind    EventKind   `json:"type"`
	Service *Service    `json:"-"`
	Ref     *ServiceRef `json:"-"`
}

// ServiceAdded builds an added event
func ServiceAdded(s Service) ChangeEvent {
	return ChangeEvent{Kind: EventServiceAdded, Service: &s}
}

// ServiceUpdated builds an updated event
func ServiceUpdated(s Service) ChangeEvent {
	return ChangeEvent{Kind: EventServiceUpdated, Service: &s}
}

// ServiceRemoved builds a removed event
func ServiceRemoved(ref ServiceRef) ChangeEvent {
	return ChangeEvent{Kind: EventServiceRemoved, Ref: &ref}
}

// Payload returns the value subscribers receive for this event
func (e ChangeEvent) Payload() any {
	if e.Kind == EventServiceRemoved {
		if e.Ref != nil {
			return *e.Ref
		}
		if e.Service != nil {
			return e.Service.Ref()
		}
		return nil
	}
	if e.Service != nil {
		return *e.Service
	}
	return nil
}

// ServiceID returns the id of the service the event is about
func (e ChangeEvent) ServiceID() string {
	switch {
	case e.Service != nil:
		return e.Service.ID
	case e.Ref != nil:
		return e.Ref.ID
	default:
		return ""
	}
}
