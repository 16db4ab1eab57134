package domain

import (
	"errors"
	"strings"
	"time"
)

// ManualPrefix starts the id of every operator-created service
const ManualPrefix = "manual-"

// Override holds the operator's dashboard preferences for one service
type Override struct {
	ServiceID string `json:"id"`
	// Hidden removes the service from the dashboard list
	Hidden bool `json:"hidden,omitempty"`
	// Label is the name shown in the hidden services list
	Label   string `json:"name,omitempty"`
	IconURL string `json:"iconUrl,omitempty"`
	// Name and Port replace the discovered values when set
	Name string `json:"editName,omitempty"`
	Port int    `json:"editPort,omitempty"`
}

// Empty reports whether the override changes nothing
func (o Override) Empty() bool {
	return !o.Hidden && o.IconURL == "" && o.Name == "" && o.Port == 0
}

// Apply returns s with the icon and edit overrides applied
func (o Override) Apply(s Service) Service {
	if o.IconURL != "" {
		s.IconURL = o.IconURL
	}
	if o.Name != "" {
		s.Name = o.Name
	}
	if o.Port != 0 {
		s.Port = o.Port
	}
	return s
}

// ManualService describes a service an operator adds by hand
type ManualService struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	IconURL     string `json:"iconUrl,omitempty"`
	Description string `json:"description,omitempty"`
}

// Validate checks the required fields
func (m ManualService) Validate() error {
	if strings.TrimSpace(m.Name) == "" || strings.TrimSpace(m.URL) == "" {
		return errors.New("missing name or url")
	}
	return nil
}

// Service builds the dashboard record for a manual service
func (m ManualService) Service(id string, now time.Time) Service {
	return Service{
		ID:            id,
		Name:          strings.TrimSpace(m.Name),
		URL:           strings.TrimSpace(m.URL),
		IconURL:       m.IconURL,
		Description:   m.Description,
		ContainerName: "manual",
		ContainerKind: WorkloadKindContainer,
		IP:            "manual",
		LastUpdated:   now,
		Origin:        OriginManual,
	}
}

// IsManualID reports whether id names an operator-created service
func IsManualID(id string) bool {
	return strings.HasPrefix(id, ManualPrefix)
}
