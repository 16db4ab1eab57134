package domain

import (
	"fmt"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Origin records who owns a service record
type Origin string

const (
	// OriginDiscovered records are owned by discovery and rewritten every cycle
	OriginDiscovered Origin = "discovered"
	// OriginManual records are created by operators and never touched by discovery
	OriginManual Origin = "manual"
)

// Service is a logical, browsable endpoint exposed by a workload
type Service struct {
	ID            string       `json:"id" yaml:"id"`
	Name          string       `json:"name" yaml:"name"`
	URL           string       `json:"url" yaml:"url"`
	Icon          string       `json:"icon,omitempty" yaml:"icon,omitempty"`
	IconURL       string       `json:"iconUrl,omitempty" yaml:"icon_url,omitempty"`
	Description   string       `json:"description,omitempty" yaml:"description,omitempty"`
	ContainerName string       `json:"containerName" yaml:"container_name"`
	ContainerKind WorkloadKind `json:"containerType" yaml:"container_type"`
	ContainerID   int          `json:"containerId" yaml:"container_id"`
	Node          string       `json:"node,omitempty" yaml:"node,omitempty"`
	Status        string       `json:"status,omitempty" yaml:"status,omitempty"`
	Port          int          `json:"port" yaml:"port"`
	IP            string       `json:"ip" yaml:"ip"`
	LastUpdated   time.Time    `json:"lastUpdated" yaml:"last_updated"`
	Origin        Origin       `json:"source" yaml:"source"`
}

// ServiceID returns the stable identifier for a workload/port pair
func ServiceID(workloadID, port int) string {
	return fmt.Sprintf("%d-%d", workloadID, port)
}

// PlaceholderURL is used when the service address is unknown. The UI
// renders it as a disabled link.
const PlaceholderURL = "#"

// ServiceURL builds the browsable URL for an address/port pair
func ServiceURL(ip string, port int) string {
	if ip == "" || ip == AddressUnknown {
		return PlaceholderURL
	}
	return fmt.Sprintf("http://%s:%d", ip, port)
}

var ignoreLastUpdated = cmpopts.IgnoreFields(Service{}, "LastUpdated")

// SameAs reports whether two records are structurally identical apart from
// their LastUpdated stamp
func (s Service) SameAs(other Service) bool {
	return cmp.Equal(s, other, ignoreLastUpdated)
}

// Diff returns a human readable description of the differences between two
// records, ignoring LastUpdated. Empty when SameAs is true.
func (s Service) Diff(other Service) string {
	return cmp.Diff(s, other, ignoreLastUpdated)
}

// Ref returns the minimal identification carried by removal events
func (s Service) Ref() ServiceRef {
	return ServiceRef{ID: s.ID, Name: s.Name}
}

// ServiceRef identifies a service that no longer exists
type ServiceRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
