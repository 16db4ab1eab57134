package domain

import "strings"

// WorkloadKind distinguishes containers from virtual machines
type WorkloadKind string

const (
	WorkloadKindContainer WorkloadKind = "lxc"
	WorkloadKindVM        WorkloadKind = "qemu"
)

// Valid reports whether the kind is one the platform API knows about
func (k WorkloadKind) Valid() bool {
	return k == WorkloadKindContainer || k == WorkloadKindVM
}

// Workload status values reported by the platform
const (
	WorkloadStatusRunning = "running"
	WorkloadStatusStopped = "stopped"
)

// AddressUnknown is the resolved address of a workload whose IPv4 address
// could not be determined by any strategy
const AddressUnknown = "unknown"

// Workload is a container or virtual machine as seen during one discovery
// cycle. Workloads are produced fresh each cycle and never mutated.
type Workload struct {
	ID     int          `json:"vmid"`
	Name   string       `json:"name"`
	Status string       `json:"status"`
	Kind   WorkloadKind `json:"type"`
	Node   string       `json:"node,omitempty"`
	Tags   []string     `json:"tags,omitempty"`
}

// IsContainer reports whether the workload is an LXC container
func (w Workload) IsContainer() bool {
	return w.Kind == WorkloadKindContainer
}

// IsVM reports whether the workload is a QEMU virtual machine
func (w Workload) IsVM() bool {
	return w.Kind == WorkloadKindVM
}

// ParseTags splits the platform's raw tag string into an ordered list.
// Proxmox separates tags with ';' but older releases and hand-edited
// configs also use ',' or spaces.
func ParseTags(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ';' || r == ',' || r == ' ' || r == '\t'
	})
	if len(fields) == 0 {
		return nil
	}
	return fields
}
