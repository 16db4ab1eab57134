package adapter

import (
	"context"

	"dashv/internal/domain"
)

// WorkloadLister enumerates the workloads running across the cluster
type WorkloadLister interface {
	ListWorkloads(ctx context.Context) ([]domain.Workload, error)
}

// AddressResolver finds the best-known IPv4 address of a workload, or
// domain.AddressUnknown
type AddressResolver interface {
	ResolveAddress(ctx context.Context, w domain.Workload) string
}

// PlatformAPI is the part of the Proxmox VE API discovery reads from
type PlatformAPI interface {
	// Nodes lists cluster members
	Nodes(ctx context.Context) ([]NodeInfo, error)

	// Containers lists the LXC roster of a node
	Containers(ctx context.Context, node string) ([]WorkloadInfo, error)

	// VirtualMachines lists the QEMU roster of a node
	VirtualMachines(ctx context.Context, node string) ([]WorkloadInfo, error)

	// ContainerConfig returns the raw configuration of a container
	ContainerConfig(ctx context.Context, node string, id int) (map[string]any, error)

	// ContainerStatus returns the raw runtime status of a container
	ContainerStatus(ctx context.Context, node string, id int) (map[string]any, error)

	// GuestInterfaces asks a VM's guest agent for its network interfaces
	GuestInterfaces(ctx context.Context, node string, id int) ([]GuestInterface, error)
}

// Platform is the full API surface used by the connection layer
type Platform interface {
	PlatformAPI

	// Version returns the platform release, used as a connection check
	Version(ctx context.Context) (string, error)

	// StartWorkload powers on a container or VM
	StartWorkload(ctx context.Context, node string, kind domain.WorkloadKind, id int) error
}
