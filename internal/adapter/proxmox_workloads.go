package adapter

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"dashv/internal/domain"
)

// Lister enumerates workloads across every online node of a cluster
type Lister struct {
	api         PlatformAPI
	concurrency int
}

// NewLister creates a lister over the given API. concurrency bounds how
// many nodes are queried at once.
func NewLister(api PlatformAPI, concurrency int) *Lister {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Lister{api: api, concurrency: concurrency}
}

// ListWorkloads returns containers and VMs of all nodes, in node order.
// A node whose roster cannot be read is logged and left out; failing to
// list the nodes themselves fails the call.
func (l *Lister) ListWorkloads(ctx context.Context) ([]domain.Workload, error) {
	nodes, err := l.api.Nodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}

	perNode := make([][]domain.Workload, len(nodes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)

	for i, node := range nodes {
		if node.Node == "" {
			continue
		}
		if !node.Online() {
			log.Printf("Proxmox: skipping node %s (status %s)", node.Node, node.Status)
			continue
		}
		g.Go(func() error {
			workloads, err := l.listNode(gctx, node.Node)
			if err != nil {
				log.Printf("Proxmox: omitting node %s: %v", node.Node, err)
				return nil
			}
			perNode[i] = workloads
			return nil
		})
	}
	// Per-node errors are absorbed above, so Wait only reports nil
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var all []domain.Workload
	for _, ws := range perNode {
		all = append(all, ws...)
	}
	return all, nil
}

func (l *Lister) listNode(ctx context.Context, node string) ([]domain.Workload, error) {
	containers, err := l.api.Containers(ctx, node)
	if err != nil {
		return nil, fmt.Errorf("containers: %w", err)
	}
	vms, err := l.api.VirtualMachines(ctx, node)
	if err != nil {
		return nil, fmt.Errorf("virtual machines: %w", err)
	}

	workloads := make([]domain.Workload, 0, len(containers)+len(vms))
	for _, c := range containers {
		workloads = append(workloads, c.Workload(domain.WorkloadKindContainer, node))
	}
	for _, v := range vms {
		workloads = append(workloads, v.Workload(domain.WorkloadKindVM, node))
	}
	return workloads, nil
}
