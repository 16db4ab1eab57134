package adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dashv/internal/domain"
)

func TestLister_ListsAllNodesInOrder(t *testing.T) {
	api := newFakeAPI()
	api.nodes = []NodeInfo{{Node: "pve1", Status: "online"}, {Node: "pve2", Status: "online"}}
	api.containers["pve1"] = []WorkloadInfo{{VMID: 101, Name: "jellyfin", Status: "running", Tags: "10.10.10.50"}}
	api.vms["pve1"] = []WorkloadInfo{{VMID: 300, Name: "homeassistant", Status: "running"}}
	api.containers["pve2"] = []WorkloadInfo{{VMID: 200, Name: "nextcloud", Status: "stopped"}}

	got, err := NewLister(api, 2).ListWorkloads(context.Background())
	require.NoError(t, err)

	want := []domain.Workload{
		{ID: 101, Name: "jellyfin", Status: "running", Kind: domain.WorkloadKindContainer, Node: "pve1", Tags: []string{"10.10.10.50"}},
		{ID: 300, Name: "homeassistant", Status: "running", Kind: domain.WorkloadKindVM, Node: "pve1"},
		{ID: 200, Name: "nextcloud", Status: "stopped", Kind: domain.WorkloadKindContainer, Node: "pve2"},
	}
	assert.Equal(t, want, got)
}

func TestLister_NodeFailureIsOmitted(t *testing.T) {
	api := newFakeAPI()
	api.nodes = []NodeInfo{{Node: "pve1"}, {Node: "pve2"}}
	api.containers["pve1"] = []WorkloadInfo{{VMID: 101, Name: "jellyfin", Status: "running"}}
	api.containers["pve2"] = []WorkloadInfo{{VMID: 200, Name: "nextcloud", Status: "running"}}
	api.rosterErr["pve2"] = errors.New("595 no route to host")

	got, err := NewLister(api, 1).ListWorkloads(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 101, got[0].ID)
}

func TestLister_OfflineNodesAreSkipped(t *testing.T) {
	api := newFakeAPI()
	api.nodes = []NodeInfo{{Node: "pve1", Status: "offline"}}

	got, err := NewLister(api, 1).ListWorkloads(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, []string{"nodes"}, api.Calls())
}

func TestLister_NodeListFailureFails(t *testing.T) {
	api := newFakeAPI()
	api.nodesErr = errors.New("401 authentication failure")

	_, err := NewLister(api, 1).ListWorkloads(context.Background())
	assert.ErrorContains(t, err, "list nodes")
}

func TestMockPlatform_Roster(t *testing.T) {
	mock := NewMockPlatform()
	ctx := context.Background()

	workloads, err := NewLister(mock, 1).ListWorkloads(ctx)
	require.NoError(t, err)
	require.Len(t, workloads, 11)
	assert.Equal(t, "immich", workloads[0].Name)
	assert.Equal(t, 100, workloads[0].ID)
	assert.Equal(t, "portainer", workloads[10].Name)
	for _, w := range workloads {
		assert.Equal(t, MockNodeName, w.Node)
		assert.Equal(t, domain.WorkloadKindContainer, w.Kind)
	}

	r := NewResolver(mock, 0)
	assert.Equal(t, MockAddress, r.ResolveAddress(ctx, workloads[3]))
}

func TestMockPlatform_StartWorkload(t *testing.T) {
	mock := NewMockPlatform()
	ctx := context.Background()
	mock.Stop(101)

	list, err := mock.Containers(ctx, MockNodeName)
	require.NoError(t, err)
	assert.Equal(t, domain.WorkloadStatusStopped, list[1].Status)

	require.NoError(t, mock.StartWorkload(ctx, MockNodeName, domain.WorkloadKindContainer, 101))
	list, err = mock.Containers(ctx, MockNodeName)
	require.NoError(t, err)
	assert.Equal(t, domain.WorkloadStatusRunning, list[1].Status)

	assert.Error(t, mock.StartWorkload(ctx, MockNodeName, domain.WorkloadKindContainer, 999))
}
