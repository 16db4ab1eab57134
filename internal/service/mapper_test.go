package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dashv/internal/domain"
)

var fixedNow = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

func newTestMapper() *Mapper {
	m := NewMapper(nil)
	m.now = func() time.Time { return fixedNow }
	return m
}

func TestNormalizeName(t *testing.T) {
	tests := map[string]string{
		"jellyfin-lxc":      "jellyfin",
		"Sonarr-Docker":     "Sonarr",
		"lxc-pihole":        "pihole",
		"LXC-grafana-LXC":   "grafana",
		"immich-container":  "immich",
		" homarr ":          "homarr",
		"docker-lxc-things": "docker-lxc-things",
		"-lxc":              "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeName(in), in)
	}
}

func TestMapWorkload_SinglePortWithTagAddress(t *testing.T) {
	w := domain.Workload{ID: 101, Name: "jellyfin-lxc", Status: "running", Kind: domain.WorkloadKindContainer, Node: "pve1", Tags: []string{"10.10.10.50", "media"}}

	got := newTestMapper().MapWorkload(w, "10.10.10.50")

	require.Len(t, got, 1)
	assert.Equal(t, domain.Service{
		ID:            "101-8096",
		Name:          "jellyfin",
		URL:           "http://10.10.10.50:8096",
		Icon:          "🎬",
		Description:   "LXC Container - running",
		ContainerName: "jellyfin-lxc",
		ContainerKind: domain.WorkloadKindContainer,
		ContainerID:   101,
		Node:          "pve1",
		Status:        "running",
		Port:          8096,
		IP:            "10.10.10.50",
		LastUpdated:   fixedNow,
		Origin:        domain.OriginDiscovered,
	}, got[0])
}

func TestMapWorkload_MultiplePorts(t *testing.T) {
	w := domain.Workload{ID: 200, Name: "nextcloud", Status: "running", Kind: domain.WorkloadKindContainer, Node: "pve1"}

	got := newTestMapper().MapWorkload(w, "192.168.1.20")

	require.Len(t, got, 2)
	assert.Equal(t, "200-80", got[0].ID)
	assert.Equal(t, "200-443", got[1].ID)
	for _, s := range got {
		assert.Equal(t, "192.168.1.20", s.IP)
	}
	assert.Equal(t, "http://192.168.1.20:443", got[1].URL)
}

func TestMapWorkload_NoPatternMatches(t *testing.T) {
	w := domain.Workload{ID: 42, Name: "random-box", Status: "stopped", Kind: domain.WorkloadKindVM, Node: "pve2"}

	got := newTestMapper().MapWorkload(w, domain.AddressUnknown)

	require.Len(t, got, 1)
	assert.Equal(t, 80, got[0].Port)
	assert.Equal(t, domain.DefaultIcon, got[0].Icon)
	assert.Equal(t, "#", got[0].URL)
	assert.Equal(t, "QEMU VM - stopped", got[0].Description)
}

func TestMapWorkload_EmptyNormalizedNameFallsBack(t *testing.T) {
	w := domain.Workload{ID: 7, Name: "-lxc", Status: "running", Kind: domain.WorkloadKindContainer}

	got := newTestMapper().MapWorkload(w, "10.0.0.7")

	require.Len(t, got, 1)
	assert.Equal(t, "-lxc", got[0].Name)
	assert.Equal(t, "7-80", got[0].ID)
}

func TestMapWorkload_IDIsDeterministic(t *testing.T) {
	w := domain.Workload{ID: 105, Name: "qbittorrent", Status: "running", Kind: domain.WorkloadKindContainer}
	m := newTestMapper()

	first := m.MapWorkload(w, "10.0.0.5")
	second := m.MapWorkload(w, "10.0.0.5")

	assert.Equal(t, first, second)
	assert.Equal(t, "105-8080", first[0].ID)
}

func TestMapWorkload_CustomCatalog(t *testing.T) {
	catalog := &domain.Catalog{
		PortRules:    []domain.PortRule{{Pattern: "forgejo", Ports: []int{3000, 2222}}},
		IconRules:    []domain.IconRule{{Pattern: "forgejo", Icon: "🦊"}},
		DefaultPorts: []int{8080},
		DefaultIcon:  "❔",
	}
	m := NewMapper(catalog)

	got := m.MapWorkload(domain.Workload{ID: 1, Name: "Forgejo-Docker"}, "10.0.0.1")
	require.Len(t, got, 2)
	assert.Equal(t, "🦊", got[0].Icon)
	assert.Equal(t, "Forgejo", got[0].Name)

	got = m.MapWorkload(domain.Workload{ID: 2, Name: "jellyfin"}, "10.0.0.2")
	require.Len(t, got, 1)
	assert.Equal(t, 8080, got[0].Port)
	assert.Equal(t, "❔", got[0].Icon)
}
