package service

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"dashv/internal/domain"
)

var nameAffixes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)-docker$`),
	regexp.MustCompile(`(?i)-lxc$`),
	regexp.MustCompile(`(?i)-container$`),
	regexp.MustCompile(`(?i)^lxc-`),
}

// NormalizeName strips the decorations operators commonly add to workload
// names (-docker, -lxc, -container suffixes and an lxc- prefix)
func NormalizeName(raw string) string {
	name := raw
	for _, re := range nameAffixes {
		name = re.ReplaceAllString(name, "")
	}
	return strings.TrimSpace(name)
}

// Mapper turns workloads into services using a catalog
type Mapper struct {
	catalog *domain.Catalog
	now     func() time.Time
}

// NewMapper creates a mapper. A nil catalog uses the built-in tables.
func NewMapper(catalog *domain.Catalog) *Mapper {
	if catalog == nil {
		catalog = domain.DefaultCatalog()
	}
	return &Mapper{catalog: catalog, now: time.Now}
}

// Catalog returns the tables the mapper uses
func (m *Mapper) Catalog() *domain.Catalog {
	return m.catalog
}

// MapWorkload returns one service per port the workload's name maps to.
// address may be domain.AddressUnknown, in which case the service URL is
// the placeholder.
func (m *Mapper) MapWorkload(w domain.Workload, address string) []domain.Service {
	name := NormalizeName(w.Name)
	if name == "" {
		name = w.Name
	}
	if address == "" {
		address = domain.AddressUnknown
	}

	key := strings.ToLower(name)
	ports := m.catalog.MatchPorts(key)
	icon := m.catalog.MatchIcon(key)
	now := m.now()

	services := make([]domain.Service, 0, len(ports))
	for _, port := range ports {
		services = append(services, domain.Service{
			ID:            domain.ServiceID(w.ID, port),
			Name:          name,
			URL:           domain.ServiceURL(address, port),
			Icon:          icon,
			Description:   describe(w),
			ContainerName: w.Name,
			ContainerKind: w.Kind,
			ContainerID:   w.ID,
			Node:          w.Node,
			Status:        w.Status,
			Port:          port,
			IP:            address,
			LastUpdated:   now,
			Origin:        domain.OriginDiscovered,
		})
	}
	return services
}

func describe(w domain.Workload) string {
	kind := "LXC Container"
	if w.IsVM() {
		kind = "QEMU VM"
	}
	return fmt.Sprintf("%s - %s", kind, w.Status)
}
