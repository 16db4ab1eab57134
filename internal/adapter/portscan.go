package adapter

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/netip"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"

	nmap "github.com/Ullaakut/nmap/v3"
)

// ErrNmapUnavailable is returned when the nmap binary is not installed
var ErrNmapUnavailable = errors.New("nmap binary not found in PATH")

// PortStatus is the observed state of one port of a service address
type PortStatus struct {
	Port     int    `json:"port"`
	Protocol string `json:"protocol"`
	State    string `json:"state"`
	Service  string `json:"service,omitempty"`
	Product  string `json:"product,omitempty"`
	Open     bool   `json:"open"`
}

// PortScanner probes service addresses with nmap
type PortScanner struct {
	timeout          time.Duration
	serviceDetection bool
	lookPath         func(string) (string, error)
}

// PortScanOption configures a PortScanner
type PortScanOption func(*PortScanner)

// WithScanTimeout bounds a whole scan
func WithScanTimeout(d time.Duration) PortScanOption {
	return func(s *PortScanner) {
		s.timeout = d
	}
}

// WithServiceDetection enables service version detection (-sV)
func WithServiceDetection(enabled bool) PortScanOption {
	return func(s *PortScanner) {
		s.serviceDetection = enabled
	}
}

// NewPortScanner creates a scanner
func NewPortScanner(opts ...PortScanOption) *PortScanner {
	s := &PortScanner{
		timeout:  time.Minute,
		lookPath: exec.LookPath,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Available reports whether nmap can be run
func (s *PortScanner) Available() bool {
	_, err := s.lookPath("nmap")
	return err == nil
}

// Scan checks the given TCP ports of address. Host discovery is skipped
// since the address is already known to belong to a workload.
func (s *PortScanner) Scan(ctx context.Context, address string, ports []int) ([]PortStatus, error) {
	if !s.Available() {
		return nil, ErrNmapUnavailable
	}
	if _, err := netip.ParseAddr(address); err != nil {
		return nil, fmt.Errorf("invalid address %q: %w", address, err)
	}
	portList, err := formatPorts(ports)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	opts := []nmap.Option{
		nmap.WithTargets(address),
		nmap.WithPorts(portList),
		nmap.WithSkipHostDiscovery(),
	}
	if s.serviceDetection {
		opts = append(opts, nmap.WithServiceInfo())
	}

	scanner, err := nmap.NewScanner(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create scanner: %w", err)
	}

	log.Printf("Nmap: scanning %s ports %s", address, portList)
	result, warnings, err := scanner.Run()
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	if warnings != nil && len(*warnings) > 0 {
		log.Printf("Nmap: warnings for %s: %v", address, *warnings)
	}

	return portStatuses(result, address, ports), nil
}

// portStatuses flattens a scan result for one address. Requested ports
// nmap did not report are returned as "unknown".
func portStatuses(result *nmap.Run, address string, requested []int) []PortStatus {
	seen := make(map[int]PortStatus)
	if result != nil {
		for _, host := range result.Hosts {
			if !hostHasAddress(host, address) {
				continue
			}
			for _, p := range host.Ports {
				status := PortStatus{
					Port:     int(p.ID),
					Protocol: p.Protocol,
					State:    p.State.State,
					Service:  p.Service.Name,
					Product:  strings.TrimSpace(p.Service.Product + " " + p.Service.Version),
					Open:     p.State.State == "open",
				}
				seen[status.Port] = status
			}
		}
	}

	for _, port := range requested {
		if _, ok := seen[port]; !ok {
			seen[port] = PortStatus{Port: port, Protocol: "tcp", State: "unknown"}
		}
	}

	out := make([]PortStatus, 0, len(seen))
	for _, st := range seen {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Port < out[j].Port })
	return out
}

func hostHasAddress(host nmap.Host, address string) bool {
	if len(host.Addresses) == 0 {
		return true
	}
	for _, a := range host.Addresses {
		if a.Addr == address {
			return true
		}
	}
	return false
}

func formatPorts(ports []int) (string, error) {
	if len(ports) == 0 {
		return "", errors.New("no ports to scan")
	}
	parts := make([]string, 0, len(ports))
	for _, p := range ports {
		if p < 1 || p > 65535 {
			return "", fmt.Errorf("invalid port number: %d", p)
		}
		parts = append(parts, strconv.Itoa(p))
	}
	return strings.Join(parts, ","), nil
}
