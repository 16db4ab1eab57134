package adapter

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/netip"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"dashv/internal/domain"
)

// errNoAddress is returned by a strategy that ran but found nothing
var errNoAddress = errors.New("no address found")

// AddressStrategy is one step of the address resolution chain
type AddressStrategy interface {
	// Name identifies the strategy in logs
	Name() string

	// Applies reports whether the strategy can be used for the workload
	Applies(w domain.Workload) bool

	// Resolve returns a usable IPv4 address or an error
	Resolve(ctx context.Context, w domain.Workload) (string, error)
}

// Resolver walks an ordered list of strategies and returns the first
// address found. It never fails: unresolved workloads get
// domain.AddressUnknown.
type Resolver struct {
	strategies []AddressStrategy
	timeout    time.Duration
}

// NewResolver creates a resolver with the default chain: tag scan,
// container interface config, container runtime status, VM guest agent.
// timeout bounds each strategy call.
func NewResolver(api PlatformAPI, timeout time.Duration) *Resolver {
	return NewResolverWithStrategies(timeout,
		TagStrategy{},
		InterfaceConfigStrategy{API: api},
		RuntimeStatusStrategy{API: api},
		GuestAgentStrategy{API: api},
	)
}

// NewResolverWithStrategies creates a resolver over a custom chain
func NewResolverWithStrategies(timeout time.Duration, strategies ...AddressStrategy) *Resolver {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Resolver{strategies: strategies, timeout: timeout}
}

// ResolveAddress implements AddressResolver
func (r *Resolver) ResolveAddress(ctx context.Context, w domain.Workload) string {
	for _, s := range r.strategies {
		if ctx.Err() != nil {
			break
		}
		if !s.Applies(w) {
			continue
		}
		addr, err := r.try(ctx, s, w)
		if err != nil {
			if !errors.Is(err, errNoAddress) {
				log.Printf("Proxmox: %s lookup for %s (%d) failed: %v", s.Name(), w.Name, w.ID, err)
			}
			continue
		}
		return addr
	}
	log.Printf("Proxmox: no address found for %s (%d), marking as %s", w.Name, w.ID, domain.AddressUnknown)
	return domain.AddressUnknown
}

func (r *Resolver) try(ctx context.Context, s AddressStrategy, w domain.Workload) (addr string, err error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()

	addr, err = s.Resolve(ctx, w)
	if err == nil && addr == "" {
		err = errNoAddress
	}
	return addr, err
}

var pinnedTagPattern = regexp.MustCompile(`^10\.\d+\.\d+\.\d+$`)

// TagStrategy picks an operator-pinned 10.x.x.x address from the tags.
// It makes no API calls.
type TagStrategy struct{}

// Name implements AddressStrategy
func (TagStrategy) Name() string { return "tag" }

// Applies implements AddressStrategy
func (TagStrategy) Applies(w domain.Workload) bool { return len(w.Tags) > 0 }

// Resolve implements AddressStrategy
func (TagStrategy) Resolve(_ context.Context, w domain.Workload) (string, error) {
	for _, tag := range w.Tags {
		tag = strings.TrimSpace(tag)
		if !pinnedTagPattern.MatchString(tag) {
			continue
		}
		if isUsableIPv4(tag) {
			return tag, nil
		}
	}
	return "", errNoAddress
}

var interfaceIPPattern = regexp.MustCompile(`(?i)(?:^|,)ip=([0-9.]+)(?:/\d+)?`)

// InterfaceConfigStrategy reads static ip= assignments from the
// container's net0..netN configuration keys
type InterfaceConfigStrategy struct {
	API PlatformAPI
}

// Name implements AddressStrategy
func (InterfaceConfigStrategy) Name() string { return "interface config" }

// Applies implements AddressStrategy
func (InterfaceConfigStrategy) Applies(w domain.Workload) bool { return w.IsContainer() }

// Resolve implements AddressStrategy
func (s InterfaceConfigStrategy) Resolve(ctx context.Context, w domain.Workload) (string, error) {
	cfg, err := s.API.ContainerConfig(ctx, w.Node, w.ID)
	if err != nil {
		return "", err
	}

	for _, key := range netKeys(cfg) {
		value, ok := cfg[key].(string)
		if !ok {
			continue
		}
		m := interfaceIPPattern.FindStringSubmatch(value)
		if m == nil {
			continue
		}
		if isUsableIPv4(m[1]) {
			return m[1], nil
		}
	}
	return "", errNoAddress
}

// netKeys returns the netN keys of a config in numeric order
func netKeys(cfg map[string]any) []string {
	type indexed struct {
		key string
		n   int
	}
	var keys []indexed
	for key := range cfg {
		suffix, ok := strings.CutPrefix(key, "net")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(suffix)
		if err != nil {
			continue
		}
		keys = append(keys, indexed{key: key, n: n})
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].n < keys[j].n })

	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.key
	}
	return out
}

// RuntimeStatusStrategy reads the addresses a running container reports
type RuntimeStatusStrategy struct {
	API PlatformAPI
}

// Name implements AddressStrategy
func (RuntimeStatusStrategy) Name() string { return "runtime status" }

// Applies implements AddressStrategy
func (RuntimeStatusStrategy) Applies(w domain.Workload) bool { return w.IsContainer() }

// Resolve implements AddressStrategy
func (s RuntimeStatusStrategy) Resolve(ctx context.Context, w domain.Workload) (string, error) {
	status, err := s.API.ContainerStatus(ctx, w.Node, w.ID)
	if err != nil {
		return "", err
	}

	if ip, ok := status["ip"].(string); ok && isUsableIPv4(ip) {
		return ip, nil
	}

	list, _ := status["ip-addresses"].([]any)
	for _, entry := range list {
		var candidate string
		switch v := entry.(type) {
		case string:
			candidate = v
		case map[string]any:
			if t, ok := v["ip-address-type"].(string); ok && t != "ipv4" {
				continue
			}
			candidate, _ = v["ip-address"].(string)
		}
		if isUsableIPv4(candidate) {
			return candidate, nil
		}
	}
	return "", errNoAddress
}

// GuestAgentStrategy asks the QEMU guest agent of a VM
type GuestAgentStrategy struct {
	API PlatformAPI
}

// Name implements AddressStrategy
func (GuestAgentStrategy) Name() string { return "guest agent" }

// Applies implements AddressStrategy
func (GuestAgentStrategy) Applies(w domain.Workload) bool { return w.IsVM() }

// Resolve implements AddressStrategy
func (s GuestAgentStrategy) Resolve(ctx context.Context, w domain.Workload) (string, error) {
	ifaces, err := s.API.GuestInterfaces(ctx, w.Node, w.ID)
	if err != nil {
		return "", err
	}
	for _, iface := range ifaces {
		for _, addr := range iface.IPAddresses {
			if addr.Type != "" && addr.Type != "ipv4" {
				continue
			}
			if isUsableIPv4(addr.Address) {
				return addr.Address, nil
			}
		}
	}
	return "", errNoAddress
}

// isUsableIPv4 accepts well-formed, non-loopback, specified IPv4 addresses
func isUsableIPv4(s string) bool {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return addr.Is4() && !addr.IsLoopback() && !addr.IsUnspecified()
}
