package domain

import (
	"fmt"
	"strings"
)

// PortRule maps a name pattern to the ports its service listens on
type PortRule struct {
	Pattern string `json:"pattern" yaml:"pattern"`
	Ports   []int  `json:"ports" yaml:"ports"`
}

// IconRule maps a name pattern to an icon glyph
type IconRule struct {
	Pattern string `json:"pattern" yaml:"pattern"`
	Icon    string `json:"icon" yaml:"icon"`
}

// Catalog holds the ordered pattern tables used to turn workload names into
// services. Lookup is first substring match wins, so order matters: more
// specific patterns must come before the patterns they contain.
type Catalog struct {
	PortRules    []PortRule `json:"ports" yaml:"ports"`
	IconRules    []IconRule `json:"icons" yaml:"icons"`
	DefaultPorts []int      `json:"default_ports" yaml:"default_ports"`
	DefaultIcon  string     `json:"default_icon" yaml:"default_icon"`
}

// MatchPorts returns the port list for a lower-cased service name
func (c *Catalog) MatchPorts(name string) []int {
	for _, rule := range c.PortRules {
		if strings.Contains(name, rule.Pattern) {
			return rule.Ports
		}
	}
	return c.DefaultPorts
}

// MatchIcon returns the icon glyph for a lower-cased service name
func (c *Catalog) MatchIcon(name string) string {
	for _, rule := range c.IconRules {
		if strings.Contains(name, rule.Pattern) {
			return rule.Icon
		}
	}
	return c.DefaultIcon
}

// KnownPorts returns every distinct port in the catalog, in table order
func (c *Catalog) KnownPorts() []int {
	seen := make(map[int]bool)
	var ports []int
	add := func(p int) {
		if !seen[p] {
			seen[p] = true
			ports = append(ports, p)
		}
	}
	for _, p := range c.DefaultPorts {
		add(p)
	}
	for _, rule := range c.PortRules {
		for _, p := range rule.Ports {
			add(p)
		}
	}
	return ports
}

// Validate checks the catalog is usable
func (c *Catalog) Validate() error {
	if len(c.DefaultPorts) == 0 {
		return fmt.Errorf("default port list is empty")
	}
	for _, p := range c.DefaultPorts {
		if !validPort(p) {
			return fmt.Errorf("invalid default port %d", p)
		}
	}
	if c.DefaultIcon == "" {
		return fmt.Errorf("default icon is empty")
	}
	for i, rule := range c.PortRules {
		if rule.Pattern == "" {
			return fmt.Errorf("port rule %d: empty pattern", i)
		}
		if len(rule.Ports) == 0 {
			return fmt.Errorf("port rule %q: no ports", rule.Pattern)
		}
		for _, p := range rule.Ports {
			if !validPort(p) {
				return fmt.Errorf("port rule %q: invalid port %d", rule.Pattern, p)
			}
		}
	}
	for i, rule := range c.IconRules {
		if rule.Pattern == "" {
			return fmt.Errorf("icon rule %d: empty pattern", i)
		}
		if rule.Icon == "" {
			return fmt.Errorf("icon rule %q: empty icon", rule.Pattern)
		}
	}
	return nil
}

// Normalize lower-cases patterns so lookups against lower-cased names match
func (c *Catalog) Normalize() {
	for i := range c.PortRules {
		c.PortRules[i].Pattern = strings.ToLower(strings.TrimSpace(c.PortRules[i].Pattern))
	}
	for i := range c.IconRules {
		c.IconRules[i].Pattern = strings.ToLower(strings.TrimSpace(c.IconRules[i].Pattern))
	}
}

func validPort(p int) bool {
	return p > 0 && p <= 65535
}

// DefaultIcon is the generic glyph for unrecognized services
const DefaultIcon = "🔧"

// DefaultCatalog returns the built-in tables for common self-hosted apps.
// "nginxproxymanager" contains "nginx" so it is listed first.
func DefaultCatalog() *Catalog {
	return &Catalog{
		PortRules: []PortRule{
			{Pattern: "immich", Ports: []int{2283}},
			{Pattern: "jellyfin", Ports: []int{8096}},
			{Pattern: "plex", Ports: []int{32400}},
			{Pattern: "radarr", Ports: []int{7878}},
			{Pattern: "sonarr", Ports: []int{8989}},
			{Pattern: "lidarr", Ports: []int{8686}},
			{Pattern: "prowlarr", Ports: []int{9696}},
			{Pattern: "qbittorrent", Ports: []int{8080}},
			{Pattern: "transmission", Ports: []int{9091}},
			{Pattern: "nextcloud", Ports: []int{80, 443}},
			{Pattern: "bitwarden", Ports: []int{80}},
			{Pattern: "vaultwarden", Ports: []int{80}},
			{Pattern: "grafana", Ports: []int{3000}},
			{Pattern: "prometheus", Ports: []int{9090}},
			{Pattern: "portainer", Ports: []int{9000}},
			{Pattern: "heimdall", Ports: []int{80, 443}},
			{Pattern: "homarr", Ports: []int{7575}},
			{Pattern: "homepage", Ports: []int{3000}},
			{Pattern: "nginxproxymanager", Ports: []int{81}},
			{Pattern: "nginx", Ports: []int{80, 443}},
			{Pattern: "pihole", Ports: []int{80}},
			{Pattern: "adguard", Ports: []int{3000}},
			{Pattern: "homeassistant", Ports: []int{8123}},
			{Pattern: "hassio", Ports: []int{8123}},
			{Pattern: "homebridge", Ports: []int{8581}},
			{Pattern: "n8n", Ports: []int{5678}},
			{Pattern: "paperless", Ports: []int{8000}},
			{Pattern: "metube", Ports: []int{8081}},
			{Pattern: "librespeed", Ports: []int{80}},
			{Pattern: "cloudflare", Ports: []int{80}},
			{Pattern: "magicmirror", Ports: []int{8080}},
			{Pattern: "patchmon", Ports: []int{3000}},
		},
		IconRules: []IconRule{
			{Pattern: "immich", Icon: "📸"},
			{Pattern: "jellyfin", Icon: "🎬"},
			{Pattern: "plex", Icon: "▶️"},
			{Pattern: "radarr", Icon: "🎥"},
			{Pattern: "sonarr", Icon: "📺"},
			{Pattern: "lidarr", Icon: "🎵"},
			{Pattern: "prowlarr", Icon: "🔍"},
			{Pattern: "qbittorrent", Icon: "⬇️"},
			{Pattern: "transmission", Icon: "⬇️"},
			{Pattern: "nextcloud", Icon: "☁️"},
			{Pattern: "bitwarden", Icon: "🔐"},
			{Pattern: "vaultwarden", Icon: "🔐"},
			{Pattern: "grafana", Icon: "📊"},
			{Pattern: "prometheus", Icon: "📈"},
			{Pattern: "portainer", Icon: "🐳"},
			{Pattern: "heimdall", Icon: "🏠"},
			{Pattern: "homarr", Icon: "🏠"},
			{Pattern: "homepage", Icon: "🏠"},
			{Pattern: "nginxproxymanager", Icon: "🔀"},
			{Pattern: "nginx", Icon: "🌐"},
			{Pattern: "pihole", Icon: "🛡️"},
			{Pattern: "adguard", Icon: "🛡️"},
			{Pattern: "homeassistant", Icon: "🏡"},
			{Pattern: "hassio", Icon: "🏡"},
			{Pattern: "homebridge", Icon: "🏠"},
			{Pattern: "n8n", Icon: "⚙️"},
			{Pattern: "paperless", Icon: "📄"},
			{Pattern: "metube", Icon: "📹"},
			{Pattern: "librespeed", Icon: "🚀"},
			{Pattern: "cloudflare", Icon: "☁️"},
			{Pattern: "magicmirror", Icon: "🪞"},
			{Pattern: "patchmon", Icon: "🔧"},
			{Pattern: "ubuntu", Icon: "🐧"},
			{Pattern: "debian", Icon: "🌀"},
			{Pattern: "server", Icon: "🖥️"},
		},
		DefaultPorts: []int{80},
		DefaultIcon:  DefaultIcon,
	}
}
