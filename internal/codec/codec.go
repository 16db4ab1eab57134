package codec

import (
	"fmt"
	"io"
	"strings"

	"dashv/internal/domain"
)

// Exporter writes a service list in some format
type Exporter interface {
	Export(services []domain.Service, w io.Writer) error
	Format() string
	ContentType() string
}

// ServiceDocument is the envelope of an exported service list
type ServiceDocument struct {
	Services []domain.Service `json:"services" yaml:"services"`
}

// ExporterFor returns the exporter for a format name. An empty name
// selects JSON.
func ExporterFor(format string) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return NewJSONCodec(), nil
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}
