package codec

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"dashv/internal/domain"
)

// YAMLCodec handles YAML export and catalog import
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// ContentType returns the MIME type of the output
func (c *YAMLCodec) ContentType() string {
	return "application/x-yaml"
}

// Export writes the services as a YAML document
func (c *YAMLCodec) Export(services []domain.Service, w io.Writer) error {
	if services == nil {
		services = []domain.Service{}
	}
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(ServiceDocument{Services: services}); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return nil
}

// ParseCatalog reads a pattern catalog. Tables missing from the document
// are taken from the built-in catalog.
func (c *YAMLCodec) ParseCatalog(r io.Reader) (*domain.Catalog, error) {
	var doc domain.Catalog
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}

	defaults := domain.DefaultCatalog()
	if doc.PortRules == nil {
		doc.PortRules = defaults.PortRules
	}
	if doc.IconRules == nil {
		doc.IconRules = defaults.IconRules
	}
	if doc.DefaultPorts == nil {
		doc.DefaultPorts = defaults.DefaultPorts
	}
	if doc.DefaultIcon == "" {
		doc.DefaultIcon = defaults.DefaultIcon
	}

	doc.Normalize()
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return &doc, nil
}
