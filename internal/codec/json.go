package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"dashv/internal/domain"
)

// JSONCodec handles JSON export
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// ContentType returns the MIME type of the output
func (c *JSONCodec) ContentType() string {
	return "application/json"
}

// Export writes the services as an indented JSON document
func (c *JSONCodec) Export(services []domain.Service, w io.Writer) error {
	if services == nil {
		services = []domain.Service{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(ServiceDocument{Services: services}); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
