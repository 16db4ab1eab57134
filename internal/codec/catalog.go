package codec

import (
	"fmt"
	"os"

	"dashv/internal/domain"
)

// LoadCatalog reads a catalog file. An empty path returns the built-in
// catalog.
func LoadCatalog(path string) (*domain.Catalog, error) {
	if path == "" {
		return domain.DefaultCatalog(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	catalog, err := NewYAMLCodec().ParseCatalog(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return catalog, nil
}
