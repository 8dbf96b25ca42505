// Package catalog loads and validates the seed component catalog.
package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/SigNoz/pcparts-store/internal/models"
)

//go:embed catalog.json
var seed []byte

// Default returns the embedded seed catalog
func Default() ([]models.Component, error) {
	return Load(bytes.NewReader(seed))
}

// LoadFile reads a catalog from a JSON file
func LoadFile(path string) ([]models.Component, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes a JSON array of components and validates every entry.
// Ids must be unique.
func Load(r io.Reader) ([]models.Component, error) {
	var components []models.Component
	if err := json.NewDecoder(r).Decode(&components); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	seen := make(map[string]struct{}, len(components))
	for i := range components {
		c := &components[i]
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("invalid catalog entry %d: %w", i, err)
		}
		if _, dup := seen[c.ID]; dup {
			return nil, fmt.Errorf("duplicate component id %q", c.ID)
		}
		seen[c.ID] = struct{}{}
	}
	return components, nil
}
