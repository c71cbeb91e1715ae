// Package flows loads business process flow definitions from YAML
// configuration. Definitions are validated on load and seeded into the
// flow repository at service startup.
package flows

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cfs-platform/transaction-service/internal/domain"
)

type flowFile struct {
	Flows []domain.Flow `yaml:"flows"`
}

// Parse decodes and validates flow definitions from YAML
func Parse(data []byte) ([]*domain.Flow, error) {
	var file flowFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode flow definitions: %w", err)
	}

	out := make([]*domain.Flow, 0, len(file.Flows))
	for i := range file.Flows {
		flow := file.Flows[i]
		if err := flow.Validate(); err != nil {
			return nil, err
		}
		out = append(out, &flow)
	}

	return out, nil
}

// Load reads flow definitions from a YAML file
func Load(path string) ([]*domain.Flow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read flow definitions %s: %w", path, err)
	}
	return Parse(data)
}
