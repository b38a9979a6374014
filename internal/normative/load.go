package normative

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads and parses a normative dataset YAML file, then builds
// an immutable Store from it. Grounded on the teacher's
// cmd/aleutian/config loader idiom (os.ReadFile + yaml.Unmarshal).
func LoadFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading normative dataset %s: %w", path, err)
	}
	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("parsing normative dataset %s: %w", path, err)
	}
	if ds.Name == "" {
		return nil, fmt.Errorf("normative dataset %s: name is required", path)
	}
	return NewStore(ds)
}
