package predict

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrCatalog wraps every failure to read or parse a disease catalog.
var ErrCatalog = errors.New("invalid disease catalog")

// DiseaseInfo is the descriptive material shown next to a prediction.
type DiseaseInfo struct {
	Description string   `yaml:"description" msgpack:"description"`
	Precautions []string `yaml:"precautions" msgpack:"precautions"`
	Medications []string `yaml:"medications" msgpack:"medications"`
	Workout     []string `yaml:"workout" msgpack:"workout"`
	Diet        []string `yaml:"diet" msgpack:"diet"`
}

// Catalog maps disease names to their information.
type Catalog map[string]DiseaseInfo

// LoadCatalog reads a YAML catalog keyed by disease name.
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalog, err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes YAML catalog content.
func ParseCatalog(data []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalog, err)
	}
	if c == nil {
		c = Catalog{}
	}
	return c, nil
}

// Lookup returns a copy of the entry for disease, or nil.
func (c Catalog) Lookup(disease string) *DiseaseInfo {
	info, ok := c[disease]
	if !ok {
		return nil
	}
	return &info
}
