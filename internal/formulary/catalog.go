// Package formulary holds the catalog of common gout medications offered
// as presets when a medication is added.
package formulary

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Entry is one common medication
type Entry struct {
	Name          string `json:"name" yaml:"name"`
	Category      string `json:"category" yaml:"category"`
	DefaultDosage string `json:"default_dosage" yaml:"default_dosage"`
	Info          string `json:"info" yaml:"info"`
}

// Catalog is a read-only list of common medications
type Catalog struct {
	entries []Entry
}

// Load parses the embedded catalog
func Load() (*Catalog, error) {
	var entries []Entry
	if err := yaml.Unmarshal(catalogYAML, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse medication catalog: %w", err)
	}
	for i, e := range entries {
		if e.Name == "" || e.DefaultDosage == "" {
			return nil, fmt.Errorf("catalog entry %d: name and default_dosage are required", i)
		}
	}
	return &Catalog{entries: entries}, nil
}

// All returns every entry in catalog order
func (c *Catalog) All() []Entry {
	return append([]Entry(nil), c.entries...)
}

// Lookup finds an entry by name, ignoring case
func (c *Catalog) Lookup(name string) (Entry, bool) {
	name = strings.TrimSpace(name)
	for _, e := range c.entries {
		if strings.EqualFold(e.Name, name) {
			return e, true
		}
	}
	return Entry{}, false
}
