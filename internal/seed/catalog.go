package seed

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yml
var catalogYAML []byte

// Category groups related skills.
type Category struct {
	Name   string   `yaml:"name"`
	Skills []string `yaml:"skills"`
}

// Catalog is the pool of names the seeder draws from.
type Catalog struct {
	Categories []Category `yaml:"categories"`
	Locations  []string   `yaml:"locations"`
	Feedback   []string   `yaml:"feedback"`
}

// Skills flattens every category.
func (c *Catalog) Skills() []string {
	var out []string
	for _, cat := range c.Categories {
		out = append(out, cat.Skills...)
	}
	return out
}

// LoadCatalog parses the embedded catalog.
func LoadCatalog() (*Catalog, error) {
	return ParseCatalog(catalogYAML)
}

// ParseCatalog parses a catalog document and rejects one without skills or locations.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(c.Skills()) == 0 {
		return nil, fmt.Errorf("catalog has no skills")
	}
	if len(c.Locations) == 0 {
		return nil, fmt.Errorf("catalog has no locations")
	}
	return &c, nil
}
