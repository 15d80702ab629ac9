// Package catalog serves the curated, static resource listing per
// department. The catalog ships embedded in the binary; the dynamic
// equivalent lives in the retrieval index.
package catalog

import (
	_ "embed"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed resources.yaml
var resourcesYAML []byte

// Entry is one curated learning resource.
type Entry struct {
	Title    string `yaml:"title" json:"title"`
	Platform string `yaml:"platform" json:"platform"`
	URL      string `yaml:"url" json:"url"`
	Level    string `yaml:"level" json:"level"`
}

type department struct {
	Name      string  `yaml:"name"`
	Resources []Entry `yaml:"resources"`
}

type file struct {
	Departments []department `yaml:"departments"`
}

// Catalog holds the loaded listing, keyed by department name.
type Catalog struct {
	byDepartment map[string][]Entry
}

// Load parses the embedded catalog.
func Load() (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(resourcesYAML, &f); err != nil {
		return nil, err
	}

	c := &Catalog{byDepartment: make(map[string][]Entry, len(f.Departments))}
	for _, d := range f.Departments {
		c.byDepartment[d.Name] = d.Resources
	}
	return c, nil
}

// Resources returns the curated entries for a department, or an empty slice
// for unknown departments.
func (c *Catalog) Resources(department string) []Entry {
	entries := c.byDepartment[department]
	if entries == nil {
		return []Entry{}
	}
	return entries
}

// Departments returns all known department names, sorted.
func (c *Catalog) Departments() []string {
	names := make([]string, 0, len(c.byDepartment))
	for name := range c.byDepartment {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
