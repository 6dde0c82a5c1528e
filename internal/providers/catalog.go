package providers

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Model is one catalog entry. Zero dimensions mean the provider default.
type Model struct {
	Name       string `yaml:"name"`
	Provider   Tag    `yaml:"provider"`
	Kind       Kind   `yaml:"kind"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Duration   int    `yaml:"duration"`
	Resolution string `yaml:"resolution"`
	Voice      string `yaml:"voice"`
}

type Catalog struct {
	Defaults map[Kind]string `yaml:"defaults"`
	Models   []Model         `yaml:"models"`

	byName map[string]Model
}

// LoadCatalog reads the catalog at path, or the embedded one when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return ParseCatalog(defaultCatalog)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read provider catalog: %w", err)
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse provider catalog: %w", err)
	}

	c.byName = make(map[string]Model, len(c.Models))
	for _, m := range c.Models {
		if m.Name == "" {
			return nil, fmt.Errorf("provider catalog: model without a name")
		}
		if _, dup := c.byName[m.Name]; dup {
			return nil, fmt.Errorf("provider catalog: duplicate model %q", m.Name)
		}
		if !m.Provider.Valid() {
			return nil, fmt.Errorf("provider catalog: model %q has unknown provider %q", m.Name, m.Provider)
		}
		if _, ok := ParseKind(string(m.Kind)); !ok {
			return nil, fmt.Errorf("provider catalog: model %q has unknown kind %q", m.Name, m.Kind)
		}
		c.byName[m.Name] = m
	}

	for kind, name := range c.Defaults {
		m, ok := c.byName[name]
		if !ok {
			return nil, fmt.Errorf("provider catalog: default %s model %q is not listed", kind, name)
		}
		if m.Kind != kind {
			return nil, fmt.Errorf("provider catalog: default %s model %q produces %s", kind, name, m.Kind)
		}
	}
	return &c, nil
}

func (c *Catalog) Lookup(name string) (Model, bool) {
	m, ok := c.byName[name]
	return m, ok
}

func (c *Catalog) Default(kind Kind) (Model, bool) {
	name, ok := c.Defaults[kind]
	if !ok {
		return Model{}, false
	}
	return c.Lookup(name)
}
