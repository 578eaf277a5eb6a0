// Package catalog loads the heuristic lookup tables the engine matches
// against: field-kind keywords, overlay signatures, CAPTCHA markers and
// fill defaults. The tables live in a versioned YAML document so they can
// be extended without touching dispatch logic; a default catalog is
// embedded in the binary.
package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	_ "embed"
)

//go:embed default.yaml
var defaultYAML []byte

// FieldEntry maps one semantic kind to its attribute vocabulary. Entries
// are ordered; the first matching entry wins.
type FieldEntry struct {
	Kind     string   `yaml:"kind"`
	Keywords []string `yaml:"keywords"`
}

// Obstruction is one overlay signature with an optional dedicated close
// control.
type Obstruction struct {
	Name     string `yaml:"name"`
	Selector string `yaml:"selector"`
	Close    string `yaml:"close,omitempty"`
}

// Captcha holds the challenge-provider markers.
type Captcha struct {
	Markers []string `yaml:"markers"`
}

// Catalog is the full heuristic table set.
type Catalog struct {
	Version         int               `yaml:"version"`
	Fields          []FieldEntry      `yaml:"fields"`
	Obstructions    []Obstruction     `yaml:"obstructions"`
	Captcha         Captcha           `yaml:"captcha"`
	Placeholders    []string          `yaml:"placeholders"`
	SubmitSelectors []string          `yaml:"submit_selectors"`
	ContactLinks    []string          `yaml:"contact_links"`
	Defaults        map[string]string `yaml:"defaults"`
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return parse(defaultYAML)
}

// Load reads a catalog from path, falling back to the embedded default
// when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects catalogs that would silently disable matching.
func (c *Catalog) Validate() error {
	if c.Version < 1 {
		return fmt.Errorf("catalog: version must be >= 1")
	}
	if len(c.Fields) == 0 {
		return fmt.Errorf("catalog: fields table is empty")
	}
	for i, f := range c.Fields {
		if f.Kind == "" {
			return fmt.Errorf("catalog: fields[%d] has empty kind", i)
		}
		if len(f.Keywords) == 0 {
			return fmt.Errorf("catalog: fields[%d] (%s) has no keywords", i, f.Kind)
		}
	}
	for i, o := range c.Obstructions {
		if o.Selector == "" {
			return fmt.Errorf("catalog: obstructions[%d] (%s) has empty selector", i, o.Name)
		}
	}
	if len(c.Captcha.Markers) == 0 {
		return fmt.Errorf("catalog: captcha markers are empty")
	}
	return nil
}

// DefaultFor returns the fill default for a kind, or "" when none exists.
func (c *Catalog) DefaultFor(kind string) string {
	return c.Defaults[kind]
}
