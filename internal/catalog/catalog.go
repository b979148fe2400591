// Package catalog holds the scan-time configuration: the subject catalog, school-type
// keyword table, term vocabulary and locale hints.
package catalog

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Subject is a catalog entry rows get matched against.
type Subject struct {
	ID         string   `yaml:"id"                json:"id"`
	Name       string   `yaml:"name"              json:"name"`
	Aliases    []string `yaml:"aliases,omitempty"  json:"aliases,omitempty"`
	CategoryID string   `yaml:"category,omitempty" json:"category,omitempty"`
	Core       bool     `yaml:"core,omitempty"     json:"core,omitempty"`
}

// Category groups subjects.
type Category struct {
	ID   string `yaml:"id"   json:"id"`
	Name string `yaml:"name" json:"name"`
}

// KeywordRule maps a country code to identifying vocabulary. Rules are ordered;
// the first matching rule wins.
type KeywordRule struct {
	Country  string   `yaml:"country"  json:"country"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// TermRule maps a term type to the vocabulary that identifies it.
type TermRule struct {
	Type     string   `yaml:"type"     json:"type"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// LocaleHints carries defaults used when a request has no explicit locale or country.
type LocaleHints struct {
	Locale  string `yaml:"locale,omitempty"  json:"locale,omitempty"`
	Country string `yaml:"country,omitempty" json:"country,omitempty"`
}

// ScanConfig is the catalog handed to recognition, parsing and matching.
type ScanConfig struct {
	Subjects    []Subject     `yaml:"subjects"               json:"subjects"`
	Categories  []Category    `yaml:"categories,omitempty"   json:"categories,omitempty"`
	SchoolTypes []KeywordRule `yaml:"school_types,omitempty" json:"school_types,omitempty"`
	TermTypes   []TermRule    `yaml:"term_types,omitempty"   json:"term_types,omitempty"`
	Locale      LocaleHints   `yaml:"locale,omitempty"       json:"locale,omitempty"`
}

// Load reads a YAML catalog from disk.
func Load(path string) (*ScanConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog. Missing term vocabulary is filled from
// the built-in defaults.
func Parse(data []byte) (*ScanConfig, error) {
	var cfg ScanConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if len(cfg.TermTypes) == 0 {
		cfg.TermTypes = DefaultTermRules()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks subject ids are present and unique.
func (c *ScanConfig) Validate() error {
	if len(c.Subjects) == 0 {
		return errors.New("catalog has no subjects")
	}
	categories := make(map[string]bool, len(c.Categories))
	for _, cat := range c.Categories {
		categories[cat.ID] = true
	}
	ids := make(map[string]bool, len(c.Subjects))
	for i, s := range c.Subjects {
		if s.ID == "" || s.Name == "" {
			return fmt.Errorf("subject %d: id and name are required", i)
		}
		if ids[s.ID] {
			return fmt.Errorf("duplicate subject id %q", s.ID)
		}
		if s.CategoryID != "" && len(categories) > 0 && !categories[s.CategoryID] {
			return fmt.Errorf("subject %q references unknown category %q", s.ID, s.CategoryID)
		}
		ids[s.ID] = true
	}
	for _, r := range c.SchoolTypes {
		if r.Country == "" {
			return errors.New("school type rule without country")
		}
	}
	return nil
}

// SubjectByID looks a subject up by id.
func (c *ScanConfig) SubjectByID(id string) (Subject, bool) {
	for _, s := range c.Subjects {
		if s.ID == id {
			return s, true
		}
	}
	return Subject{}, false
}

// SubjectNames lists every name and alias, used as spelling hints for recognition.
func (c *ScanConfig) SubjectNames() []string {
	names := make([]string, 0, len(c.Subjects))
	for _, s := range c.Subjects {
		names = append(names, s.Name)
		names = append(names, s.Aliases...)
	}
	return names
}
