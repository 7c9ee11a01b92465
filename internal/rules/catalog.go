// Package rules holds the read-only complexity rule profiles used to ground classification.
package rules

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_rules.yaml
var defaultRules []byte

// Level describes what qualifies a request for one complexity level.
type Level struct {
	Level                    int      `yaml:"level" json:"level"`
	Name                     string   `yaml:"name" json:"name"`
	Criteria                 []string `yaml:"criteria" json:"criteria"`
	MinExperienceYears       int      `yaml:"minExperienceYears" json:"minExperienceYears"`
	RequiresCertification    bool     `yaml:"requiresCertification" json:"requiresCertification"`
	RequiresSeniorTechnician bool     `yaml:"requiresSeniorTechnician" json:"requiresSeniorTechnician"`
	RiskWeight               float64  `yaml:"riskWeight" json:"riskWeight"`
}

// Profile is the rule document for one category key.
type Profile struct {
	Key      string  `yaml:"-" json:"key"`
	Category string  `yaml:"category" json:"category"`
	Levels   []Level `yaml:"levels" json:"levels"`
}

type document struct {
	DefaultProfile string             `yaml:"default_profile"`
	Profiles       map[string]Profile `yaml:"profiles"`
	Categories     map[string]string  `yaml:"categories"`
}

// Catalog is an immutable lookup from category to rule profile.
type Catalog struct {
	defaultKey string
	profiles   map[string]Profile
	categories map[string]string
}

// Default returns the catalog shipped with the binary.
func Default() (*Catalog, error) {
	return Parse(defaultRules)
}

// Load reads a catalog file; an empty path falls back to the embedded default.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML rule document.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if len(doc.Profiles) == 0 {
		return nil, errors.New("rules: no profiles defined")
	}
	if _, ok := doc.Profiles[doc.DefaultProfile]; !ok {
		return nil, fmt.Errorf("rules: default profile %q is not defined", doc.DefaultProfile)
	}

	profiles := make(map[string]Profile, len(doc.Profiles))
	for key, profile := range doc.Profiles {
		for _, level := range profile.Levels {
			if level.Level < 1 || level.Level > 5 {
				return nil, fmt.Errorf("rules: profile %s has level %d outside 1-5", key, level.Level)
			}
		}
		sort.Slice(profile.Levels, func(i, j int) bool { return profile.Levels[i].Level < profile.Levels[j].Level })
		profile.Key = key
		profiles[key] = profile
	}
	categories := make(map[string]string, len(doc.Categories))
	for categoryID, key := range doc.Categories {
		if _, ok := profiles[key]; !ok {
			return nil, fmt.Errorf("rules: category %s maps to unknown profile %q", categoryID, key)
		}
		categories[categoryID] = key
	}

	return &Catalog{defaultKey: doc.DefaultProfile, profiles: profiles, categories: categories}, nil
}

// Profile looks up a profile by key.
func (c *Catalog) Profile(key string) (Profile, bool) {
	profile, ok := c.profiles[key]
	return profile, ok
}

// ProfileForCategory resolves the profile for a category, falling back to the default profile.
func (c *Catalog) ProfileForCategory(categoryID string) Profile {
	if key, ok := c.categories[categoryID]; ok {
		return c.profiles[key]
	}
	return c.profiles[c.defaultKey]
}

// DefaultProfile returns the profile used for unmapped categories.
func (c *Catalog) DefaultProfile() Profile {
	return c.profiles[c.defaultKey]
}

// Keys lists the profile keys in sorted order.
func (c *Catalog) Keys() []string {
	keys := make([]string, 0, len(c.profiles))
	for key := range c.profiles {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
