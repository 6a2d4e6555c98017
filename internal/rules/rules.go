// Package rules implements the category compatibility validator. The rule
// tables (category universe, exclusive set, oil-related set) are
// configuration loaded from YAML, not code: the same validator runs against
// either the label-keyed or the stream-coded rule-set version.
package rules

import (
	_ "embed"
	"fmt"
	"os"

	"recolecta/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yml
var defaultRules []byte

// RuleSet holds one version of the compatibility tables.
type RuleSet struct {
	Name       string   `yaml:"-"`
	Categories []string `yaml:"categories"`
	Exclusive  []string `yaml:"exclusive"`
	OilRelated []string `yaml:"oil_related"`

	categories map[string]struct{}
	exclusive  map[string]struct{}
	oilRelated map[string]struct{}
}

// Config is the full rules file: every shipped rule-set version plus the
// name of the active one.
type Config struct {
	Active   string              `yaml:"active"`
	RuleSets map[string]*RuleSet `yaml:"rulesets"`
}

// Load reads a rules file from disk. An empty path loads the embedded
// default tables.
func Load(path string) (*Config, error) {
	data := defaultRules
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, models.NewConfigurationError(fmt.Sprintf("rules file %q unreadable: %v", path, err))
		}
	}
	return Parse(data)
}

// Parse decodes and indexes a rules document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, models.NewConfigurationError(fmt.Sprintf("invalid rules file: %v", err))
	}
	if len(cfg.RuleSets) == 0 {
		return nil, models.NewConfigurationError("rules file defines no rulesets")
	}
	for name, rs := range cfg.RuleSets {
		rs.Name = name
		rs.index()
		for _, c := range rs.Exclusive {
			if !rs.knownCategory(c) {
				return nil, models.NewConfigurationError(
					fmt.Sprintf("ruleset %q: exclusive category %q not in category table", name, c))
			}
		}
		for _, c := range rs.OilRelated {
			if !rs.knownCategory(c) {
				return nil, models.NewConfigurationError(
					fmt.Sprintf("ruleset %q: oil-related category %q not in category table", name, c))
			}
		}
	}
	if _, ok := cfg.RuleSets[cfg.Active]; cfg.Active != "" && !ok {
		return nil, models.NewConfigurationError(
			fmt.Sprintf("active ruleset %q not defined", cfg.Active))
	}
	return &cfg, nil
}

// Select returns the named rule-set version, or the file's active one when
// name is empty.
func (c *Config) Select(name string) (*RuleSet, error) {
	if name == "" {
		name = c.Active
	}
	rs, ok := c.RuleSets[name]
	if !ok {
		return nil, models.NewConfigurationError(fmt.Sprintf("ruleset %q not defined", name))
	}
	return rs, nil
}

func (rs *RuleSet) index() {
	rs.categories = toSet(rs.Categories)
	rs.exclusive = toSet(rs.Exclusive)
	rs.oilRelated = toSet(rs.OilRelated)
}

func toSet(items []string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, it := range items {
		m[it] = struct{}{}
	}
	return m
}

func (rs *RuleSet) knownCategory(c string) bool {
	_, ok := rs.categories[c]
	return ok
}

// KnownCategory reports whether the category exists in this rule-set's
// category table.
func (rs *RuleSet) KnownCategory(c string) bool {
	return rs.knownCategory(c)
}

// Validate checks a proposed category set against the compatibility rules.
// Pure and deterministic. Rules apply in order: non-empty, exclusivity,
// oil mixing.
func (rs *RuleSet) Validate(categories []string) error {
	if len(categories) == 0 {
		return models.NewValidationError("at least one category required")
	}

	seen := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		if _, dup := seen[c]; dup {
			return models.NewValidationError(fmt.Sprintf("category %q listed twice", c))
		}
		seen[c] = struct{}{}
	}

	for _, c := range categories {
		if _, excl := rs.exclusive[c]; excl && len(categories) > 1 {
			return models.NewValidationError(
				fmt.Sprintf("category %q cannot be combined with other categories", c))
		}
	}

	var hasOil, hasNonOil bool
	for _, c := range categories {
		if _, oil := rs.oilRelated[c]; oil {
			hasOil = true
		} else {
			hasNonOil = true
		}
	}
	if hasOil && hasNonOil {
		return models.NewValidationError("oil-related categories cannot be mixed with other categories")
	}

	return nil
}
