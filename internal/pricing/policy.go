package pricing

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Policy holds the rule sets a deployment prices with: a default set plus
// optional per-venue sets keyed by venue ID.
type Policy struct {
	Default RuleSet
	Venues  map[string]RuleSet
}

type policyFile struct {
	Default []Rule            `yaml:"default"`
	Venues  map[string][]Rule `yaml:"venues"`
}

// LoadPolicy reads and validates a YAML policy file
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pricing policy: %w", err)
	}
	policy, err := ParsePolicy(data)
	if err != nil {
		return nil, fmt.Errorf("pricing policy %s: %w", path, err)
	}
	return policy, nil
}

// ParsePolicy decodes a YAML policy document. Every rule is validated; a single
// malformed rule rejects the whole document.
func ParsePolicy(data []byte) (*Policy, error) {
	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode pricing policy: %w", err)
	}

	defaults, err := NewRuleSet(file.Default...)
	if err != nil {
		return nil, fmt.Errorf("default rules: %w", err)
	}

	policy := &Policy{
		Default: defaults,
		Venues:  make(map[string]RuleSet, len(file.Venues)),
	}
	for venueID, rules := range file.Venues {
		set, err := NewRuleSet(rules...)
		if err != nil {
			return nil, fmt.Errorf("venue %s rules: %w", venueID, err)
		}
		policy.Venues[venueID] = set
	}
	return policy, nil
}

// RulesFor returns the venue's own rule set, falling back to the default set
func (p *Policy) RulesFor(venueID string) RuleSet {
	if p == nil {
		return RuleSet{}
	}
	if set, ok := p.Venues[venueID]; ok {
		return set
	}
	return p.Default
}
