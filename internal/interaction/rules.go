package interaction

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/model"
)

//go:embed rules.yaml
var defaultRules []byte

// DefaultRules returns the built-in rule table
func DefaultRules() []model.InteractionRule {
	rules, err := ParseRules(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("interaction: embedded rule table is invalid: %v", err))
	}
	return rules
}

// LoadRules reads a rule table from path, or returns the built-in table
// when path is empty.
func LoadRules(path string) ([]model.InteractionRule, error) {
	if path == "" {
		return DefaultRules(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read interaction rules: %w", err)
	}

	rules, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load interaction rules from %s: %w", path, err)
	}
	return rules, nil
}

// ParseRules decodes and validates a YAML rule table
func ParseRules(data []byte) ([]model.InteractionRule, error) {
	var rules []model.InteractionRule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse interaction rules: %w", err)
	}

	if err := ValidateRules(rules); err != nil {
		return nil, err
	}
	return rules, nil
}

// ValidateRules checks that rule IDs are unique, trigger names form a set
// and every rule can fire
func ValidateRules(rules []model.InteractionRule) error {
	seen := make(map[string]struct{}, len(rules))
	for i, rule := range rules {
		if rule.ID == "" {
			return fmt.Errorf("rule %d: id is required", i)
		}
		if _, dup := seen[rule.ID]; dup {
			return fmt.Errorf("rule %s: duplicate id", rule.ID)
		}
		seen[rule.ID] = struct{}{}

		if len(rule.TriggerNames) == 0 {
			return fmt.Errorf("rule %s: trigger_names is required", rule.ID)
		}
		names := make(map[string]struct{}, len(rule.TriggerNames))
		for _, name := range rule.TriggerNames {
			n := normalize(name)
			if n == "" {
				return fmt.Errorf("rule %s: empty trigger name", rule.ID)
			}
			if _, dup := names[n]; dup {
				return fmt.Errorf("rule %s: duplicate trigger name %q", rule.ID, name)
			}
			names[n] = struct{}{}
		}
		if rule.Message == "" {
			return fmt.Errorf("rule %s: message is required", rule.ID)
		}

		switch rule.Mode {
		case model.RuleModeAny:
		case model.RuleModeAll:
			if len(rule.TriggerNames) < 2 {
				return fmt.Errorf("rule %s: mode all needs at least two trigger names", rule.ID)
			}
		default:
			return fmt.Errorf("rule %s: unknown mode %q", rule.ID, rule.Mode)
		}
	}
	return nil
}
