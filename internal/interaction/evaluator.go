// Package interaction checks the active regimen against a static table of
// medication interaction rules.
package interaction

import (
	"strings"

	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/model"
)

// EvaluateWarnings returns the rules that fire against the active
// medications, in rule-table order. An "any" rule fires when at least one
// of its trigger names is active, an "all" rule when at least two distinct
// ones are. Names are compared case-insensitively after trimming.
func EvaluateWarnings(meds []model.Medication, rules []model.InteractionRule) []model.InteractionWarning {
	active := make(map[string]struct{}, len(meds))
	for _, med := range meds {
		if med.Active {
			active[normalize(med.Name)] = struct{}{}
		}
	}

	var warnings []model.InteractionWarning
	for _, rule := range rules {
		matched := make(map[string]struct{}, len(rule.TriggerNames))
		for _, name := range rule.TriggerNames {
			n := normalize(name)
			if _, ok := active[n]; ok {
				matched[n] = struct{}{}
			}
		}

		if len(matched) >= threshold(rule.Mode) {
			warnings = append(warnings, model.InteractionWarning{
				RuleID:       rule.ID,
				Message:      rule.Message,
				TriggerNames: append([]string(nil), rule.TriggerNames...),
			})
		}
	}

	return warnings
}

func threshold(mode model.RuleMode) int {
	if mode == model.RuleModeAll {
		return 2
	}
	return 1
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
