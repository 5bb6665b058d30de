package interaction

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/model"
)

func active(names ...string) []model.Medication {
	meds := make([]model.Medication, 0, len(names))
	for _, name := range names {
		meds = append(meds, model.Medication{ID: name, Name: name, Active: true})
	}
	return meds
}

func ruleIDs(warnings []model.InteractionWarning) []string {
	ids := make([]string, 0, len(warnings))
	for _, w := range warnings {
		ids = append(ids, w.RuleID)
	}
	return ids
}

func TestEvaluateWarnings_DualNSAID(t *testing.T) {
	rules := DefaultRules()

	both := EvaluateWarnings(active("Naproxen (NSAID)", "Indomethacin (NSAID)"), rules)
	assert.Equal(t, []string{"nsaid-aspirin", "nsaid-dual"}, ruleIDs(both))

	single := EvaluateWarnings(active("Naproxen (NSAID)"), rules)
	assert.Equal(t, []string{"nsaid-aspirin"}, ruleIDs(single))
}

func TestEvaluateWarnings_RuleTableOrder(t *testing.T) {
	warnings := EvaluateWarnings(active("Prednisone", "Colchicine", "Allopurinol"), DefaultRules())

	assert.Equal(t, []string{"colchicine-alcohol", "allopurinol-info", "prednisone-alcohol"}, ruleIDs(warnings))
}

func TestEvaluateWarnings_IgnoresInactive(t *testing.T) {
	meds := active("Colchicine")
	meds[0].Active = false

	assert.Empty(t, EvaluateWarnings(meds, DefaultRules()))
}

func TestEvaluateWarnings_NameNormalization(t *testing.T) {
	warnings := EvaluateWarnings(active("  colchicine "), DefaultRules())

	require.Len(t, warnings, 1)
	assert.Equal(t, "colchicine-alcohol", warnings[0].RuleID)
	assert.Equal(t, []string{"Colchicine"}, warnings[0].TriggerNames)
}

func TestEvaluateWarnings_CountsDistinctTriggerNames(t *testing.T) {
	// Built directly so the table skips ValidateRules.
	rules := []model.InteractionRule{{
		ID:           "nsaid-dual",
		TriggerNames: []string{"Naproxen", "naproxen ", "Ibuprofen"},
		Mode:         model.RuleModeAll,
		Message:      "Two NSAIDs",
	}}

	assert.Empty(t, EvaluateWarnings(active("Naproxen"), rules))
	assert.Equal(t, []string{"nsaid-dual"}, ruleIDs(EvaluateWarnings(active("Naproxen", "Ibuprofen"), rules)))
}

func TestParseRules_RejectsDuplicateTriggerNames(t *testing.T) {
	data := []byte("- id: nsaid-dual\n  trigger_names: [\"Naproxen\", \"naproxen \"]\n  mode: all\n  message: Two NSAIDs\n")

	_, err := ParseRules(data)

	assert.ErrorContains(t, err, "duplicate trigger name")
}

func TestEvaluateWarnings_EmptyRegimen(t *testing.T) {
	assert.Empty(t, EvaluateWarnings(nil, DefaultRules()))
}

func TestValidateRules(t *testing.T) {
	tests := []struct {
		name  string
		rules []model.InteractionRule
	}{
		{name: "missing id", rules: []model.InteractionRule{{TriggerNames: []string{"A"}, Mode: model.RuleModeAny, Message: "m"}}},
		{name: "duplicate id", rules: []model.InteractionRule{
			{ID: "r", TriggerNames: []string{"A"}, Mode: model.RuleModeAny, Message: "m"},
			{ID: "r", TriggerNames: []string{"B"}, Mode: model.RuleModeAny, Message: "m"},
		}},
		{name: "no triggers", rules: []model.InteractionRule{{ID: "r", Mode: model.RuleModeAny, Message: "m"}}},
		{name: "no message", rules: []model.InteractionRule{{ID: "r", TriggerNames: []string{"A"}, Mode: model.RuleModeAny}}},
		{name: "unknown mode", rules: []model.InteractionRule{{ID: "r", TriggerNames: []string{"A"}, Mode: "some", Message: "m"}}},
		{name: "all with one trigger", rules: []model.InteractionRule{{ID: "r", TriggerNames: []string{"A"}, Mode: model.RuleModeAll, Message: "m"}}},
		{name: "duplicate trigger after normalization", rules: []model.InteractionRule{
			{ID: "r", TriggerNames: []string{"Naproxen", "naproxen "}, Mode: model.RuleModeAll, Message: "m"},
		}},
		{name: "blank trigger", rules: []model.InteractionRule{{ID: "r", TriggerNames: []string{"A", " "}, Mode: model.RuleModeAny, Message: "m"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, ValidateRules(tt.rules))
		})
	}
}

func TestLoadRules(t *testing.T) {
	t.Run("empty path uses built-in table", func(t *testing.T) {
		rules, err := LoadRules("")
		require.NoError(t, err)
		assert.Len(t, rules, 5)
	})

	t.Run("override file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rules.yaml")
		content := "- id: febuxostat-info\n  trigger_names: [Febuxostat]\n  mode: any\n  message: Take with or without food.\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		rules, err := LoadRules(path)
		require.NoError(t, err)
		require.Len(t, rules, 1)
		assert.Equal(t, "febuxostat-info", rules[0].ID)

		warnings := EvaluateWarnings(active("Febuxostat"), rules)
		assert.Equal(t, []string{"febuxostat-info"}, ruleIDs(warnings))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rules.yaml")
		require.NoError(t, os.WriteFile(path, []byte("id: [unclosed"), 0o600))

		_, err := LoadRules(path)
		assert.Error(t, err)
	})
}
