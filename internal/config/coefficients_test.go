package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-expediente-fusion/internal/fusion"
	"github.com/a3tai/mcp-expediente-fusion/internal/reliability"
)

func writeCoefficients(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadCoefficientsDefaults(t *testing.T) {
	coef, err := LoadCoefficients("")
	require.NoError(t, err)
	assert.Equal(t, fusion.DefaultCoefficients(), coef)
}

func TestLoadCoefficientsOverlay(t *testing.T) {
	path := writeCoefficients(t, "coef.yaml", `
fuzzy_threshold: 0.9
reliability:
  base:
    hand_filled: 0.5
required_fields:
  asset_seizure: [case_number, holder_name]
fuzzy_fields: [holder_name]
`)

	coef, err := LoadCoefficients(path)
	require.NoError(t, err)

	defaults := fusion.DefaultCoefficients()
	assert.Equal(t, 0.9, coef.FuzzyThreshold)
	assert.Equal(t, defaults.TwoSourceAgreement, coef.TwoSourceAgreement, "untouched keys keep defaults")
	assert.Equal(t, 0.5, coef.Reliability.Base[reliability.SourceHandFilled])
	assert.Equal(t, 0.85, coef.Reliability.Base[reliability.SourceOfficialScan], "nested defaults survive")
	assert.Equal(t, []string{fusion.FieldHolderName}, coef.FuzzyFields, "lists are replaced")
	assert.Equal(t, []string{fusion.FieldCaseNumber, fusion.FieldHolderName}, coef.RequiredFieldsFor("asset_seizure"))
	assert.Equal(t, defaults.RequiredFieldsFor("freeze"), coef.RequiredFieldsFor("freeze"))
	assert.Equal(t, defaults.Fields, coef.Fields)
}

func TestLoadCoefficientsPlaceholders(t *testing.T) {
	coef, err := LoadCoefficients(writeCoefficients(t, "coef.yaml", "placeholders: [pendiente, por confirmar]\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"pendiente", "por confirmar"}, coef.Placeholders)

	coef, err = LoadCoefficients(writeCoefficients(t, "coef.yaml", "fuzzy_threshold: 0.9\n"))
	require.NoError(t, err)
	assert.Equal(t, fusion.DefaultCoefficients().Placeholders, coef.Placeholders, "defaults survive an overlay")

	_, err = LoadCoefficients(writeCoefficients(t, "coef.yaml", "placeholders: [1, {a: b}]\n"))
	assert.Error(t, err)
}

func TestLoadCoefficientsJSON(t *testing.T) {
	path := writeCoefficients(t, "coef.json", `{"voting_margin": 0.2, "fields": {"reference": {"kind": "text", "max_length": 40}}}`)

	coef, err := LoadCoefficients(path)
	require.NoError(t, err)
	assert.Equal(t, 0.2, coef.VotingMargin)
	assert.Equal(t, 40, coef.FieldSpecFor("reference").MaxLength)
}

func TestLoadCoefficientsErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"unknown key", "fuzzy_treshold: 0.9\n", "schema"},
		{"out of range", "fuzzy_threshold: 1.5\n", "schema"},
		{"wrong type", "voting_margin: high\n", "schema"},
		{"unknown field kind", "fields:\n  reference:\n    kind: iban\n", "schema"},
		{"boost below one", "pattern_boost: 0.5\n", "schema"},
		{"cross-field rule", "voting_confidence_ceiling: 0.9\n", "voting_confidence_ceiling"},
		{"weights do not sum", "required_weight: 0.5\n", "sum to 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCoefficients(writeCoefficients(t, "coef.yaml", tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	_, err := LoadCoefficients(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateSettings(t *testing.T) {
	settings, err := toSettings(fusion.DefaultCoefficients())
	require.NoError(t, err)
	assert.NoError(t, ValidateSettings(settings), "defaults must satisfy the schema")

	delete(settings["required_fields"].(map[string]any), fusion.DefaultOperation)
	assert.Error(t, ValidateSettings(settings))
}
