package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnforceUploadRules_AllPresent(t *testing.T) {
	r := DefaultUploadRules(50)
	payload := map[string]any{
		"title":             "EU CBAM",
		"jurisdiction":      "EU",
		"regulation_family": "carbon",
		"instrument_type":   "regulation",
		"primary_axis":      "",
		"tenant_id":         "t1",
		"effective_year":    2026,
	}
	require.NoError(t, EnforceUploadRules(r, payload))
}

func TestEnforceUploadRules_MissingFields(t *testing.T) {
	r := DefaultUploadRules(50)
	payload := map[string]any{
		"title":        "EU CBAM",
		"jurisdiction": "",
		"tenant_id":    nil,
	}
	err := EnforceUploadRules(r, payload)
	require.Error(t, err)
	var missingErr *MissingFieldsError
	require.ErrorAs(t, err, &missingErr)
	assert.Contains(t, missingErr.Missing, "jurisdiction")
	assert.Contains(t, missingErr.Missing, "tenant_id")
	assert.Contains(t, missingErr.Missing, "regulation_family")
	assert.NotContains(t, missingErr.Missing, "title")
}

func TestDerivePrimaryAxisDeterministic_JurisdictionWins(t *testing.T) {
	axis, source := DerivePrimaryAxisDeterministic("EU", "Some Title", "carbon", "regulation")
	assert.Equal(t, "jurisdiction", axis)
	assert.Equal(t, SourceDeterministicRule, source)
}

func TestDerivePrimaryAxisDeterministic_ProductScope(t *testing.T) {
	axis, source := DerivePrimaryAxisDeterministic("", "Battery Recycling Standard", "waste", "directive")
	assert.Equal(t, "product_scope", axis)
	assert.Equal(t, SourceDeterministicRule, source)
}

func TestDerivePrimaryAxisDeterministic_Theme(t *testing.T) {
	axis, _ := DerivePrimaryAxisDeterministic("", "Corporate Sustainability Reporting Directive", "disclosure", "directive")
	assert.Equal(t, "theme", axis)
}

func TestDerivePrimaryAxisDeterministic_FallbackTheme(t *testing.T) {
	axis, _ := DerivePrimaryAxisDeterministic("", "Miscellaneous Order", "other", "order")
	assert.Equal(t, "theme", axis)
}

func TestDerivePrimaryAxisDeterministic_JurisdictionTrimmed(t *testing.T) {
	axis, _ := DerivePrimaryAxisDeterministic("   ", "CSRD Reporting Framework", "disclosure", "directive")
	assert.Equal(t, "theme", axis)
}

func TestDerivePrimaryAxisDeterministic_CaseInsensitiveProductKeyword(t *testing.T) {
	axis, _ := DerivePrimaryAxisDeterministic("", "ALUMINIUM Import Levy", "tariff", "regulation")
	assert.Equal(t, "product_scope", axis)
}
