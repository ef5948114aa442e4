package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeta_Fields(t *testing.T) {
	m := Meta{
		Title:            "EU CBAM",
		Jurisdiction:     "EU",
		RegulationFamily: "carbon",
		InstrumentType:   "regulation",
		PrimaryAxis:      "",
		TenantID:         "t1",
		EffectiveYear:    2026,
	}
	fields := m.fields()
	assert.Equal(t, "EU CBAM", fields["title"])
	assert.Equal(t, "EU", fields["jurisdiction"])
	assert.Equal(t, 2026, fields["effective_year"])
}

func TestMeta_Fields_OmitsZeroEffectiveYear(t *testing.T) {
	m := Meta{Title: "x"}
	fields := m.fields()
	_, ok := fields["effective_year"]
	assert.False(t, ok)
}

func TestSHA256Hex(t *testing.T) {
	got := sha256Hex([]byte("hello"))
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", got)
	assert.Len(t, got, 64)
}

func TestSHA256Hex_Deterministic(t *testing.T) {
	a := sha256Hex([]byte("same bytes"))
	b := sha256Hex([]byte("same bytes"))
	assert.Equal(t, a, b)
}

func TestErrPDFTooLarge_Error(t *testing.T) {
	err := &ErrPDFTooLarge{MaxMB: 50}
	assert.Contains(t, err.Error(), "50")
}

func TestErrPrimaryAxisMismatch_Error(t *testing.T) {
	err := &ErrPrimaryAxisMismatch{Stored: "jurisdiction", Provided: "theme"}
	assert.Contains(t, err.Error(), "jurisdiction")
	assert.Contains(t, err.Error(), "theme")
}

func TestRuleSuggester_Suggest(t *testing.T) {
	s := RuleSuggester{ModelName: "stub", ModelVersion: "v1"}
	axis, confidence, name, version := s.Suggest(Meta{Jurisdiction: "EU"})
	assert.Equal(t, "jurisdiction", axis)
	assert.Equal(t, 0.55, confidence)
	assert.Equal(t, "stub", name)
	assert.Equal(t, "v1", version)
}

func TestMetaDetails(t *testing.T) {
	m := Meta{Title: "t", TenantID: "tenant", EffectiveYear: 2025}
	d := metaDetails(m)
	assert.Equal(t, "t", d["title"])
	assert.Equal(t, "tenant", d["tenant_id"])
	assert.Equal(t, 2025, d["effective_year"])
}
