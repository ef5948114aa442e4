// Package rules implements the deterministic, non-LLM business rules that
// gate upload acceptance and derive a default primary axis.
//
// Grounded on original_source/app/refdata/rules.py and
// original_source/app/refdata/loader.py.
package rules

import "strings"

// UploadRules is the refdata-configured validation contract for an upload
// request, seeded by store.EnsureDefaultUploadRules and stored as ref_rules.rule_json.
type UploadRules struct {
	RequiredFields []string `json:"required_fields"`
	MaxPDFMB       int      `json:"max_pdf_mb"`
}

// DefaultUploadRules returns the EPIC1_UPLOAD_RULES seed payload, parameterized
// by the configured MAX_PDF_MB limit.
func DefaultUploadRules(maxPDFMB int) UploadRules {
	return UploadRules{
		RequiredFields: []string{
			"title", "jurisdiction", "regulation_family", "instrument_type",
			"primary_axis", "tenant_id", "effective_year",
		},
		MaxPDFMB: maxPDFMB,
	}
}

// MissingFieldsError reports which required upload fields were blank or absent.
type MissingFieldsError struct {
	Missing []string
}

func (e *MissingFieldsError) Error() string {
	return "missing required fields: " + strings.Join(e.Missing, ", ")
}

// EnforceUploadRules checks payload against rules.RequiredFields, treating a
// missing key, empty string, or nil value as absent.
func EnforceUploadRules(r UploadRules, payload map[string]any) error {
	var missing []string
	for _, field := range r.RequiredFields {
		v, ok := payload[field]
		if !ok || v == nil || v == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return &MissingFieldsError{Missing: missing}
	}
	return nil
}

// Source identifies where a primary_axis value came from. Upload is truth;
// DeterministicRule is a derived fallback; LLMSuggestion never sets
// primary_axis itself, only PrimaryAxisSuggestion rows.
type Source string

const (
	SourceUpload            Source = "UPLOAD"
	SourceDeterministicRule Source = "DETERMINISTIC_RULE"
)

var productKeywords = []string{
	"battery", "batteries", "aluminium", "cement clinker", "steel", "fertilizer", "hydrogen",
}

var themeKeywords = []string{
	"disclosure", "reporting", "framework", "standard", "taxonomy", "csrd", "esrs",
}

// DerivePrimaryAxisDeterministic implements the fixed three-rule cascade:
// jurisdiction presence wins, then product keywords, then theme keywords,
// falling back to "theme". It never calls an LLM and always reports
// SourceDeterministicRule.
func DerivePrimaryAxisDeterministic(jurisdiction, title, regulationFamily, instrumentType string) (string, Source) {
	if strings.TrimSpace(jurisdiction) != "" {
		return "jurisdiction", SourceDeterministicRule
	}

	hay := strings.ToLower(strings.Join([]string{title, regulationFamily, instrumentType}, " "))

	for _, k := range productKeywords {
		if strings.Contains(hay, k) {
			return "product_scope", SourceDeterministicRule
		}
	}

	for _, k := range themeKeywords {
		if strings.Contains(hay, k) {
			return "theme", SourceDeterministicRule
		}
	}

	return "theme", SourceDeterministicRule
}
