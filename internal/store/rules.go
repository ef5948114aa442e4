package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/regulation-registry/core/internal/rules"
)

// UploadRulesKey is the single active refdata row this service reads;
// grounded on original_source/app/refdata/loader.py's "EPIC1_UPLOAD_RULES".
const UploadRulesKey = "EPIC1_UPLOAD_RULES"

// EnsureDefaultUploadRules seeds or refreshes the upload rules row,
// grounded on ensure_default_rules's ON CONFLICT DO UPDATE upsert.
func (s *Store) EnsureDefaultUploadRules(ctx context.Context, r rules.UploadRules) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("store: marshal upload rules: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO ref_rules(rule_key, rule_desc, rule_json, is_active)
		VALUES ($1,$2,$3::jsonb,true)
		ON CONFLICT (rule_key) DO UPDATE SET rule_json=EXCLUDED.rule_json, is_active=true`,
		UploadRulesKey, "Upload validation rules for the ingestion API", payload)
	if err != nil {
		return fmt.Errorf("store: ensure default rules: %w", err)
	}
	return nil
}

// ActiveUploadRules loads the active upload rules row, falling back to
// fallback if none is active yet.
func (s *Store) ActiveUploadRules(ctx context.Context, fallback rules.UploadRules) (rules.UploadRules, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `SELECT rule_json FROM ref_rules WHERE rule_key=$1 AND is_active=true`, UploadRulesKey).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return fallback, nil
	}
	if err != nil {
		return rules.UploadRules{}, fmt.Errorf("store: load upload rules: %w", err)
	}
	var r rules.UploadRules
	if err := json.Unmarshal(payload, &r); err != nil {
		return rules.UploadRules{}, fmt.Errorf("store: decode upload rules: %w", err)
	}
	return r, nil
}
