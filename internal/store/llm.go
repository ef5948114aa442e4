package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LLMRunStatus values for llm_runs.status.
const (
	LLMRunRunning   = "RUNNING"
	LLMRunCompleted = "COMPLETED"
	LLMRunFailed    = "FAILED"
)

// InsertPromptIfAbsent registers a prompt's stable text keyed by its
// content hash, grounded on llm_orchestrator.py's
// "INSERT INTO prompts ... ON CONFLICT (prompt_hash) DO NOTHING".
func (s *Store) InsertPromptIfAbsent(ctx context.Context, promptHash, promptText string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO prompts(prompt_hash, prompt_text) VALUES ($1,$2)
		ON CONFLICT (prompt_hash) DO NOTHING`, promptHash, promptText)
	if err != nil {
		return fmt.Errorf("store: insert prompt: %w", err)
	}
	return nil
}

// LLMRun tracks one derivation attempt for a version.
type LLMRun struct {
	RunID             string
	VersionID         string
	PromptHash        string
	InputFingerprint  string
	ModelName         string
	ModelVersion      string
	Status            string
	OutputArtifactID  *string
}

// CreateLLMRun starts a run in RUNNING status.
func (s *Store) CreateLLMRun(ctx context.Context, versionID, promptHash, inputFingerprint, modelName, modelVersion string) (string, error) {
	runID := uuid.NewString()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO llm_runs(run_id, version_id, prompt_hash, input_fingerprint, model_name, model_version, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		runID, versionID, promptHash, inputFingerprint, modelName, modelVersion, LLMRunRunning)
	if err != nil {
		return "", fmt.Errorf("store: create llm run: %w", err)
	}
	return runID, nil
}

// CompleteLLMRun marks a run COMPLETED with its output artifact.
func (s *Store) CompleteLLMRun(ctx context.Context, runID, outputArtifactID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE llm_runs SET status=$1, output_artifact_id=$2, updated_at=now() WHERE run_id=$3`,
		LLMRunCompleted, outputArtifactID, runID)
	return err
}

// FailLLMRun marks a run FAILED.
func (s *Store) FailLLMRun(ctx context.Context, runID string) error {
	_, err := s.pool.Exec(ctx, `UPDATE llm_runs SET status=$1, updated_at=now() WHERE run_id=$2`, LLMRunFailed, runID)
	return err
}

// FindLLMRunByFingerprint returns a prior run for the same
// input_fingerprint, enabling idempotent re-delivery of
// LLM.DERIVATION_REQUESTED to skip redundant model calls.
func (s *Store) FindLLMRunByFingerprint(ctx context.Context, inputFingerprint string) (*LLMRun, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT run_id, version_id, prompt_hash, input_fingerprint, model_name, model_version, status, output_artifact_id
		FROM llm_runs WHERE input_fingerprint=$1 ORDER BY created_at DESC LIMIT 1`, inputFingerprint)
	var r LLMRun
	err := row.Scan(&r.RunID, &r.VersionID, &r.PromptHash, &r.InputFingerprint, &r.ModelName, &r.ModelVersion, &r.Status, &r.OutputArtifactID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: find llm run: %w", err)
	}
	return &r, nil
}
