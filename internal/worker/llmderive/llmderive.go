// Package llmderive implements the LLM derivation worker: it reacts to
// LLM.DERIVATION_REQUESTED, runs a conservative summarize-for-indexing
// prompt over a version's stable text, registers the output as a derived
// artifact, and emits LLM.DERIVATION_COMPLETED. Output here is always a
// derived artifact, never primary_axis truth.
//
// Grounded on original_source/app/workers/worker_llm.py and
// original_source/app/services/llm_orchestrator.py.
package llmderive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/regulation-registry/core/internal/audit"
	"github.com/regulation-registry/core/internal/bus"
	"github.com/regulation-registry/core/internal/events"
	"github.com/regulation-registry/core/internal/llm"
	"github.com/regulation-registry/core/internal/objectstore"
	"github.com/regulation-registry/core/internal/store"
)

const promptTemplate = "Summarize regulation for indexing; do not invent facts."

// Worker performs the LLM derivation stage.
type Worker struct {
	store    *store.Store
	objects  objectstore.Store
	audit    *audit.Service
	producer *bus.Producer
	llm      *llm.Service
}

// New builds an llmderive Worker.
func New(st *store.Store, objects objectstore.Store, aud *audit.Service, producer *bus.Producer, llmSvc *llm.Service) *Worker {
	return &Worker{store: st, objects: objects, audit: aud, producer: producer, llm: llmSvc}
}

// Handle processes one LLM.DERIVATION_REQUESTED event.
func (w *Worker) Handle(ctx context.Context, ev events.DomainEvent) error {
	if ev.EventType != events.DerivationRequested {
		return nil
	}

	versionID, _ := ev.Payload["version_id"].(string)
	stableTextArtifactID, _ := ev.Payload["stable_text_artifact_id"].(string)

	artifact, err := w.store.GetArtifact(ctx, stableTextArtifactID)
	if err != nil {
		_, auditErr := w.audit.Write(ctx, "version", versionID, "INGESTION.FAILED", ev.Actor, ev.CorrelationID, map[string]any{
			"reason": "stable_text artifact missing",
		})
		if auditErr != nil {
			return fmt.Errorf("llmderive: audit missing artifact: %w", auditErr)
		}
		return nil
	}

	stableTextBytes, err := objectstore.ReadByURI(ctx, w.objects, artifact.StorageURI)
	if err != nil {
		return fmt.Errorf("llmderive: read stable text: %w", err)
	}
	stableText := string(stableTextBytes)

	promptHash := sha256Hex(promptTemplate)
	if err := w.store.InsertPromptIfAbsent(ctx, promptHash, promptTemplate); err != nil {
		return fmt.Errorf("llmderive: insert prompt: %w", err)
	}

	modelName, modelVersion := w.llm.ModelName()
	inputFingerprint := sha256Hex(versionID + ":" + promptHash + ":" + sha256Hex(stableText))

	runID, err := w.store.CreateLLMRun(ctx, versionID, promptHash, inputFingerprint, modelName, modelVersion)
	if err != nil {
		return fmt.Errorf("llmderive: create run: %w", err)
	}

	output, err := w.llm.Run(ctx, promptTemplate+"\n\n"+stableText)
	if err != nil {
		if failErr := w.store.FailLLMRun(ctx, runID); failErr != nil {
			return fmt.Errorf("llmderive: mark run failed: %w", failErr)
		}
		return fmt.Errorf("llmderive: run llm: %w", err)
	}

	outputBytes := []byte(output)
	key := fmt.Sprintf("llm_outputs/%s/%s.txt", versionID, runID)
	uri, err := w.objects.PutIfAbsent(ctx, key, outputBytes, "text/plain")
	if err != nil {
		return fmt.Errorf("llmderive: write output: %w", err)
	}
	sum := sha256.Sum256(outputBytes)
	artifactID, err := w.store.RegisterArtifact(ctx, versionID, "llm_output", hex.EncodeToString(sum[:]), uri, "llm_orchestrator", "stub-0")
	if err != nil {
		return fmt.Errorf("llmderive: register output artifact: %w", err)
	}

	if err := w.store.CompleteLLMRun(ctx, runID, artifactID); err != nil {
		return fmt.Errorf("llmderive: complete run: %w", err)
	}

	details := map[string]any{"run_id": runID, "output_artifact_id": artifactID}
	if _, err := w.audit.Write(ctx, "version", versionID, "LLM.DERIVATION_COMPLETED", ev.Actor, ev.CorrelationID, details); err != nil {
		return fmt.Errorf("llmderive: audit completed: %w", err)
	}

	return w.producer.Publish(ctx, events.DomainEvent{
		EventType:     events.DerivationCompleted,
		CorrelationID: ev.CorrelationID,
		Actor:         ev.Actor,
		EntityType:    events.EntityVersion,
		EntityID:      versionID,
		Payload: map[string]any{
			"version_id":         versionID,
			"run_id":             runID,
			"output_artifact_id": artifactID,
		},
	})
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
