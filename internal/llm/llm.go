// Package llm provides a pluggable client for the derived-only
// primary-axis/summarization suggestions produced downstream of ingestion.
// Output from this package is never treated as truth: llmderive stores it
// as an llm_output derived artifact and never writes documents.primary_axis.
//
// Grounded on original_source/app/services/llm_orchestrator.py, with the
// functional-options collaborator-injection pattern from
// internal/rag/service/service.go.
package llm

import "context"

// Client runs a single completion for a stable prompt and returns the raw
// model output text.
type Client interface {
	Run(ctx context.Context, prompt string) (string, error)
}

// Option configures a Service during construction.
type Option func(*Service)

// WithClient overrides the default collaborator.
func WithClient(c Client) Option { return func(s *Service) { s.client = c } }

// WithModel overrides the reported model name/version.
func WithModel(name, version string) Option {
	return func(s *Service) { s.modelName, s.modelVersion = name, version }
}

// Service runs prompts through a Client and reports which model produced
// the output, for audit/provenance.
type Service struct {
	client       Client
	modelName    string
	modelVersion string
}

// New builds a Service, defaulting to a FakeClient so the pipeline runs
// deterministically unless a Client is supplied (cmd/llmworker supplies
// the Anthropic client only when ANTHROPIC_API_KEY is set).
func New(opts ...Option) *Service {
	s := &Service{
		client:       NewFakeClient(),
		modelName:    "stub-rule-suggestion",
		modelVersion: "v1",
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ModelName reports the configured model identity.
func (s *Service) ModelName() (name, version string) { return s.modelName, s.modelVersion }

// Run delegates to the configured Client.
func (s *Service) Run(ctx context.Context, prompt string) (string, error) {
	return s.client.Run(ctx, prompt)
}
