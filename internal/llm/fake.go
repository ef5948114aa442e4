package llm

import (
	"context"
	"fmt"
)

// FakeClient is the default Client: it never calls out to a real model,
// returning a short deterministic placeholder so ingestion stays
// reproducible when no real LLM collaborator is configured.
type FakeClient struct{}

// NewFakeClient returns the default no-dependency Client.
func NewFakeClient() *FakeClient { return &FakeClient{} }

func (FakeClient) Run(ctx context.Context, prompt string) (string, error) {
	return fmt.Sprintf("[stub output for %d-char prompt]", len(prompt)), nil
}
