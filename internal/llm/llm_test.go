package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeClient_Deterministic(t *testing.T) {
	c := NewFakeClient()
	out1, err := c.Run(context.Background(), "some prompt")
	require.NoError(t, err)
	out2, err := c.Run(context.Background(), "some prompt")
	require.NoError(t, err)
	assert.Equal(t, out1, out2)
}

func TestNew_DefaultsToFakeClient(t *testing.T) {
	svc := New()
	name, version := svc.ModelName()
	assert.Equal(t, "stub-rule-suggestion", name)
	assert.Equal(t, "v1", version)

	out, err := svc.Run(context.Background(), "abc")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

type erroringClient struct{}

func (erroringClient) Run(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("boom")
}

func TestWithClientOverride(t *testing.T) {
	svc := New(WithClient(erroringClient{}))
	_, err := svc.Run(context.Background(), "x")
	assert.Error(t, err)
}

func TestWithModelOverride(t *testing.T) {
	svc := New(WithModel("claude-test", "2026-01"))
	name, version := svc.ModelName()
	assert.Equal(t, "claude-test", name)
	assert.Equal(t, "2026-01", version)
}
