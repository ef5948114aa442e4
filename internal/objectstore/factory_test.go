package objectstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regulation-registry/core/internal/config"
)

func TestNew_LocalMode(t *testing.T) {
	cfg := config.Config{StorageMode: "local", StorageRoot: t.TempDir()}
	store, err := New(context.Background(), cfg)
	require.NoError(t, err)
	_, ok := store.(*LocalStore)
	assert.True(t, ok)
}

func TestNew_UnknownMode(t *testing.T) {
	cfg := config.Config{StorageMode: "nfs"}
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}
