package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEvent struct {
	eventID, entityType, entityID, action, actor, correlationID string
	detailsJSON                                                 []byte
	prevEventHash, eventHash                                    *string
}

type fakeStore struct {
	byEntity map[string][]fakeEvent
}

func newFakeStore() *fakeStore {
	return &fakeStore{byEntity: make(map[string][]fakeEvent)}
}

func (f *fakeStore) LastEventHashForEntity(ctx context.Context, entityType, entityID string) (string, error) {
	key := entityType + "/" + entityID
	rows := f.byEntity[key]
	if len(rows) == 0 {
		return "", nil
	}
	last := rows[len(rows)-1]
	if last.eventHash == nil {
		return "", nil
	}
	return *last.eventHash, nil
}

func (f *fakeStore) InsertAuditEvent(ctx context.Context, eventID, entityType, entityID, action, actor, correlationID string, detailsJSON []byte, prevEventHash, eventHash *string) error {
	key := entityType + "/" + entityID
	f.byEntity[key] = append(f.byEntity[key], fakeEvent{
		eventID: eventID, entityType: entityType, entityID: entityID, action: action,
		actor: actor, correlationID: correlationID, detailsJSON: detailsJSON,
		prevEventHash: prevEventHash, eventHash: eventHash,
	})
	return nil
}

func TestWrite_FirstEventHasNoPrevHash(t *testing.T) {
	store := newFakeStore()
	svc := New(store)

	eventID, err := svc.Write(context.Background(), "version", "v1", "REGISTRY.VERSION_CREATED", "alice", "corr-1", map[string]any{"k": "v"})
	require.NoError(t, err)
	assert.NotEmpty(t, eventID)

	rows := store.byEntity["version/v1"]
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].prevEventHash)
	require.NotNil(t, rows[0].eventHash)
	assert.Len(t, *rows[0].eventHash, 64)
}

func TestWrite_ChainsToPriorHash(t *testing.T) {
	store := newFakeStore()
	svc := New(store)

	_, err := svc.Write(context.Background(), "version", "v1", "REGISTRY.VERSION_CREATED", "alice", "corr-1", map[string]any{"a": 1})
	require.NoError(t, err)
	_, err = svc.Write(context.Background(), "version", "v1", "INGESTION.COMPLETED", "alice", "corr-1", map[string]any{"b": 2})
	require.NoError(t, err)

	rows := store.byEntity["version/v1"]
	require.Len(t, rows, 2)
	require.NotNil(t, rows[0].eventHash)
	require.NotNil(t, rows[1].prevEventHash)
	assert.Equal(t, *rows[0].eventHash, *rows[1].prevEventHash)
	assert.NotEqual(t, *rows[0].eventHash, *rows[1].eventHash)
}

func TestWrite_PerEntityChainsAreIndependent(t *testing.T) {
	store := newFakeStore()
	svc := New(store)

	_, err := svc.Write(context.Background(), "version", "v1", "REGISTRY.VERSION_CREATED", "alice", "corr-1", map[string]any{})
	require.NoError(t, err)
	_, err = svc.Write(context.Background(), "version", "v2", "REGISTRY.VERSION_CREATED", "alice", "corr-2", map[string]any{})
	require.NoError(t, err)

	rows1 := store.byEntity["version/v1"]
	rows2 := store.byEntity["version/v2"]
	require.Len(t, rows1, 1)
	require.Len(t, rows2, 1)
	assert.Nil(t, rows1[0].prevEventHash)
	assert.Nil(t, rows2[0].prevEventHash)
}

func TestWrite_HashDiffersAcrossEntities(t *testing.T) {
	// Two independent chains with identical action/actor/correlation/details
	// but different entity ids must not collide on the same hash (entity_id
	// is part of the hashed payload).
	store := newFakeStore()
	svc := New(store)

	_, err := svc.Write(context.Background(), "version", "v1", "ACTION", "alice", "corr", map[string]any{"x": 1})
	require.NoError(t, err)
	_, err = svc.Write(context.Background(), "version", "v2", "ACTION", "alice", "corr", map[string]any{"x": 1})
	require.NoError(t, err)

	h1 := *store.byEntity["version/v1"][0].eventHash
	h2 := *store.byEntity["version/v2"][0].eventHash
	assert.NotEqual(t, h1, h2)
}
