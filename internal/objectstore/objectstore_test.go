package objectstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURI(t *testing.T) {
	cases := []struct {
		uri        string
		wantScheme string
		wantKey    string
	}{
		{"s3://bucket/a/b/c.pdf", "s3", "a/b/c.pdf"},
		{"local://evidence/doc1/v1/f1.pdf", "local", "evidence/doc1/v1/f1.pdf"},
		{"mem://canonical/v1/stable_text.txt", "mem", "canonical/v1/stable_text.txt"},
	}
	for _, c := range cases {
		scheme, key, err := ParseURI(c.uri)
		require.NoError(t, err)
		assert.Equal(t, c.wantScheme, scheme)
		assert.Equal(t, c.wantKey, key)
	}
}

func TestParseURI_Unsupported(t *testing.T) {
	_, _, err := ParseURI("ftp://nope")
	assert.Error(t, err)
}

func TestMemoryStore_PutIfAbsentWriteOnce(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	uri1, err := s.PutIfAbsent(ctx, "k1", []byte("first"), "text/plain")
	require.NoError(t, err)

	uri2, err := s.PutIfAbsent(ctx, "k1", []byte("second"), "text/plain")
	require.NoError(t, err)
	assert.Equal(t, uri1, uri2)

	data, err := s.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
}

func TestMemoryStore_GetNotFound(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ExistsAndHead(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	ok, err := s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.PutIfAbsent(ctx, "k", []byte("abc"), "application/json")
	require.NoError(t, err)

	ok, err = s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	attrs, err := s.Head(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(3), attrs.Size)
	assert.Equal(t, "application/json", attrs.ContentType)
}

func TestMemoryStore_SignedURLNotFound(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.SignedURL(context.Background(), "nope", 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReadByURI(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	uri, err := s.PutIfAbsent(ctx, "some/key.json", []byte(`{"a":1}`), "application/json")
	require.NoError(t, err)

	data, err := ReadByURI(ctx, s, uri)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))
}

func TestLocalStore_PutIfAbsentWriteOnce(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewLocalStore(root)
	require.NoError(t, err)

	uri1, err := s.PutIfAbsent(ctx, "evidence/doc/ver/file.pdf", []byte("one"), "application/pdf")
	require.NoError(t, err)
	uri2, err := s.PutIfAbsent(ctx, "evidence/doc/ver/file.pdf", []byte("two"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, uri1, uri2)

	data, err := s.Get(ctx, "evidence/doc/ver/file.pdf")
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))

	assert.FileExists(t, filepath.Join(root, "evidence/doc/ver/file.pdf"))
}

func TestLocalStore_GetNotFound(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	_, err = s.Get(context.Background(), "missing.pdf")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore_ExistsAndHead(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ok, err := s.Exists(ctx, "x.txt")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.PutIfAbsent(ctx, "x.txt", []byte("hello"), "text/plain")
	require.NoError(t, err)

	ok, err = s.Exists(ctx, "x.txt")
	require.NoError(t, err)
	assert.True(t, ok)

	attrs, err := s.Head(ctx, "x.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(5), attrs.Size)
}

func TestLocalStore_SignedURLReturnsLocalScheme(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	_, err = s.PutIfAbsent(ctx, "a.txt", []byte("a"), "text/plain")
	require.NoError(t, err)

	url, err := s.SignedURL(ctx, "a.txt", 0)
	require.NoError(t, err)
	assert.Equal(t, "local://a.txt", url)
}
