package objectstore

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

// LocalStore implements Store against a local filesystem root.
// Grounded on original_source/app/infra/storage.py::LocalStorage, restated
// with manifold's objectstore package shape.
type LocalStore struct {
	root string
}

// NewLocalStore creates (if needed) and returns a filesystem-backed store
// rooted at root.
func NewLocalStore(root string) (*LocalStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return &LocalStore{root: abs}, nil
}

func (l *LocalStore) path(key string) string {
	return filepath.Join(l.root, filepath.FromSlash(key))
}

func (l *LocalStore) uri(key string) string {
	return "local://" + key
}

// PutIfAbsent writes data at key unless the file already exists.
func (l *LocalStore) PutIfAbsent(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	p := l.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", err
	}
	if _, err := os.Stat(p); err == nil {
		return l.uri(key), nil
	} else if !os.IsNotExist(err) {
		return "", err
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", err
	}
	return l.uri(key), nil
}

// Get reads the full file contents at key.
func (l *LocalStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(l.path(key))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return data, err
}

// Exists reports whether a file exists at key.
func (l *LocalStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(l.path(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Head returns file metadata at key.
func (l *LocalStore) Head(ctx context.Context, key string) (ObjectAttrs, error) {
	fi, err := os.Stat(l.path(key))
	if os.IsNotExist(err) {
		return ObjectAttrs{}, ErrNotFound
	}
	if err != nil {
		return ObjectAttrs{}, err
	}
	return ObjectAttrs{
		Key:          key,
		Size:         fi.Size(),
		LastModified: fi.ModTime(),
	}, nil
}

// SignedURL has no meaning for a local filesystem; it returns the
// local://{key} storage URI directly, not a file:// URI or a filesystem
// path, and carries no signature or expiry.
func (l *LocalStore) SignedURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	exists, err := l.Exists(ctx, key)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", ErrNotFound
	}
	return l.uri(key), nil
}
