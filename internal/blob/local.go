package blob

import (
	"context"
	"io"
	"os"
	"path/filepath"
)

// LocalStore keeps blobs on disk under root/<requestID>/<storedName>.
type LocalStore struct {
	root string
}

// NewLocalStore creates a filesystem-backed store rooted at dir.
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{root: dir}
}

func (s *LocalStore) Put(_ context.Context, requestID, originalName string, data []byte) (string, error) {
	storedName := buildStoredName(originalName)
	dir := filepath.Join(s.root, requestID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, storedName), data, 0o600); err != nil {
		return "", err
	}
	return storedName, nil
}

func (s *LocalStore) Get(_ context.Context, requestID, storedName string) (io.ReadCloser, error) {
	if err := checkStoredName(storedName); err != nil {
		return nil, err
	}
	// #nosec G304: storedName is validated against a strict character set
	return os.Open(filepath.Join(s.root, requestID, storedName))
}

func (s *LocalStore) Delete(_ context.Context, requestID, storedName string) error {
	if err := checkStoredName(storedName); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.root, requestID, storedName))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *LocalStore) DeleteAll(_ context.Context, requestID string) error {
	return os.RemoveAll(filepath.Join(s.root, requestID))
}
