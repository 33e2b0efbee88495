// Package blob stores request document files. Two backends exist: a local
// filesystem store for development and tests, and a MinIO object store for
// deployments. Stored names are opaque and safe to embed in URLs.
package blob

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"

	"smartcity/internal/config"

	"github.com/google/uuid"
)

// Store persists document blobs keyed by request ID and a generated stored
// name. Implementations must never trust originalName for path construction.
type Store interface {
	// Put writes data and returns the generated stored name.
	Put(ctx context.Context, requestID, originalName string, data []byte) (string, error)
	// Get opens a stored blob for reading. Callers close the reader.
	Get(ctx context.Context, requestID, storedName string) (io.ReadCloser, error)
	// Delete removes a single blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, requestID, storedName string) error
	// DeleteAll removes every blob stored under a request.
	DeleteAll(ctx context.Context, requestID string) error
}

// NewStore builds the backend selected by configuration.
func NewStore(cfg *config.Config) (Store, error) {
	switch cfg.BlobBackend {
	case "minio":
		return NewMinioStore(cfg)
	case "local":
		return NewLocalStore(cfg.UploadDir), nil
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
	}
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// buildStoredName produces "<uuid>_<sanitized original>". The UUID prefix
// guarantees uniqueness; the sanitized suffix keeps downloads recognizable.
func buildStoredName(originalName string) string {
	base := path.Base(originalName)
	safe := unsafeNameChars.ReplaceAllString(base, "_")
	if safe == "" || safe == "." || safe == ".." {
		safe = "file"
	}
	return uuid.NewString() + "_" + safe
}

// validStoredName rejects anything that could escape the request's directory.
var validStoredName = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

func checkStoredName(storedName string) error {
	if !validStoredName.MatchString(storedName) {
		return fmt.Errorf("invalid stored name %q", storedName)
	}
	return nil
}
