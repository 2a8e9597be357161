package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	apperrors "github.com/garyellow/admission-lists/internal/errors"
	"github.com/garyellow/admission-lists/internal/r2client"
)

const contentType = "application/zstd"

// ObjectStore is the subset of *r2client.Client used for publishing.
type ObjectStore interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	PutObjectIfNotExists(ctx context.Context, key string, body io.Reader, contentType string) (bool, string, error)
	Download(ctx context.Context, key string) (io.ReadCloser, string, error)
}

// PublishResult describes an upload.
type PublishResult struct {
	Key        string `json:"key"`
	ETag       string `json:"etag"`
	ArchiveKey string `json:"archive_key,omitempty"`
	Archived   bool   `json:"archived"` // false when the archive copy already existed
	Size       int    `json:"size"`
}

// ArchiveKey returns the immutable per-run key stored next to key.
func ArchiveKey(key, runID string) string {
	return path.Join(path.Dir(key), "runs", runID+".json.zst")
}

// Publish uploads the compressed artifact to key, overwriting it. When the
// artifact has a run ID, a copy is also written to ArchiveKey unless one
// already exists.
func Publish(ctx context.Context, store ObjectStore, key string, a *Artifact) (*PublishResult, error) {
	data, err := Encode(a, true)
	if err != nil {
		return nil, err
	}

	etag, err := store.Upload(ctx, key, bytes.NewReader(data), contentType)
	if err != nil {
		return nil, fmt.Errorf("publish artifact: %w", err)
	}
	result := &PublishResult{Key: key, ETag: etag, Size: len(data)}

	if a.RunID != "" {
		result.ArchiveKey = ArchiveKey(key, a.RunID)
		created, _, err := store.PutObjectIfNotExists(ctx, result.ArchiveKey, bytes.NewReader(data), contentType)
		if err != nil {
			return nil, fmt.Errorf("publish artifact archive: %w", err)
		}
		result.Archived = created
	}
	return result, nil
}

// Fetch downloads and decodes the artifact stored at key. It also returns the
// object's ETag so callers can skip unchanged downloads.
func Fetch(ctx context.Context, store ObjectStore, key string) (*Artifact, string, error) {
	body, etag, err := store.Download(ctx, key)
	if err != nil {
		if errors.Is(err, r2client.ErrNotFound) {
			return nil, "", apperrors.NewSourceError(key, 0, fmt.Errorf("%w: %w", apperrors.ErrNotFound, err))
		}
		return nil, "", fmt.Errorf("fetch artifact: %w", err)
	}
	defer func() { _ = body.Close() }()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, "", fmt.Errorf("fetch artifact: read: %w", err)
	}
	a, err := Decode(data)
	if err != nil {
		return nil, "", err
	}
	return a, etag, nil
}
