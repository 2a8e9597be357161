// Package artifact serializes a competition id mapping for consumers: a JSON
// document, optionally zstd-compressed, and a generated Go source file.
package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/garyellow/admission-lists/internal/competition"
	apperrors "github.com/garyellow/admission-lists/internal/errors"
	"github.com/garyellow/admission-lists/internal/r2client"
	"github.com/garyellow/admission-lists/internal/stringutil"
)

// zstdMagic is the frame header of a zstd stream.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Artifact is the serialized form of a built mapping.
type Artifact struct {
	GeneratedAt time.Time                             `json:"generated_at"`
	Source      string                                `json:"source"`
	RunID       string                                `json:"run_id,omitempty"`
	Stats       competition.BuildStats                `json:"stats"`
	Programs    map[string]competition.CompetitionIDs `json:"programs"`
}

// New captures m and its build statistics.
func New(m *competition.Mapping, stats competition.BuildStats, source, runID string, now time.Time) *Artifact {
	return &Artifact{
		GeneratedAt: now.UTC().Truncate(time.Second),
		Source:      source,
		RunID:       runID,
		Stats:       stats,
		Programs:    m.Entries(),
	}
}

// Mapping rebuilds the lookup structure from the artifact.
func (a *Artifact) Mapping() (*competition.Mapping, error) {
	return competition.NewMapping(a.Programs)
}

// Encode renders the artifact as indented JSON with keys in sorted order,
// zstd-compressed when compress is set.
func Encode(a *Artifact, compress bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(a); err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	if !compress {
		return buf.Bytes(), nil
	}
	return r2client.Compress(buf.Bytes())
}

// Decode parses an artifact, decompressing it first when it is a zstd stream.
func Decode(data []byte) (*Artifact, error) {
	if bytes.HasPrefix(data, zstdMagic) {
		raw, err := r2client.Decompress(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode artifact: %w", err)
		}
		data = raw
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w: decode artifact: %w", apperrors.ErrInvalidInput, err)
	}
	if a.Programs == nil {
		return nil, apperrors.NewValidationError("programs", "artifact has no programs")
	}
	for name := range a.Programs {
		if stringutil.IsBlank(name) {
			return nil, apperrors.NewValidationError("programs", "program name is required")
		}
	}
	return &a, nil
}

// IsCompressedPath reports whether path names a zstd artifact.
func IsCompressedPath(path string) bool {
	return filepath.Ext(path) == ".zst"
}

// WriteFile writes the artifact to path, compressed when path ends in .zst.
// The file is replaced atomically.
func WriteFile(path string, a *Artifact) error {
	data, err := Encode(a, IsCompressedPath(path))
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("write artifact: create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}

// ReadFile reads and decodes the artifact at path.
func ReadFile(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewSourceError(path, 0, fmt.Errorf("%w: %w", apperrors.ErrNotFound, err))
		}
		return nil, apperrors.NewSourceError(path, 0, err)
	}
	return Decode(data)
}
