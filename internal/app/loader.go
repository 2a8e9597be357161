package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/garyellow/admission-lists/internal/artifact"
	"github.com/garyellow/admission-lists/internal/competition"
	"github.com/garyellow/admission-lists/internal/logger"
	"github.com/garyellow/admission-lists/internal/metrics"
	"github.com/garyellow/admission-lists/internal/server"
	"github.com/garyellow/admission-lists/internal/storage"
	"github.com/garyellow/admission-lists/internal/timeouts"
)

// RunStore is the subset of *storage.DB the loader falls back to.
type RunStore interface {
	LatestRun(ctx context.Context) (*storage.Run, error)
	LoadMapping(ctx context.Context, runID string) (*competition.Mapping, error)
}

// SnapshotLoader loads the served mapping from the first source that has one:
// the published R2 artifact, the local artifact file, then the latest stored run.
type SnapshotLoader struct {
	Store        artifact.ObjectStore // nil skips R2
	Key          string
	ArtifactPath string   // empty skips the file
	Runs         RunStore // nil skips the database
	Metrics      *metrics.Metrics
	Logger       *logger.Logger

	mu       sync.Mutex
	lastETag string
	last     *server.Snapshot // snapshot decoded from the object with lastETag
}

// objectHeader is implemented by stores that report an object's ETag without
// downloading it, such as *r2client.Client.
type objectHeader interface {
	HeadObject(ctx context.Context, key string) (string, error)
}

// Load implements server.LoadFunc.
func (l *SnapshotLoader) Load(ctx context.Context) (*server.Snapshot, error) {
	var errs []error

	if l.Store != nil {
		s, err := l.fromStore(ctx)
		if err == nil {
			return l.loaded(s), nil
		}
		errs = append(errs, fmt.Errorf("r2 %s: %w", l.Key, err))
	}

	if l.ArtifactPath != "" {
		s, err := l.fromFile()
		if err == nil {
			return l.loaded(s), nil
		}
		errs = append(errs, fmt.Errorf("file %s: %w", l.ArtifactPath, err))
	}

	if l.Runs != nil {
		s, err := l.fromRuns(ctx)
		if err == nil {
			return l.loaded(s), nil
		}
		errs = append(errs, fmt.Errorf("database: %w", err))
	}

	if len(errs) == 0 {
		return nil, errors.New("no mapping source configured")
	}
	return nil, errors.Join(errs...)
}

func (l *SnapshotLoader) loaded(s *server.Snapshot) *server.Snapshot {
	l.Metrics.SetMappingSize(s.Mapping.Len())
	if l.Logger != nil {
		l.Logger.WithFields(map[string]any{
			"source":   s.Source,
			"run_id":   s.RunID,
			"programs": s.Mapping.Len(),
		}).Debug("Mapping snapshot loaded")
	}
	return s
}

func (l *SnapshotLoader) fromStore(ctx context.Context) (*server.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.R2Operation)
	defer cancel()

	if s := l.unchanged(ctx); s != nil {
		return s, nil
	}

	a, etag, err := artifact.Fetch(ctx, l.Store, l.Key)
	if err != nil {
		return nil, err
	}
	s, err := snapshotFromArtifact(a, "r2:"+l.Key)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.lastETag, l.last = etag, s
	l.mu.Unlock()
	return s, nil
}

// unchanged returns the previously decoded snapshot when the stored object
// still has the same ETag, or nil when it must be downloaded.
func (l *SnapshotLoader) unchanged(ctx context.Context) *server.Snapshot {
	header, ok := l.Store.(objectHeader)
	if !ok {
		return nil
	}
	l.mu.Lock()
	etag, last := l.lastETag, l.last
	l.mu.Unlock()
	if last == nil || etag == "" {
		return nil
	}

	current, err := header.HeadObject(ctx, l.Key)
	if err != nil || current != etag {
		return nil
	}
	return last
}

func (l *SnapshotLoader) fromFile() (*server.Snapshot, error) {
	a, err := artifact.ReadFile(l.ArtifactPath)
	if err != nil {
		return nil, err
	}
	return snapshotFromArtifact(a, l.ArtifactPath)
}

func (l *SnapshotLoader) fromRuns(ctx context.Context) (*server.Snapshot, error) {
	run, err := l.Runs.LatestRun(ctx)
	if err != nil {
		return nil, err
	}
	m, err := l.Runs.LoadMapping(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	return &server.Snapshot{
		Mapping:     m,
		Source:      "run:" + run.Source,
		RunID:       run.ID,
		GeneratedAt: run.CreatedAt,
	}, nil
}

func snapshotFromArtifact(a *artifact.Artifact, source string) (*server.Snapshot, error) {
	m, err := a.Mapping()
	if err != nil {
		return nil, err
	}
	return &server.Snapshot{
		Mapping:     m,
		Source:      source,
		RunID:       a.RunID,
		GeneratedAt: a.GeneratedAt,
	}, nil
}
