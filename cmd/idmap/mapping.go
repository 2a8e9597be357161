package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyellow/admission-lists/internal/artifact"
	"github.com/garyellow/admission-lists/internal/competition"
	apperrors "github.com/garyellow/admission-lists/internal/errors"
	"github.com/garyellow/admission-lists/internal/registry"
	"github.com/garyellow/admission-lists/internal/storage"
)

const runPrefix = "run:"

// source loads raw bytes by location. *fetch.Loader satisfies it.
type source interface {
	Load(ctx context.Context, location string) ([]byte, error)
}

// loadedMapping is a mapping read back from one of its published forms.
type loadedMapping struct {
	source  string
	names   []string
	mapping *competition.Mapping // nil when only the keys are known
	runID   string
}

// loadMapping resolves a --mapping location:
//
//	run:latest, run:<id>   a run stored in the history database
//	*.go                   a generated Go source file (keys only)
//	anything else          an artifact file or URL, optionally zstd-compressed
func (c *cli) loadMapping(ctx context.Context, src source, location string) (*loadedMapping, error) {
	switch {
	case strings.HasPrefix(location, runPrefix):
		return c.loadStoredMapping(ctx, strings.TrimPrefix(location, runPrefix))

	case registry.DetectFormat(location) == registry.FormatGoSource:
		names, err := registry.Load(ctx, src, location, registry.FormatGoMapping)
		if err != nil {
			return nil, err
		}
		return &loadedMapping{source: location, names: names}, nil

	default:
		data, err := src.Load(ctx, location)
		if err != nil {
			return nil, fmt.Errorf("load artifact: %w", err)
		}
		a, err := artifact.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("load artifact %s: %w", location, err)
		}
		m, err := a.Mapping()
		if err != nil {
			return nil, err
		}
		return &loadedMapping{source: location, names: m.Names(), mapping: m, runID: a.RunID}, nil
	}
}

func (c *cli) loadStoredMapping(ctx context.Context, ref string) (*loadedMapping, error) {
	db, err := storage.New(ctx, c.cfg.SQLitePath())
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	var run *storage.Run
	if ref == "" || ref == "latest" {
		run, err = db.LatestRun(ctx)
	} else {
		run, err = db.GetRun(ctx, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("stored run %q: %w", ref, err)
	}

	m, err := db.LoadMapping(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	return &loadedMapping{source: runPrefix + run.ID, names: m.Names(), mapping: m, runID: run.ID}, nil
}

// requireIDs rejects mappings loaded from Go sources, which carry no identifiers.
func (lm *loadedMapping) requireIDs() (*competition.Mapping, error) {
	if lm.mapping == nil {
		return nil, fmt.Errorf("%w: %s holds program names only, use an artifact or run:<id>",
			apperrors.ErrUnsupportedFormat, lm.source)
	}
	return lm.mapping, nil
}
