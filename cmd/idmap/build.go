package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/garyellow/admission-lists/internal/artifact"
	"github.com/garyellow/admission-lists/internal/catalog"
	"github.com/garyellow/admission-lists/internal/competition"
	apperrors "github.com/garyellow/admission-lists/internal/errors"
	"github.com/garyellow/admission-lists/internal/storage"
)

type buildOptions struct {
	catalog  string
	out      string
	goOut    string
	goPkg    string
	noStore  bool
	keepRuns int
}

func (c *cli) newBuildCmd() *cobra.Command {
	var opts buildOptions
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the competition id mapping from the admission catalogue",
		Long: `Reads the catalogue (file, URL or "-" for stdin), extracts the competition
list identifiers of every program and writes the mapping artifact. The run is
recorded in the local history database unless --no-store is given.

Records sharing a name keep the first occurrence. Names that differ only in
letter case are reported; with --strict they fail the build.`,
		Example: `  idmap build --catalog https://example.org/programs.json
  cat programs.json | idmap build --catalog - --out ids.json.zst --go-out resolver/ids.go`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.fail(cmd, c.runBuild(cmd, opts))
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.catalog, "catalog", "", "Catalogue location (default IDMAP_CATALOG_SOURCE)")
	f.StringVarP(&opts.out, "out", "o", "", "Artifact path, .zst compresses (default IDMAP_ARTIFACT_PATH)")
	f.StringVar(&opts.goOut, "go-out", "", "Also render the mapping as Go source to this path")
	f.StringVar(&opts.goPkg, "go-package", "", "Package name of the generated Go source (default resolver)")
	f.BoolVar(&c.strict, "strict", false, "Fail when program names differ only in letter case (or IDMAP_STRICT)")
	f.BoolVar(&opts.noStore, "no-store", false, "Do not record the run in the history database")
	f.IntVar(&opts.keepRuns, "keep-runs", 0, "After storing, prune history to the newest N runs (0 keeps all)")
	return cmd
}

func (c *cli) runBuild(cmd *cobra.Command, opts buildOptions) error {
	ctx := cmd.Context()
	source := firstNonEmpty(opts.catalog, c.cfg.CatalogSource)
	if source == "" {
		return apperrors.NewValidationError("catalog", "a catalogue location is required (--catalog or IDMAP_CATALOG_SOURCE)")
	}
	out := firstNonEmpty(opts.out, c.cfg.ArtifactPath)
	log := c.log.WithField("catalog", source)

	records, err := catalog.Load(ctx, c.loader(cmd), source)
	if err != nil {
		c.metrics.RecordBuildFailure("load")
		return err
	}
	log.WithField("records", len(records)).Debug("Catalogue loaded")

	build := competition.Build
	if c.strict || c.cfg.Strict {
		build = competition.BuildStrict
	}
	start := time.Now()
	m, stats, err := build(records)
	if err != nil {
		c.metrics.RecordBuildFailure(buildFailureStatus(err))
		return err
	}
	c.metrics.RecordBuild(stats.Unique, stats.Duplicates, len(stats.CaseCollisions), time.Since(start).Seconds())

	for _, group := range stats.CaseCollisions {
		log.WithField("names", group).Warn("Program names differ only in letter case")
	}

	runID := ""
	if !opts.noStore {
		runID, err = c.storeRun(cmd, source, m, stats, opts.keepRuns)
		if err != nil {
			return err
		}
	}

	if err := artifact.WriteFile(out, artifact.New(m, stats, source, runID, time.Now())); err != nil {
		return err
	}

	if opts.goOut != "" {
		src, err := artifact.RenderGo(m, artifact.GoOptions{Package: opts.goPkg})
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(opts.goOut), 0o755); err != nil {
			return fmt.Errorf("write go source: %w", err)
		}
		if err := os.WriteFile(opts.goOut, src, 0o644); err != nil {
			return fmt.Errorf("write go source: %w", err)
		}
	}

	withoutIDs := m.WithoutIDs()
	log.WithFields(map[string]any{
		"without_ids":     len(withoutIDs),
		"processed":       stats.Processed,
		"unique":          stats.Unique,
		"duplicates":      stats.Duplicates,
		"case_collisions": len(stats.CaseCollisions),
		"artifact":        out,
		"stored_run_id":   runID,
	}).Info("Mapping built")

	w := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(w, "✅ Built mapping: %d programs from %d records (%d duplicates skipped)\n",
		stats.Unique, stats.Processed, stats.Duplicates)
	if n := len(stats.CaseCollisions); n > 0 {
		_, _ = fmt.Fprintf(w, "⚠️  %d case collision group(s):\n", n)
		for _, group := range stats.CaseCollisions {
			_, _ = fmt.Fprintf(w, "   - %s\n", strings.Join(group, " / "))
		}
	}
	if n := len(withoutIDs); n > 0 {
		_, _ = fmt.Fprintf(w, "ℹ️  %d program(s) without competition ids: %s\n", n, strings.Join(withoutIDs, ", "))
	}
	_, _ = fmt.Fprintf(w, "📄 Artifact: %s\n", out)
	if opts.goOut != "" {
		_, _ = fmt.Fprintf(w, "📄 Go source: %s\n", opts.goOut)
	}
	if runID != "" {
		_, _ = fmt.Fprintf(w, "🗄️  Run: %s\n", runID)
	}
	return nil
}

func (c *cli) storeRun(cmd *cobra.Command, source string, m *competition.Mapping, stats competition.BuildStats, keep int) (string, error) {
	ctx := cmd.Context()
	db, err := storage.New(ctx, c.cfg.SQLitePath())
	if err != nil {
		return "", err
	}
	defer func() { _ = db.Close() }()

	run, err := db.SaveRun(ctx, source, m, stats)
	if err != nil {
		return "", err
	}
	if keep > 0 {
		removed, err := db.PruneRuns(ctx, keep)
		if err != nil {
			return "", err
		}
		if removed > 0 {
			c.log.WithField("removed", removed).Info("Pruned old runs")
		}
	}
	return run.ID, nil
}

func buildFailureStatus(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrCaseCollision):
		return "case_collision"
	case apperrors.IsInvalidInput(err):
		return "invalid_input"
	default:
		return "error"
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
