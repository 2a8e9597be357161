package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/garyellow/admission-lists/internal/audit"
	apperrors "github.com/garyellow/admission-lists/internal/errors"
	"github.com/garyellow/admission-lists/internal/registry"
	"github.com/garyellow/admission-lists/internal/storage"
)

// exitDiscrepancies is the exit code of a completed audit that found differences.
const exitDiscrepancies = 2

type auditOptions struct {
	registry   string
	format     string
	mapping    string
	output     string
	ignoreCase bool
	failOnDiff bool
	noStore    bool
}

func (c *cli) newAuditCmd() *cobra.Command {
	var opts auditOptions
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Compare registry program names with the mapping keys",
		Long: `Loads the program registry and the mapping keys in parallel and reports
names missing from either side plus pairs that differ only in letter case.

Names are compared literally, so a name whose counterpart differs only in
letter case is listed as missing on both sides and as a case mismatch.
--ignore-case treats such names as present and lists them as case
mismatches only.

The mapping is read from --mapping: an artifact file or URL, a generated Go
source file, or run:latest / run:<id> from the history database.`,
		Example: `  idmap audit --registry internal/programs/registry.go --fail-on-diff
  idmap audit --registry names.yaml --mapping run:latest --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.fail(cmd, c.runAudit(cmd, opts))
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.registry, "registry", "", "Registry location (default IDMAP_REGISTRY_SOURCE)")
	f.StringVar(&opts.format, "registry-format", "", "Registry format: go, gomap, yaml, text (default from extension)")
	f.StringVar(&opts.mapping, "mapping", "", "Mapping location (default IDMAP_ARTIFACT_PATH)")
	f.StringVar(&opts.output, "output", "text", "Report format: text or json")
	f.BoolVar(&opts.ignoreCase, "ignore-case", false, "Treat names differing only in letter case as present on both sides")
	f.BoolVar(&opts.failOnDiff, "fail-on-diff", false, "Exit with status 2 when discrepancies are found")
	f.BoolVar(&opts.noStore, "no-store", false, "Do not record the report in the history database")
	return cmd
}

func (c *cli) runAudit(cmd *cobra.Command, opts auditOptions) error {
	ctx := cmd.Context()

	registrySource := firstNonEmpty(opts.registry, c.cfg.RegistrySource)
	if registrySource == "" {
		return apperrors.NewValidationError("registry", "a registry location is required (--registry or IDMAP_REGISTRY_SOURCE)")
	}
	format, err := registry.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	write, err := reportWriter(opts.output)
	if err != nil {
		return err
	}
	mappingSource := firstNonEmpty(opts.mapping, c.cfg.ArtifactPath)

	src := c.loader(cmd)
	var (
		registryNames []string
		mapped        *loadedMapping
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		names, err := registry.Load(gctx, src, registrySource, format)
		registryNames = names
		return err
	})
	g.Go(func() error {
		m, err := c.loadMapping(gctx, src, mappingSource)
		mapped = m
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	compare := audit.Compare
	if opts.ignoreCase {
		compare = audit.CompareFolded
	}
	report := compare(audit.NewNameSet(registryNames...), audit.NewNameSet(mapped.names...))

	c.metrics.RecordAudit(len(report.MissingInMapping), len(report.MissingInRegistry), len(report.CaseMismatches))
	c.log.WithFields(map[string]any{
		"registry":            registrySource,
		"mapping":             mapped.source,
		"registry_size":       report.RegistrySize,
		"mapping_size":        report.MappingSize,
		"missing_in_mapping":  len(report.MissingInMapping),
		"missing_in_registry": len(report.MissingInRegistry),
		"case_mismatches":     len(report.CaseMismatches),
	}).Info("Audit complete")

	if !opts.noStore {
		if err := c.storeAudit(ctx, mapped.runID, registrySource, report); err != nil {
			return err
		}
	}

	if err := write(cmd.OutOrStdout(), report); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if opts.failOnDiff && !report.Consistent() {
		return &exitError{
			code: exitDiscrepancies,
			msg:  fmt.Sprintf("audit found %d discrepancies", report.Discrepancies()),
		}
	}
	return nil
}

// storeAudit records report, linking it to runID when that run is in the
// local history. Artifacts built elsewhere carry run IDs this database has
// never seen.
func (c *cli) storeAudit(ctx context.Context, runID, registrySource string, report audit.Report) error {
	db, err := storage.New(ctx, c.cfg.SQLitePath())
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if runID != "" {
		if _, err := db.GetRun(ctx, runID); errors.Is(err, storage.ErrNotFound) {
			c.log.WithField("audited_run_id", runID).Debug("Audited run not in local history, storing report unlinked")
			runID = ""
		} else if err != nil {
			return err
		}
	}
	_, err = db.SaveAudit(ctx, runID, registrySource, report)
	return err
}
