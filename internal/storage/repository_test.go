package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/admission-lists/internal/audit"
	"github.com/garyellow/admission-lists/internal/competition"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func buildMapping(t *testing.T, records ...competition.ProgramRecord) (*competition.Mapping, competition.BuildStats) {
	t.Helper()
	m, stats, err := competition.Build(records)
	require.NoError(t, err)
	return m, stats
}

func TestSaveRunAndLoadMapping(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	m, stats := buildMapping(t,
		competition.ProgramRecord{
			Name:              "История",
			RegularBVIURL:     "https://portal/applicants/111",
			DedicatedQuotaURL: "https://portal/applicants/112",
		},
		competition.ProgramRecord{Name: "история", RegularBVIURL: "https://portal/applicants/222"},
		competition.ProgramRecord{Name: "История", RegularBVIURL: "https://portal/applicants/999"},
	)

	run, err := db.SaveRun(ctx, "programs.json", m, stats)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, 3, run.Processed)
	assert.Equal(t, 2, run.Unique)
	assert.Equal(t, 1, run.Duplicates)
	assert.Equal(t, 1, run.CaseCollisions)

	loaded, err := db.LoadMapping(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, m.Entries(), loaded.Entries())

	// case-distinct keys survive the round trip as separate rows
	ids, ok := loaded.Get("история")
	require.True(t, ok)
	assert.Equal(t, "222", ids.RegularBVI)
}

func TestGetRun_NotFound(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = db.LatestRun(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = db.LoadMapping(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListRunsAndLatest(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	var ids []string
	for _, source := range []string{"first", "second", "third"} {
		m, stats := buildMapping(t, competition.ProgramRecord{Name: source})
		run, err := db.SaveRun(ctx, source, m, stats)
		require.NoError(t, err)
		ids = append(ids, run.ID)
	}

	latest, err := db.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, ids[2], latest.ID)
	assert.Equal(t, "third", latest.Source)

	runs, err := db.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)
}

func TestPruneRuns(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	var last string
	for _, name := range []string{"a", "b", "c"} {
		m, stats := buildMapping(t, competition.ProgramRecord{Name: name})
		run, err := db.SaveRun(ctx, name, m, stats)
		require.NoError(t, err)
		last = run.ID
	}

	removed, err := db.PruneRuns(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	runs, err := db.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, last, runs[0].ID)

	var orphaned int
	require.NoError(t, db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM competition_ids WHERE run_id != ?`, last).Scan(&orphaned))
	assert.Zero(t, orphaned, "entries of pruned runs should cascade")
}

func TestSearchPrograms(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	m, stats := buildMapping(t,
		competition.ProgramRecord{Name: "Applied Mathematics"},
		competition.ProgramRecord{Name: "Mathematics"},
		competition.ProgramRecord{Name: "Physics"},
		competition.ProgramRecord{Name: "Quota_100%"},
	)
	run, err := db.SaveRun(ctx, "x", m, stats)
	require.NoError(t, err)

	names, err := db.SearchPrograms(ctx, run.ID, "math", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Applied Mathematics", "Mathematics"}, names)

	names, err = db.SearchPrograms(ctx, run.ID, "_100%", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Quota_100%"}, names)

	names, err = db.SearchPrograms(ctx, run.ID, "a_p", 10)
	require.NoError(t, err)
	assert.Empty(t, names, "underscore must not act as a wildcard")
}

func TestSaveAndLatestAudit(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.LatestAudit(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	m, stats := buildMapping(t, competition.ProgramRecord{Name: "Физика"})
	run, err := db.SaveRun(ctx, "x", m, stats)
	require.NoError(t, err)

	report := audit.Compare(
		audit.NewNameSet("Математика", "Механика"),
		audit.NewNameSet("математика", "Физика"),
	)
	saved, err := db.SaveAudit(ctx, run.ID, "registry.go", report)
	require.NoError(t, err)

	latest, err := db.LatestAudit(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, latest.ID)
	assert.Equal(t, run.ID, latest.RunID)
	assert.Equal(t, "registry.go", latest.RegistrySource)
	assert.Equal(t, report, latest.Report)

	// audits without a stored run
	_, err = db.SaveAudit(ctx, "", "registry.yaml", audit.Compare(audit.NewNameSet(), audit.NewNameSet()))
	require.NoError(t, err)
	latest, err = db.LatestAudit(ctx)
	require.NoError(t, err)
	assert.Empty(t, latest.RunID)
	assert.True(t, latest.Report.Consistent())
}
