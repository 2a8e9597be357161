package competition

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	apperrors "github.com/garyellow/admission-lists/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func applicantsURL(id string) string {
	return "https://cpk.msu.ru/rating/applicants/" + id
}

func TestBuild_FirstOccurrenceWins(t *testing.T) {
	t.Parallel()
	records := []ProgramRecord{
		{Name: "Социология", RegularBVIURL: applicantsURL("193423"), SpecialQuotaURL: applicantsURL("193424")},
		{Name: "Экономика", RegularBVIURL: applicantsURL("193378")},
		{Name: "Социология", RegularBVIURL: applicantsURL("999999"), TargetQuotaURL: applicantsURL("888888")},
	}

	m, stats, err := Build(records)
	require.NoError(t, err)

	assert.Equal(t, 2, m.Len())
	assert.Equal(t, BuildStats{Processed: 3, Unique: 2, Duplicates: 1}, stats)

	ids, ok := m.Get("Социология")
	require.True(t, ok)
	assert.Equal(t, CompetitionIDs{RegularBVI: "193423", SpecialQuota: "193424"}, ids)
}

func TestBuild_KeyCountEqualsDistinctNames(t *testing.T) {
	t.Parallel()
	var records []ProgramRecord
	distinct := map[string]struct{}{}
	for i := 0; i < 50; i++ {
		name := fmt.Sprintf("Программа %d", i%17)
		distinct[name] = struct{}{}
		records = append(records, ProgramRecord{Name: name, RegularBVIURL: applicantsURL(fmt.Sprint(i))})
	}

	m, stats, err := Build(records)
	require.NoError(t, err)
	assert.Equal(t, len(distinct), m.Len())
	assert.Equal(t, 50, stats.Processed)
	assert.Equal(t, 50-len(distinct), stats.Duplicates)

	// Program i%17 is first seen at i < 17, so its id is its own index.
	ids, ok := m.Get("Программа 5")
	require.True(t, ok)
	assert.Equal(t, "5", ids.RegularBVI)
}

func TestBuild_CaseSensitiveDedup(t *testing.T) {
	t.Parallel()
	records := []ProgramRecord{
		{Name: "История", RegularBVIURL: ".../applicants/1011"},
		{Name: "история", RegularBVIURL: ".../applicants/2022"},
	}

	m, stats, err := Build(records)
	require.NoError(t, err)
	assert.Equal(t, []string{"История", "история"}, m.Names())
	assert.Equal(t, [][]string{{"История", "история"}}, stats.CaseCollisions)

	ids, found := m.Lookup("ИСТОРИЯ")
	assert.True(t, found)
	assert.Contains(t, []string{"1011", "2022"}, ids.RegularBVI)

	// Sorted key order makes the tie-break deterministic.
	key, _, _ := m.Resolve("ИСТОРИЯ")
	assert.Equal(t, "История", key)
}

func TestBuild_MissingName(t *testing.T) {
	t.Parallel()
	records := []ProgramRecord{
		{Name: "Физика", RegularBVIURL: applicantsURL("1")},
		{Name: "   ", RegularBVIURL: applicantsURL("2")},
	}

	m, _, err := Build(records)
	require.Error(t, err)
	assert.Nil(t, m)

	var vErr *apperrors.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "records[1].name", vErr.Field)
	assert.True(t, apperrors.IsInvalidInput(err))
}

func TestBuild_Empty(t *testing.T) {
	t.Parallel()
	m, stats, err := Build(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, BuildStats{}, stats)

	_, found := m.Lookup("Физика")
	assert.False(t, found)
}

func TestBuildStrict(t *testing.T) {
	t.Parallel()

	_, _, err := BuildStrict([]ProgramRecord{{Name: "Химия"}, {Name: "ХИМИЯ"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrCaseCollision))

	m, _, err := BuildStrict([]ProgramRecord{{Name: "Химия"}, {Name: "Физика"}})
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())
}

func TestMapping_Lookup(t *testing.T) {
	t.Parallel()
	m, _, err := Build([]ProgramRecord{
		{Name: "Астрономия", RegularBVIURL: applicantsURL("193244"), DedicatedQuotaURL: applicantsURL("193246")},
		{Name: "Экономика", RegularBVIURL: applicantsURL("193378")},
	})
	require.NoError(t, err)

	tests := []struct {
		name      string
		query     string
		wantIDs   CompetitionIDs
		wantFound bool
	}{
		{"Exact match", "Астрономия", CompetitionIDs{RegularBVI: "193244", DedicatedQuota: "193246"}, true},
		{"Upper case query", "ЭКОНОМИКА", CompetitionIDs{RegularBVI: "193378"}, true},
		{"Lower case query", "астрономия", CompetitionIDs{RegularBVI: "193244", DedicatedQuota: "193246"}, true},
		{"Unknown name", "Механика", CompetitionIDs{}, false},
		{"Empty query", "", CompetitionIDs{}, false},
		{"Whitespace is significant", "Экономика ", CompetitionIDs{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ids, found := m.Lookup(tt.query)
			assert.Equal(t, tt.wantFound, found)
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestMapping_ExactMatchBeatsFold(t *testing.T) {
	t.Parallel()
	m, _, err := Build([]ProgramRecord{
		{Name: "ИСТОРИЯ", RegularBVIURL: applicantsURL("1")},
		{Name: "история", RegularBVIURL: applicantsURL("2")},
	})
	require.NoError(t, err)

	ids, ok := m.Lookup("история")
	require.True(t, ok)
	assert.Equal(t, "2", ids.RegularBVI)
}

func TestMapping_ReadOnly(t *testing.T) {
	t.Parallel()
	m, _, err := Build([]ProgramRecord{{Name: "Физика", RegularBVIURL: applicantsURL("10")}})
	require.NoError(t, err)

	entries := m.Entries()
	entries["Физика"] = CompetitionIDs{RegularBVI: "tampered"}
	entries["Химия"] = CompetitionIDs{}

	names := m.Names()
	names[0] = "tampered"

	ids, _ := m.Get("Физика")
	assert.Equal(t, "10", ids.RegularBVI)
	assert.Equal(t, []string{"Физика"}, m.Names())
	assert.Equal(t, 1, m.Len())
}

func TestNewMapping(t *testing.T) {
	t.Parallel()
	src := map[string]CompetitionIDs{"Математика": {RegularBVI: "5"}}
	m, err := NewMapping(src)
	require.NoError(t, err)

	src["Математика"] = CompetitionIDs{}
	ids, ok := m.Lookup("МАТЕМАТИКА")
	require.True(t, ok)
	assert.Equal(t, "5", ids.RegularBVI)

	_, err = NewMapping(map[string]CompetitionIDs{"": {}})
	assert.True(t, apperrors.IsInvalidInput(err))

	_, err = NewMapping(map[string]CompetitionIDs{"Физика": {SpecialQuota: "12a"}})
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidInput(err))
	assert.Contains(t, err.Error(), "special_quota")
}

func TestMapping_WithoutIDs(t *testing.T) {
	t.Parallel()
	m, _, err := Build([]ProgramRecord{
		{Name: "Физика", RegularBVIURL: applicantsURL("10")},
		{Name: "Химия"},
		{Name: "Астрономия", TargetQuotaURL: "https://portal/applicants/7?tab=1"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Астрономия", "Химия"}, m.WithoutIDs())
	assert.Nil(t, (*Mapping)(nil).WithoutIDs())
}

func TestMapping_NilSafe(t *testing.T) {
	t.Parallel()
	var m *Mapping
	_, found := m.Lookup("Физика")
	assert.False(t, found)
	assert.Equal(t, 0, m.Len())
	assert.Nil(t, m.Names())
	assert.Empty(t, m.Entries())
}

func TestMapping_ConcurrentLookup(t *testing.T) {
	t.Parallel()
	m, _, err := Build([]ProgramRecord{{Name: "Биотехнология", RegularBVIURL: applicantsURL("193562")}})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if _, ok := m.Lookup("биотехнология"); !ok {
					t.Error("concurrent lookup missed")
					return
				}
			}
		}()
	}
	wg.Wait()
}
