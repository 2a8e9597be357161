package sliceutil

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

type testItem struct {
	Name string
	URL  string
}

func TestDeduplicate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		items []testItem
		want  []testItem
	}{
		{
			name: "No duplicates",
			items: []testItem{
				{Name: "Астрономия", URL: "a"},
				{Name: "Экономика", URL: "b"},
			},
			want: []testItem{
				{Name: "Астрономия", URL: "a"},
				{Name: "Экономика", URL: "b"},
			},
		},
		{
			name: "With duplicates - preserve first",
			items: []testItem{
				{Name: "Социология", URL: "first"},
				{Name: "Экономика", URL: "b"},
				{Name: "Социология", URL: "second"},
			},
			want: []testItem{
				{Name: "Социология", URL: "first"},
				{Name: "Экономика", URL: "b"},
			},
		},
		{
			name: "Case differences are distinct keys",
			items: []testItem{
				{Name: "История", URL: "1011"},
				{Name: "история", URL: "2022"},
			},
			want: []testItem{
				{Name: "История", URL: "1011"},
				{Name: "история", URL: "2022"},
			},
		},
		{
			name:  "Empty slice",
			items: []testItem{},
			want:  []testItem{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Deduplicate(tt.items, func(i testItem) string { return i.Name })
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeduplicate_Large(t *testing.T) {
	t.Parallel()
	items := make([]int, 0, 2000)
	for i := 0; i < 1000; i++ {
		items = append(items, i, i)
	}

	got := Deduplicate(items, strconv.Itoa)
	assert.Len(t, got, 1000)
	assert.Equal(t, 0, got[0])
	assert.Equal(t, 999, got[len(got)-1])
}

func TestGroupBy(t *testing.T) {
	t.Parallel()
	items := []string{"Физика", "физика", "Химия", "ФИЗИКА"}

	groups := GroupBy(items, func(s string) int { return len([]rune(s)) })

	assert.Equal(t, []string{"Физика", "физика", "ФИЗИКА"}, groups[6])
	assert.Equal(t, []string{"Химия"}, groups[5])
}

func TestSortedKeys(t *testing.T) {
	t.Parallel()
	m := map[string]int{"б": 2, "а": 1, "в": 3}
	assert.Equal(t, []string{"а", "б", "в"}, SortedKeys(m))
	assert.Empty(t, SortedKeys(map[string]int{}))
}
