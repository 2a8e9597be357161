package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameSet(t *testing.T) {
	t.Parallel()
	s := NewNameSet("Физика", "Химия", "Физика")

	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Has("Физика"))
	assert.False(t, s.Has("физика"))

	s.Add("Астрономия")
	assert.Equal(t, []string{"Астрономия", "Физика", "Химия"}, s.Sorted())
}

func TestNameSet_Difference(t *testing.T) {
	t.Parallel()
	a := NewNameSet("Математика", "Механика")
	b := NewNameSet("математика", "Механика")

	assert.Equal(t, []string{"Математика"}, a.Difference(b))
	assert.Equal(t, []string{"математика"}, b.Difference(a))
	assert.Nil(t, a.Difference(a))
}
