package expression

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/odataql/internal/testutil"
)

func TestScopeStack_PushPop(t *testing.T) {
	m := testutil.FlightModel()
	s := NewScopeStack(m.Set("flights"))

	assert.Equal(t, 1, s.Depth())
	assert.Equal(t, "flights", s.Top().Set.Name)
	assert.Equal(t, "$it", s.Root().Variable)

	s.PushEntitySet(m.Set("passengers"), "p")
	assert.Equal(t, 2, s.Depth())
	assert.Equal(t, "passenger", s.Top().Type.Name)
	assert.Equal(t, "flights", s.At(0).Set.Name)

	idx, ok := s.Lookup("p")
	assert.True(t, ok)
	assert.Equal(t, 1, idx)
	idx, ok = s.Lookup("$it")
	assert.True(t, ok)
	assert.Equal(t, 0, idx)
	_, ok = s.Lookup("q")
	assert.False(t, ok)

	assert.Equal(t, "passengers", s.PopEntitySet().Name)
	assert.Equal(t, 1, s.Depth())
}

func TestScopeStack_PopRootPanics(t *testing.T) {
	s := NewScopeStack(testutil.FlightModel().Set("flights"))
	assert.Panics(t, func() { s.Pop() })
}
