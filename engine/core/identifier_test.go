package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentifierPoolReusesReleasedSlots(t *testing.T) {
	p := NewIdentifierPool(4)

	a := p.Acquire("a")
	b := p.Acquire("b")
	c := p.Acquire("c")
	assert.Equal(t, []uint32{0, 1, 2}, []uint32{a, b, c})

	require.NoError(t, p.Release(b))
	assert.Nil(t, p.Owner(b))
	assert.Equal(t, 2, p.InUse())

	d := p.Acquire("d")
	assert.Equal(t, b, d, "released slot should be handed out first")
	assert.Equal(t, "d", p.Owner(d))
}

func TestIdentifierPoolReleaseErrors(t *testing.T) {
	p := NewIdentifierPool(0)
	require.Error(t, p.Release(0), "release before acquire")

	id := p.Acquire(struct{}{})
	require.Error(t, p.Release(id+1), "out of range")
	require.NoError(t, p.Release(id))
	require.Error(t, p.Release(id), "double release")
}

func TestIdentifierPoolReset(t *testing.T) {
	p := NewIdentifierPool(2)
	p.Acquire(1)
	p.Acquire(2)
	p.Reset()
	assert.Equal(t, 0, p.InUse())
	assert.Equal(t, uint32(0), p.Acquire(3))
}
