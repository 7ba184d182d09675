package systems

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/headless"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	colorInfo = metadata.TextureInfo(metadata.NewTexture2D(gputypes.TextureFormatRGBA8Unorm, 64, 64))
	depthInfo = metadata.TextureInfo(metadata.NewTexture2D(gputypes.TextureFormatDepth32Float, 64, 64))
)

func newTestAllocator(t *testing.T, config AllocatorConfig) (*PhysicalResourceAllocator, *headless.Backend) {
	t.Helper()
	backend := headless.New(0)
	pa, err := NewPhysicalResourceAllocator(backend, config)
	require.NoError(t, err)
	return pa, backend
}

func TestNewPhysicalResourceAllocatorRequiresBackend(t *testing.T) {
	_, err := NewPhysicalResourceAllocator(nil, AllocatorConfig{})
	assert.Error(t, err)
}

func TestAllocatorAliasesDisjointLifetimes(t *testing.T) {
	pa, backend := newTestAllocator(t, AllocatorConfig{})
	pa.BeginFrame()

	a, err := pa.GetOrAllocate(colorInfo, metadata.Lifetime{Begin: 0, End: 1})
	require.NoError(t, err)
	b, err := pa.GetOrAllocate(colorInfo, metadata.Lifetime{Begin: 1, End: 2})
	require.NoError(t, err)
	c, err := pa.GetOrAllocate(colorInfo, metadata.Lifetime{Begin: 2, End: 3})
	require.NoError(t, err)

	assert.NotSame(t, a, b, "touching lifetimes overlap")
	assert.Same(t, a, c)
	assert.Equal(t, 2, backend.Stats().LiveObjects)
}

func TestAllocatorNeverAliasesIncompatible(t *testing.T) {
	pa, _ := newTestAllocator(t, AllocatorConfig{})
	pa.BeginFrame()

	a, err := pa.GetOrAllocate(colorInfo, metadata.Lifetime{Begin: 0, End: 0})
	require.NoError(t, err)
	b, err := pa.GetOrAllocate(depthInfo, metadata.Lifetime{Begin: 1, End: 1})
	require.NoError(t, err)
	assert.NotSame(t, a, b)
}

func TestAllocatorPrefersMostRecentlyFreed(t *testing.T) {
	pa, _ := newTestAllocator(t, AllocatorConfig{})
	pa.BeginFrame()

	early, err := pa.GetOrAllocate(colorInfo, metadata.Lifetime{Begin: 0, End: 1})
	require.NoError(t, err)
	late, err := pa.GetOrAllocate(colorInfo, metadata.Lifetime{Begin: 1, End: 3})
	require.NoError(t, err)
	require.NotSame(t, early, late)

	got, err := pa.GetOrAllocate(colorInfo, metadata.Lifetime{Begin: 4, End: 5})
	require.NoError(t, err)
	assert.Same(t, late, got)
}

func TestAllocatorReusesAcrossFrames(t *testing.T) {
	pa, backend := newTestAllocator(t, AllocatorConfig{})

	var first []*metadata.PhysicalResource
	for frame := 0; frame < 3; frame++ {
		pa.BeginFrame()
		a, err := pa.GetOrAllocate(colorInfo, metadata.Lifetime{Begin: 0, End: 1})
		require.NoError(t, err)
		b, err := pa.GetOrAllocate(colorInfo, metadata.Lifetime{Begin: 1, End: 2})
		require.NoError(t, err)
		if frame == 0 {
			first = []*metadata.PhysicalResource{a, b}
			continue
		}
		assert.ElementsMatch(t, first, []*metadata.PhysicalResource{a, b})
		assert.Equal(t, uint64(frame+1), a.LastUsedFrame)
	}
	assert.Equal(t, uint64(2), backend.Stats().Allocations)

	st := pa.Stats()
	assert.Equal(t, uint64(3), st.Frame)
	assert.Equal(t, uint64(4), st.Hits)
	assert.Equal(t, uint64(2), st.Misses)
	assert.Equal(t, 2, st.Live)
}

func TestAllocatorBufferPolicy(t *testing.T) {
	t.Run("transient", func(t *testing.T) {
		pa, backend := newTestAllocator(t, AllocatorConfig{})
		pa.BeginFrame()
		a, err := pa.GetOrAllocate(metadata.BufferInfo(512), metadata.Lifetime{Begin: 0, End: 0})
		require.NoError(t, err)
		b, err := pa.GetOrAllocate(metadata.BufferInfo(512), metadata.Lifetime{Begin: 2, End: 2})
		require.NoError(t, err)
		assert.NotSame(t, a, b)
		assert.Equal(t, 2, backend.Stats().LiveObjects)

		pa.BeginFrame()
		assert.Zero(t, backend.Stats().LiveObjects)
		assert.Empty(t, pa.Handles())
	})

	t.Run("aliased", func(t *testing.T) {
		pa, backend := newTestAllocator(t, AllocatorConfig{AliasBuffers: true})
		pa.BeginFrame()
		a, err := pa.GetOrAllocate(metadata.BufferInfo(1024), metadata.Lifetime{Begin: 0, End: 0})
		require.NoError(t, err)
		b, err := pa.GetOrAllocate(metadata.BufferInfo(512), metadata.Lifetime{Begin: 1, End: 1})
		require.NoError(t, err)
		assert.Same(t, a, b)

		c, err := pa.GetOrAllocate(metadata.BufferInfo(2048), metadata.Lifetime{Begin: 2, End: 2})
		require.NoError(t, err)
		assert.NotSame(t, a, c, "too small to back the request")

		pa.BeginFrame()
		assert.Equal(t, 2, backend.Stats().LiveObjects)
	})
}

func TestAllocatorReset(t *testing.T) {
	pa, backend := newTestAllocator(t, AllocatorConfig{})
	pa.BeginFrame()
	a, err := pa.GetOrAllocate(colorInfo, metadata.Lifetime{Begin: 0, End: 0})
	require.NoError(t, err)
	_, err = pa.GetOrAllocate(depthInfo, metadata.Lifetime{Begin: 0, End: 0})
	require.NoError(t, err)

	require.NoError(t, pa.Reset())
	assert.Equal(t, uint64(1), pa.Generation())
	assert.Empty(t, pa.Handles())
	assert.Zero(t, backend.Stats().LiveObjects)

	pa.BeginFrame()
	b, err := pa.GetOrAllocate(colorInfo, metadata.Lifetime{Begin: 0, End: 0})
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.Equal(t, uint32(0), b.ID, "ids are recycled")
}

func TestAllocatorPropagatesBackendFailure(t *testing.T) {
	backend := headless.New(16 * 1024)
	pa, err := NewPhysicalResourceAllocator(backend, AllocatorConfig{})
	require.NoError(t, err)

	pa.BeginFrame()
	_, err = pa.GetOrAllocate(colorInfo, metadata.Lifetime{Begin: 0, End: 0})
	require.NoError(t, err)
	_, err = pa.GetOrAllocate(colorInfo, metadata.Lifetime{Begin: 0, End: 0})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrOutOfMemory))
	assert.Len(t, pa.Handles(), 1)
}

func TestAllocatorMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	pa, _ := newTestAllocator(t, AllocatorConfig{Registerer: registry})

	pa.BeginFrame()
	_, err := pa.GetOrAllocate(colorInfo, metadata.Lifetime{Begin: 0, End: 0})
	require.NoError(t, err)
	_, err = pa.GetOrAllocate(colorInfo, metadata.Lifetime{Begin: 1, End: 1})
	require.NoError(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(pa.metrics.hits))
	assert.Equal(t, float64(1), testutil.ToFloat64(pa.metrics.misses))
	assert.Equal(t, float64(1), testutil.ToFloat64(pa.metrics.live))

	require.NoError(t, pa.Reset())
	assert.Equal(t, float64(0), testutil.ToFloat64(pa.metrics.live))
	assert.Equal(t, float64(1), testutil.ToFloat64(pa.metrics.releases))

	families, err := registry.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 5)
}
