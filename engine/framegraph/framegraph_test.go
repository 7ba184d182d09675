package framegraph

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/headless"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
	"github.com/spaghettifunk/framegraph/engine/systems"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	rgba512 = metadata.TextureInfo(metadata.NewTexture2D(gputypes.TextureFormatRGBA8Unorm, 512, 512))
	r16f512 = metadata.TextureInfo(metadata.NewTexture2D(gputypes.TextureFormatR16Float, 512, 512))
)

func newAllocator(t *testing.T) *systems.PhysicalResourceAllocator {
	t.Helper()
	pa, err := systems.NewPhysicalResourceAllocator(headless.New(0), systems.AllocatorConfig{})
	require.NoError(t, err)
	return pa
}

func passNames(cg *CompiledGraph) []string {
	var names []string
	for _, p := range cg.Passes() {
		names = append(names, p.Name)
	}
	return names
}

func lifetimeOf(t *testing.T, cg *CompiledGraph, name string) metadata.Lifetime {
	t.Helper()
	for _, r := range cg.Resources() {
		if r.Name == name {
			require.True(t, r.Used, "%s has no lifetime", name)
			return r.Lifetime
		}
	}
	t.Fatalf("no resource %q", name)
	return metadata.Lifetime{}
}

func TestCreateAndCloneResourceNode(t *testing.T) {
	fg := New()
	r0 := fg.CreateResourceNode("color", rgba512)
	r1 := fg.CloneResourceNode(r0)
	r2 := fg.CloneResourceNode(r1)

	n0, n1, n2 := fg.Node(r0), fg.Node(r1), fg.Node(r2)
	assert.Equal(t, 0, n0.ResourceIndex)
	assert.Equal(t, n0.ResourceIndex, n1.ResourceIndex)
	assert.Equal(t, n0.ResourceIndex, n2.ResourceIndex)
	assert.Equal(t, int32(0), n0.RenameIndex)
	assert.Equal(t, int32(1), n1.RenameIndex)
	assert.Equal(t, int32(2), n2.RenameIndex)
	assert.Len(t, fg.Resources(), 1, "versions share one table entry")

	other := fg.CreateResourceNode("depth", rgba512)
	assert.Equal(t, 1, fg.Node(other).ResourceIndex)
	assert.Equal(t, "color#1", n1.String())
}

func TestEndToEndScenarioChain(t *testing.T) {
	fg := New()
	p0 := fg.CreatePassNode("p0")
	t0 := fg.CreateResourceNode("T0", rgba512)
	fg.LinkOutput(p0, t0, metadata.ResourceUsageRenderTarget)

	p1 := fg.CreatePassNode("p1")
	fg.LinkInput(p1, t0, metadata.ResourceUsageSampledImage)
	t1 := fg.CreateResourceNode("T1", r16f512)
	fg.LinkOutput(p1, t1, metadata.ResourceUsageRenderTarget)

	p2 := fg.CreatePassNode("p2")
	fg.LinkInput(p2, t1, metadata.ResourceUsageSampledImage)

	cg, err := fg.Compile(newAllocator(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"p0", "p1", "p2"}, passNames(cg))
	assert.Equal(t, metadata.Lifetime{Begin: 0, End: 1}, lifetimeOf(t, cg, "T0"))
	assert.Equal(t, metadata.Lifetime{Begin: 1, End: 2}, lifetimeOf(t, cg, "T1"))
	assert.Empty(t, cg.Hazards())

	lt, ok := fg.Resource(0).Lifetime()
	require.True(t, ok)
	assert.Equal(t, metadata.Lifetime{Begin: 0, End: 1}, lt)
}

func TestEndToEndScenarioDoubleWriter(t *testing.T) {
	fg := New()
	p0 := fg.CreatePassNode("producer")
	b0 := fg.CreateResourceNode("B", metadata.BufferInfo(4096))
	fg.LinkOutput(p0, b0, metadata.ResourceUsageShaderStorageBuffer)

	a := fg.CreatePassNode("A")
	fg.LinkInput(a, b0, metadata.ResourceUsageShaderStorageBuffer)
	b1 := fg.CloneResourceNode(b0)
	fg.LinkOutput(a, b1, metadata.ResourceUsageShaderStorageBuffer)

	c := fg.CreatePassNode("C")
	fg.LinkInput(c, b0, metadata.ResourceUsageShaderStorageBuffer)
	fg.LinkOutput(c, b1, metadata.ResourceUsageShaderStorageBuffer)

	cg, err := fg.Compile(newAllocator(t))
	require.NoError(t, err, "hazards are reported, not fatal, by default")

	require.Len(t, cg.Hazards(), 1)
	h := cg.Hazards()[0]
	assert.Equal(t, fg.Node(b0).ResourceIndex, h.ResourceIndex)
	assert.Equal(t, int32(0), h.Version)
	assert.Equal(t, []string{"A", "C"}, h.Writers)
	assert.Empty(t, h.Readers)
	assert.ErrorIs(t, h, ErrConcurrentAccessHazard)
}

func TestHazardReaderNextToWriter(t *testing.T) {
	fg := New()
	var color NodeIndex
	fg.AddPass("draw", func(pb *PassBuilder) PassExecuteFunc {
		color = pb.Create("color", rgba512, metadata.ResourceUsageRenderTarget)
		return nil
	})
	fg.AddPass("blur", func(pb *PassBuilder) PassExecuteFunc {
		pb.Write(color, metadata.ResourceUsageRWImage)
		return nil
	})
	fg.AddPass("sample", func(pb *PassBuilder) PassExecuteFunc {
		pb.Read(color, metadata.ResourceUsageSampledImage)
		return nil
	})

	_, err := fg.Compile(newAllocator(t), WithHazardPolicy(HazardPolicyFatal))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConcurrentAccessHazard)

	var herr *HazardError
	require.True(t, errors.As(err, &herr))
	assert.Equal(t, []string{"blur"}, herr.Writers)
	assert.Equal(t, []string{"sample"}, herr.Readers)
}

func TestHazardLogKeepsResourceName(t *testing.T) {
	var buf bytes.Buffer
	core.SetLogOutput(&buf)
	t.Cleanup(func() { core.SetLogOutput(os.Stderr) })

	fg := New()
	var ao NodeIndex
	fg.AddPass("ssao", func(pb *PassBuilder) PassExecuteFunc {
		ao = pb.Create("ssao 50%d", r16f512, metadata.ResourceUsageRenderTarget)
		return nil
	})
	fg.AddPass("blur", func(pb *PassBuilder) PassExecuteFunc {
		pb.Write(ao, metadata.ResourceUsageRWImage)
		return nil
	})
	fg.AddPass("lighting", func(pb *PassBuilder) PassExecuteFunc {
		pb.Read(ao, metadata.ResourceUsageSampledImage)
		return nil
	})

	cg, err := fg.Compile(newAllocator(t))
	require.NoError(t, err)
	require.Len(t, cg.Hazards(), 1)
	assert.Contains(t, buf.String(), "ssao 50%d")
	assert.NotContains(t, buf.String(), "MISSING")
}

func TestEndToEndScenarioIndependentSubgraphs(t *testing.T) {
	fg := New()
	chain := func(prefix string) {
		var r NodeIndex
		fg.AddPass(prefix+"-produce", func(pb *PassBuilder) PassExecuteFunc {
			r = pb.Create(prefix+"-tex", rgba512, metadata.ResourceUsageRenderTarget)
			return nil
		})
		fg.AddPass(prefix+"-consume", func(pb *PassBuilder) PassExecuteFunc {
			pb.Read(r, metadata.ResourceUsageSampledImage)
			return nil
		})
	}
	chain("a")
	chain("b")
	fg.AddPass("standalone", nil)

	cg, err := fg.Compile(newAllocator(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"a-produce", "a-consume", "b-produce", "b-consume", "standalone"}, passNames(cg))
}

func TestInterleavedDeclarationKeepsInsertionOrder(t *testing.T) {
	fg := New()
	pa := fg.CreatePassNode("a0")
	pb := fg.CreatePassNode("b0")
	ra := fg.CreateResourceNode("ra", rgba512)
	rb := fg.CreateResourceNode("rb", rgba512)
	fg.LinkOutput(pa, ra, metadata.ResourceUsageRenderTarget)
	fg.LinkOutput(pb, rb, metadata.ResourceUsageRenderTarget)
	pa1 := fg.CreatePassNode("a1")
	pb1 := fg.CreatePassNode("b1")
	fg.LinkInput(pa1, ra, metadata.ResourceUsageSampledImage)
	fg.LinkInput(pb1, rb, metadata.ResourceUsageSampledImage)

	cg, err := fg.Compile(newAllocator(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"a0", "b0", "a1", "b1"}, passNames(cg))
}

func TestCycleDetected(t *testing.T) {
	fg := New()
	a := fg.CreatePassNode("A")
	r := fg.CreateResourceNode("R", rgba512)
	fg.LinkOutput(a, r, metadata.ResourceUsageRenderTarget)
	b := fg.CreatePassNode("B")
	fg.LinkInput(b, r, metadata.ResourceUsageSampledImage)
	// B writes the node it read instead of a clone of it.
	fg.LinkOutput(b, r, metadata.ResourceUsageRenderTarget)

	cg, err := fg.Compile(newAllocator(t))
	require.Error(t, err)
	assert.Nil(t, cg)
	assert.ErrorIs(t, err, ErrCycleDetected)

	cerr := AsCycleError(err)
	require.NotNil(t, cerr)
	assert.ElementsMatch(t, []string{"R#0", "B"}, cerr.Unscheduled)
	require.Len(t, cerr.Cycle, 3)
	assert.Equal(t, cerr.Cycle[0], cerr.Cycle[2])
	assert.Contains(t, err.Error(), "B")
	assert.Contains(t, err.Error(), "R#0")
}

func TestCycleReportsShortestLoop(t *testing.T) {
	fg := New()
	p := make([]NodeIndex, 3)
	r := make([]NodeIndex, 3)
	for i := range p {
		p[i] = fg.CreatePassNode(string(rune('a' + i)))
		r[i] = fg.CreateResourceNode(string(rune('x'+i)), rgba512)
		fg.LinkOutput(p[i], r[i], metadata.ResourceUsageDefault)
	}
	fg.LinkInput(p[1], r[0], metadata.ResourceUsageDefault)
	fg.LinkInput(p[2], r[1], metadata.ResourceUsageDefault)
	fg.LinkInput(p[0], r[2], metadata.ResourceUsageDefault)
	// a downstream pass stuck behind the loop
	tail := fg.CreatePassNode("tail")
	fg.LinkInput(tail, r[2], metadata.ResourceUsageDefault)

	_, err := fg.Compile(newAllocator(t))
	cerr := AsCycleError(err)
	require.NotNil(t, cerr)
	assert.Len(t, cerr.Cycle, 7)
	assert.Len(t, cerr.Unscheduled, 7)
	assert.NotContains(t, cerr.Cycle, "tail")
}

func TestOrphanResourcesAreSkipped(t *testing.T) {
	fg := New()
	fg.CreateResourceNode("orphan", rgba512)
	fg.AddPass("only", func(pb *PassBuilder) PassExecuteFunc {
		pb.Create("used", rgba512, metadata.ResourceUsageRenderTarget)
		return nil
	})

	pa := newAllocator(t)
	cg, err := fg.Compile(pa)
	require.NoError(t, err)

	res := cg.Resources()
	require.Len(t, res, 2)
	assert.False(t, res[0].Used)
	assert.Nil(t, res[0].Physical)
	assert.True(t, res[1].Used)
	assert.NotNil(t, res[1].Physical)
	assert.Len(t, pa.Handles(), 1)
}

func TestLifetimeSpansAllVersions(t *testing.T) {
	fg := New()
	var v NodeIndex
	fg.AddPass("create", func(pb *PassBuilder) PassExecuteFunc {
		v = pb.Create("acc", rgba512, metadata.ResourceUsageRenderTarget)
		return nil
	})
	fg.AddPass("unrelated", nil)
	fg.AddPass("w1", func(pb *PassBuilder) PassExecuteFunc {
		v = pb.Write(v, metadata.ResourceUsageRenderTarget)
		return nil
	})
	fg.AddPass("w2", func(pb *PassBuilder) PassExecuteFunc {
		v = pb.Write(v, metadata.ResourceUsageRenderTarget)
		return nil
	})
	assert.Equal(t, int32(2), fg.Node(v).RenameIndex)

	cg, err := fg.Compile(newAllocator(t))
	require.NoError(t, err)
	assert.Equal(t, metadata.Lifetime{Begin: 0, End: 3}, lifetimeOf(t, cg, "acc"))
	assert.Empty(t, cg.Hazards())
}

func TestAliasingAcrossLogicalResources(t *testing.T) {
	fg := New()
	var a, b NodeIndex
	fg.AddPass("p0", func(pb *PassBuilder) PassExecuteFunc {
		a = pb.Create("a", rgba512, metadata.ResourceUsageRenderTarget)
		return nil
	})
	fg.AddPass("p1", func(pb *PassBuilder) PassExecuteFunc {
		pb.Read(a, metadata.ResourceUsageSampledImage)
		return nil
	})
	fg.AddPass("p2", func(pb *PassBuilder) PassExecuteFunc {
		b = pb.Create("b", rgba512, metadata.ResourceUsageRenderTarget)
		return nil
	})
	fg.AddPass("p3", func(pb *PassBuilder) PassExecuteFunc {
		pb.Read(b, metadata.ResourceUsageSampledImage)
		return nil
	})

	cg, err := fg.Compile(newAllocator(t))
	require.NoError(t, err)
	res := cg.Resources()
	assert.Same(t, res[0].Physical, res[1].Physical, "disjoint lifetimes share memory")
}

func TestAllocatorReuseAcrossCompiles(t *testing.T) {
	pa := newAllocator(t)

	frame := func(readers int) *CompiledGraph {
		fg := New()
		var tex NodeIndex
		fg.AddPass("create", func(pb *PassBuilder) PassExecuteFunc {
			tex = pb.Create("tex", rgba512, metadata.ResourceUsageRenderTarget)
			return nil
		})
		for i := 0; i < readers; i++ {
			fg.AddPass("read", func(pb *PassBuilder) PassExecuteFunc {
				pb.Read(tex, metadata.ResourceUsageSampledImage)
				return nil
			})
		}
		cg, err := fg.Compile(pa)
		require.NoError(t, err)
		return cg
	}

	first := frame(2)
	require.Equal(t, metadata.Lifetime{Begin: 0, End: 2}, first.Resources()[0].Lifetime)
	second := frame(1)
	require.Equal(t, metadata.Lifetime{Begin: 0, End: 1}, second.Resources()[0].Lifetime)

	assert.Same(t, first.Resources()[0].Physical, second.Resources()[0].Physical)
	assert.Equal(t, uint64(1), pa.Stats().Misses)
}

func TestAllocationFailure(t *testing.T) {
	pa, err := systems.NewPhysicalResourceAllocator(headless.New(1024), systems.AllocatorConfig{})
	require.NoError(t, err)

	fg := New()
	fg.AddPass("big", func(pb *PassBuilder) PassExecuteFunc {
		pb.Create("small", metadata.BufferInfo(256), metadata.ResourceUsageUniformBuffer)
		pb.Create("huge", rgba512, metadata.ResourceUsageRenderTarget)
		return nil
	})

	_, err = fg.Compile(pa)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllocationFailed)

	var aerr *AllocationError
	require.True(t, errors.As(err, &aerr))
	assert.Equal(t, 1, aerr.ResourceIndex)
	assert.Equal(t, "huge", aerr.Resource)
	assert.NotNil(t, errors.Unwrap(err))
}
