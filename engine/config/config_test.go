package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/framegraph/engine/framegraph"
	"github.com/spaghettifunk/framegraph/engine/renderer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	rt, err := cfg.RendererType()
	require.NoError(t, err)
	assert.Equal(t, renderer.Vulkan, rt)
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
[application]
name = "demo"
width = 800

[renderer]
backend = "headless"
memory_budget = 1048576

[framegraph]
hazard_policy = "fatal"
alias_buffers = true
pipeline_dir = "assets/pipelines"
pipeline = "deferred"

[log]
level = "debug"
`))
	require.NoError(t, err)

	assert.Equal(t, "demo", cfg.Application.Name)
	assert.Equal(t, uint32(800), cfg.Application.StartWidth)
	assert.Equal(t, uint32(720), cfg.Application.StartHeight, "untouched keys keep their default")
	assert.Equal(t, uint64(1<<20), cfg.Renderer.MemoryBudget)
	assert.True(t, cfg.FrameGraph.AliasBuffers)
	assert.Equal(t, "assets/pipelines", cfg.FrameGraph.PipelineDir)
	assert.Equal(t, "deferred", cfg.FrameGraph.Pipeline)

	policy, err := cfg.HazardPolicy()
	require.NoError(t, err)
	assert.Equal(t, framegraph.HazardPolicyFatal, policy)
	rt, err := cfg.RendererType()
	require.NoError(t, err)
	assert.Equal(t, renderer.Headless, rt)
}

func TestParseRejectsInvalid(t *testing.T) {
	grid := []struct {
		name string
		data string
	}{
		{"unknown key", "[renderer]\nshaders = true\n"},
		{"bad backend", "[renderer]\nbackend = \"metal\"\n"},
		{"bad policy", "[framegraph]\nhazard_policy = \"ignore\"\n"},
		{"bad level", "[log]\nlevel = \"loud\"\n"},
		{"zero size", "[application]\nheight = 0\n"},
		{"not toml", "[application\n"},
		{"pipeline without dir", "[framegraph]\npipeline = \"deferred\"\n"},
	}
	for _, g := range grid {
		t.Run(g.name, func(t *testing.T) {
			_, err := Parse([]byte(g.data))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(filepath.Join(dir, "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	path := filepath.Join(dir, "framegraph.toml")
	data, err := Default().Encode()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	require.NoError(t, os.WriteFile(path, []byte("[log]\nlevel = 3\n"), 0o644))
	_, err = Load(path)
	assert.ErrorContains(t, err, path)
}
