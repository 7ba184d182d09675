package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spaghettifunk/framegraph/engine/assets/loaders"
	"github.com/spaghettifunk/framegraph/engine/config"
	"github.com/spaghettifunk/framegraph/engine/systems"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pipelineSource = `
name = "%s"

[[pass]]
name = "clear"
  [[pass.create]]
  name = "color"
  usage = "render_target"
  format = "rgba8unorm"
  width = 4
  height = 4
`

func writePipeline(t *testing.T, path, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(pipelineSource, name)), 0o644))
}

func TestDetermineAssetType(t *testing.T) {
	assert.Equal(t, AssetTypePipeline, determineAssetType("a/deferred.fg.toml"))
	assert.Equal(t, AssetTypeConfig, determineAssetType("framegraph.toml"))
	assert.Equal(t, AssetTypeNone, determineAssetType("shader.spv"))
	assert.Equal(t, "pipeline", AssetTypePipeline.String())
}

func TestAssetManagerIndexesAndLoads(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "pipelines")
	require.NoError(t, os.Mkdir(sub, 0o755))
	writePipeline(t, filepath.Join(sub, "forward.fg.toml"), "forward")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "engine.toml"), []byte("[log]\nlevel = \"debug\"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	am, err := NewAssetManager(nil)
	require.NoError(t, err)
	require.NoError(t, am.Initialize(dir))
	defer am.Shutdown()

	indexed := am.Assets()
	require.Len(t, indexed, 2)
	assert.Equal(t, AssetTypeConfig, indexed[0].Type)
	assert.Equal(t, AssetTypePipeline, indexed[1].Type)

	pd, err := am.LoadPipeline("forward")
	require.NoError(t, err)
	assert.Equal(t, "forward", pd.Name)

	v, err := am.LoadAsset(filepath.Join(dir, "engine.toml"))
	require.NoError(t, err)
	assert.Equal(t, "debug", v.(*config.Config).Log.Level)

	_, err = am.LoadPipeline("missing")
	assert.Error(t, err)
	_, err = am.LoadAsset(filepath.Join(dir, "notes.txt"))
	assert.Error(t, err)
}

func TestAssetManagerReloadsOnChange(t *testing.T) {
	dir := t.TempDir()

	jobs, err := systems.NewJobSystem(1, 4)
	require.NoError(t, err)
	defer jobs.Shutdown()

	am, err := NewAssetManager(jobs)
	require.NoError(t, err)
	require.NoError(t, am.Initialize(dir))
	defer am.Shutdown()

	reloaded := make(chan *loaders.PipelineDescription, 16)
	am.OnChange(func(info AssetInfo, asset interface{}, err error) {
		if err != nil || info.Type != AssetTypePipeline {
			return
		}
		reloaded <- asset.(*loaders.PipelineDescription)
	})

	writePipeline(t, filepath.Join(dir, "late.fg.toml"), "late")

	select {
	case pd := <-reloaded:
		assert.Equal(t, "late", pd.Name)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after writing a pipeline")
	}
}

func TestAssetManagerShutdownTwice(t *testing.T) {
	am, err := NewAssetManager(nil)
	require.NoError(t, err)
	require.NoError(t, am.Initialize(t.TempDir()))

	require.NoError(t, am.Shutdown())
	assert.ErrorIs(t, am.Shutdown(), ErrAssetManagerClosed)
}
