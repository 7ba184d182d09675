package command_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/spaghettifunk/framegraph/cmd/fgdump/internal/command"
	"github.com/spaghettifunk/framegraph/engine/framegraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const racePipeline = `
name = "race"

[[pass]]
name = "clear"
  [[pass.create]]
  name = "shadow"
  format = "depth32float"
  width = 256
  height = 256

[[pass]]
name = "cascade0"
  [[pass.write]]
  resource = "shadow"

[[pass]]
name = "cascade1"
  [[pass.write]]
  resource = "shadow"
  version = 0
  shared_output = true
`

// syncBuffer is written by the watcher goroutines and read by the test.
type syncBuffer struct {
	mutex sync.Mutex
	buf   bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.buf.String()
}

func deferredPath(t *testing.T) string {
	t.Helper()
	path, err := filepath.Abs(filepath.Join("..", "..", "..", "..", "assets", "pipelines", "deferred.fg.toml"))
	require.NoError(t, err)
	return path
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true
	buf := new(bytes.Buffer)
	cli := command.NewCLI(buf)
	root := command.NewRootCommand()
	command.AddCommands(root, cli)
	root.SetArgs(args)
	root.SetOut(buf)
	root.SetErr(buf)
	err := root.Execute()
	return buf.String(), err
}

func TestDumpText(t *testing.T) {
	out, err := run(t, "dump", deferredPath(t), "--width", "640", "--height", "360")
	require.NoError(t, err)

	assert.Contains(t, out, "schedule (8 passes):")
	assert.Contains(t, out, "[0] upload")
	assert.Contains(t, out, "[7] present")
	assert.Contains(t, out, "ok deferred: 8 passes, 9 of 9 resources bound, 0 hazards")
}

func TestDumpDOTToFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "frame.dot")
	out, err := run(t, "dump", deferredPath(t), "--format", "dot", "-o", target)
	require.NoError(t, err)
	assert.Contains(t, out, "ok deferred")

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "digraph framegraph {"))
}

func TestDumpReportsHazards(t *testing.T) {
	path := writeFile(t, t.TempDir(), "race.fg.toml", racePipeline)

	out, err := run(t, "dump", path)
	require.NoError(t, err)
	assert.Contains(t, out, "hazard")
	assert.Contains(t, out, "hazards race:")

	_, err = run(t, "dump", path, "--hazard-policy", "fatal")
	assert.ErrorIs(t, err, framegraph.ErrConcurrentAccessHazard)
}

func TestDumpRejectsBadInput(t *testing.T) {
	_, err := run(t, "dump")
	assert.Error(t, err)

	_, err = run(t, "dump", deferredPath(t), "--format", "svg")
	assert.Error(t, err)

	_, err = run(t, "dump", deferredPath(t), "--hazard-policy", "ignore")
	assert.Error(t, err)

	_, err = run(t, "dump", filepath.Join(t.TempDir(), "missing.fg.toml"))
	assert.Error(t, err)
}

func TestDumpOverBudget(t *testing.T) {
	_, err := run(t, "dump", deferredPath(t), "--memory-budget", "4096")
	assert.ErrorIs(t, err, framegraph.ErrAllocationFailed)
}

func TestBench(t *testing.T) {
	out, err := run(t, "bench", deferredPath(t), "--frames", "50")
	require.NoError(t, err)

	assert.Contains(t, out, "bench deferred: 50 frames")
	// textures are allocated on the first frame and reused after, the two
	// buffers are transient and come back every frame
	assert.Contains(t, out, "allocator: 344 hits, 106 misses, 8 live")

	_, err = run(t, "bench", deferredPath(t), "--frames", "0")
	assert.Error(t, err)
}

func TestWatchRecompilesOnChange(t *testing.T) {
	color.NoColor = true
	dir := t.TempDir()
	writeFile(t, dir, "race.fg.toml", racePipeline)

	out := &syncBuffer{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- command.RunWatch(ctx, command.NewCLI(out), dir, command.WatchOptions{
			CompileOptions: command.CompileOptions{Width: 64, Height: 64, HazardPolicy: "report"},
			Pipeline:       "race",
		})
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "watching")
	}, 5*time.Second, 10*time.Millisecond)
	assert.Contains(t, out.String(), "hazards race:")

	fixed := strings.Replace(racePipeline, "  version = 0\n  shared_output = true\n", "", 1)
	writeFile(t, dir, "race.fg.toml", fixed)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "ok race:")
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
