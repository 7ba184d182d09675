package testbed

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/spaghettifunk/framegraph/engine"
	"github.com/spaghettifunk/framegraph/engine/config"
	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/framegraph"
	"github.com/spaghettifunk/framegraph/engine/renderer"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	DeltaTime float64
	Exposure  float32

	width  uint32
	height uint32

	// executions counts pass bodies run, by pass name
	executions map[string]int
}

func NewTestGame(cfg *config.Config) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			Config: cfg,
			State: &gameState{
				Exposure:   1.0,
				executions: make(map[string]int),
			},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnDeclare = tg.Declare
	tg.FnExecute = tg.Execute
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown

	return tg
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

func (g *TestGame) Initialize() error {
	core.LogInfo("initializing testbed...")
	core.EventRegister(core.EVENT_CODE_RESOURCES_INVALIDATED, g, g.onResourcesInvalidated)
	return nil
}

func (g *TestGame) Update(deltaTime float64) error {
	state := g.state()
	state.DeltaTime = deltaTime
	// slow eye adaptation towards 1.0
	state.Exposure += (1.0 - state.Exposure) * float32(min(deltaTime, 1.0))
	return nil
}

/**
 * @brief Declares a deferred pipeline: scene upload, G-buffer, SSAO, lighting,
 * bloom, tone mapping, UI and present. Albedo and the tone mapped target share
 * a descriptor and never live at the same time, so they alias.
 */
func (g *TestGame) Declare(fg *framegraph.FrameGraph, width uint32, height uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("cannot declare a %dx%d frame", width, height)
	}
	halfW, halfH := max(width/2, 1), max(height/2, 1)

	var camera, lights framegraph.NodeIndex
	fg.AddPass("upload", func(pb *framegraph.PassBuilder) framegraph.PassExecuteFunc {
		camera = pb.Create("camera", metadata.BufferInfo(256), metadata.ResourceUsageUniformBuffer)
		lights = pb.Create("lights", metadata.BufferInfo(16<<10), metadata.ResourceUsageShaderStorageBuffer)
		return g.Execute("upload")
	})

	var albedo, normal, depth framegraph.NodeIndex
	fg.AddPass("gbuffer", func(pb *framegraph.PassBuilder) framegraph.PassExecuteFunc {
		pb.Read(camera, metadata.ResourceUsageUniformBuffer)
		albedo = pb.Create("albedo", texture(gputypes.TextureFormatRGBA8Unorm, width, height), metadata.ResourceUsageRenderTarget)
		normal = pb.Create("normal", texture(gputypes.TextureFormatRGBA16Float, width, height), metadata.ResourceUsageRenderTarget)
		depth = pb.Create("depth", texture(gputypes.TextureFormatDepth32Float, width, height), metadata.ResourceUsageRenderTarget)
		return g.Execute("gbuffer")
	})

	var ao framegraph.NodeIndex
	fg.AddPass("ssao", func(pb *framegraph.PassBuilder) framegraph.PassExecuteFunc {
		pb.Read(camera, metadata.ResourceUsageUniformBuffer)
		pb.Read(normal, metadata.ResourceUsageSampledImage)
		pb.Read(depth, metadata.ResourceUsageSampledImage)
		ao = pb.Create("ao", texture(gputypes.TextureFormatR8Unorm, halfW, halfH), metadata.ResourceUsageRWImage)
		return g.Execute("ssao")
	})

	var hdr framegraph.NodeIndex
	fg.AddPass("lighting", func(pb *framegraph.PassBuilder) framegraph.PassExecuteFunc {
		pb.Read(camera, metadata.ResourceUsageUniformBuffer)
		pb.Read(lights, metadata.ResourceUsageShaderStorageBuffer)
		pb.Read(albedo, metadata.ResourceUsageSampledImage)
		pb.Read(normal, metadata.ResourceUsageSampledImage)
		pb.Read(depth, metadata.ResourceUsageSampledImage)
		pb.Read(ao, metadata.ResourceUsageSampledImage)
		hdr = pb.Create("hdr", texture(gputypes.TextureFormatRGBA16Float, width, height), metadata.ResourceUsageRenderTarget)
		return g.Execute("lighting")
	})

	var bloom framegraph.NodeIndex
	fg.AddPass("bloom", func(pb *framegraph.PassBuilder) framegraph.PassExecuteFunc {
		pb.Read(hdr, metadata.ResourceUsageSampledImage)
		bloom = pb.Create("bloom", texture(gputypes.TextureFormatRGBA16Float, halfW, halfH), metadata.ResourceUsageRWImage)
		return g.Execute("bloom")
	})

	var ldr framegraph.NodeIndex
	fg.AddPass("tonemap", func(pb *framegraph.PassBuilder) framegraph.PassExecuteFunc {
		pb.Read(hdr, metadata.ResourceUsageSampledImage)
		pb.Read(bloom, metadata.ResourceUsageSampledImage)
		ldr = pb.Create("ldr", texture(gputypes.TextureFormatRGBA8Unorm, width, height), metadata.ResourceUsageRenderTarget)
		return g.Execute("tonemap")
	})

	fg.AddPass("ui", func(pb *framegraph.PassBuilder) framegraph.PassExecuteFunc {
		ldr = pb.Write(ldr, metadata.ResourceUsageRenderTarget)
		return g.Execute("ui")
	})

	fg.AddPass("present", func(pb *framegraph.PassBuilder) framegraph.PassExecuteFunc {
		pb.Read(ldr, metadata.ResourceUsageSampledImage)
		return g.Execute("present")
	})
	return nil
}

func texture(format gputypes.TextureFormat, width, height uint32) metadata.ResourceInfo {
	return metadata.TextureInfo(metadata.NewTexture2D(format, width, height))
}

// Execute returns the body of a pass. There is no command recording in the
// testbed, bodies check their bindings and count themselves.
func (g *TestGame) Execute(pass string) framegraph.PassExecuteFunc {
	return func(frame renderer.FrameContext, resources *framegraph.PassResources) error {
		for _, b := range resources.Bindings() {
			if b.Physical == nil {
				return fmt.Errorf("%s is not bound", b.Name)
			}
		}
		g.state().executions[pass]++
		if fi, ok := frame.(*engine.FrameInfo); ok && fi.Number == 0 {
			core.LogDebug("pass %s: %d bindings", pass, len(resources.Bindings()))
		}
		return nil
	}
}

// Executions reports how often the named pass body ran.
func (g *TestGame) Executions(pass string) int {
	return g.state().executions[pass]
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	state := g.state()
	state.width = width
	state.height = height
	core.LogDebug("testbed resized to %dx%d", width, height)
	return nil
}

func (g *TestGame) Shutdown() error {
	core.LogInfo("shutting down testbed...")
	core.EventUnregister(core.EVENT_CODE_RESOURCES_INVALIDATED, g)
	return nil
}

func (g *TestGame) onResourcesInvalidated(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	// Exposure history lived in the dropped targets.
	g.state().Exposure = 1.0
	return false
}
