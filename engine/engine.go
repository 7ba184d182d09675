package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spaghettifunk/framegraph/engine/assets"
	"github.com/spaghettifunk/framegraph/engine/assets/loaders"
	"github.com/spaghettifunk/framegraph/engine/config"
	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/framegraph"
	"github.com/spaghettifunk/framegraph/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// FrameInfo is the frame context every pass body receives.
type FrameInfo struct {
	Number    uint64
	DeltaTime float64
	Width     uint32
	Height    uint32
}

type Engine struct {
	currentStage Stage
	gameInstance *Game
	config       *config.Config
	policy       framegraph.HazardPolicy
	isRunning    atomic.Bool
	isSuspended  bool

	app          *application
	jobs         *systems.JobSystem
	assetManager *assets.AssetManager
	allocator    *systems.PhysicalResourceAllocator
	registry     *prometheus.Registry

	width       uint32
	height      uint32
	clock       *core.Clock
	metrics     *core.Metrics
	frameNumber uint64

	// pipeline is swapped from the job system when its file changes
	pipelineMutex sync.Mutex
	pipeline      *loaders.PipelineDescription
	dumpPending   bool
}

func New(g *Game) (*Engine, error) {
	if g == nil {
		return nil, errors.New("func New - game must not be nil")
	}
	if g.Config == nil {
		g.Config = config.Default()
	}
	if err := g.Config.Validate(); err != nil {
		return nil, err
	}
	if err := core.SetLogLevel(g.Config.Log.Level); err != nil {
		return nil, err
	}
	policy, err := g.Config.HazardPolicy()
	if err != nil {
		return nil, err
	}

	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		config:       g.Config,
		policy:       policy,
		registry:     prometheus.NewRegistry(),
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
		width:        g.Config.Application.StartWidth,
		height:       g.Config.Application.StartHeight,
		dumpPending:  g.Config.FrameGraph.DumpFile != "",
	}, nil
}

func (e *Engine) Initialize() error {
	if e.currentStage != EngineStageUninitialized {
		return core.ErrAlreadyInitialized
	}
	e.currentStage = EngineStageInitializing

	// initialize events
	if !core.EventInitialize() {
		return fmt.Errorf("failed to initialize the event system")
	}

	// register some events
	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	core.EventRegister(core.EVENT_CODE_RESIZED, e, e.onResized)

	app, err := newApplication(e.config)
	if err != nil {
		return err
	}
	e.app = app
	if app.platform != nil {
		if w, h := app.platform.FramebufferSize(); w > 0 && h > 0 {
			e.width, e.height = w, h
		}
	}

	e.allocator, err = systems.NewPhysicalResourceAllocator(app.backend, systems.AllocatorConfig{
		AliasBuffers: e.config.FrameGraph.AliasBuffers,
		Registerer:   e.registry,
	})
	if err != nil {
		return err
	}

	e.jobs, err = systems.NewJobSystem(2, 16)
	if err != nil {
		return err
	}

	if dir := e.config.FrameGraph.PipelineDir; dir != "" {
		if err := e.initializePipelines(dir); err != nil {
			return err
		}
	}

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(); err != nil {
			return err
		}
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
			return err
		}
	}

	e.isRunning.Store(true)
	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) initializePipelines(dir string) error {
	am, err := assets.NewAssetManager(e.jobs)
	if err != nil {
		return err
	}
	if err := am.Initialize(dir); err != nil {
		return err
	}
	e.assetManager = am
	am.OnChange(e.onAssetChanged)

	name := e.config.FrameGraph.Pipeline
	if name == "" {
		return nil
	}
	pd, err := am.LoadPipeline(name)
	if err != nil {
		return err
	}
	e.setPipeline(pd)
	core.LogInfo("rendering with pipeline %s (%d passes)", pd.Name, len(pd.Passes))
	return nil
}

// Run drives frames until the window closes or a quit event arrives.
func (e *Engine) Run() error {
	return e.RunFrames(-1)
}

// RunFrames renders at most n frames, or until quit when n is negative.
func (e *Engine) RunFrames(n int) error {
	if e.currentStage != EngineStageInitialized && e.currentStage != EngineStageRunning {
		return core.ErrNotInitialized
	}
	e.currentStage = EngineStageRunning
	e.clock.Start()

	for i := 0; e.isRunning.Load() && (n < 0 || i < n); i++ {
		if !e.app.pumpMessages() {
			e.isRunning.Store(false)
			break
		}
		if e.isSuspended {
			continue
		}
		if err := e.frame(); err != nil {
			core.LogError("frame %d failed, shutting down: %s", e.frameNumber, err)
			e.isRunning.Store(false)
			return err
		}
	}
	return nil
}

func (e *Engine) frame() error {
	delta := e.clock.Tick()
	frameStart := time.Now()

	if e.gameInstance.FnUpdate != nil {
		if err := e.gameInstance.FnUpdate(delta); err != nil {
			return fmt.Errorf("game update: %w", err)
		}
	}

	frame := &FrameInfo{
		Number:    e.frameNumber,
		DeltaTime: delta,
		Width:     e.width,
		Height:    e.height,
	}
	if err := e.RenderFrame(frame); err != nil {
		return err
	}

	e.metrics.Update(time.Since(frameStart).Seconds())
	if e.frameNumber%300 == 0 {
		fps, ms := e.metrics.Frame()
		core.LogDebug("frame %d: %.1f fps, %.3f ms", e.frameNumber, fps, ms)
	}
	return nil
}

/**
 * @brief Declares, compiles and executes one frame graph. The graph is built
 * from the loaded pipeline description when there is one, otherwise by the
 * game's declare callback.
 */
func (e *Engine) RenderFrame(frame *FrameInfo) error {
	fg := framegraph.New()
	if err := e.declare(fg); err != nil {
		return err
	}

	cg, err := fg.Compile(e.allocator, framegraph.WithHazardPolicy(e.policy))
	if err != nil {
		return err
	}

	e.pipelineMutex.Lock()
	dump := e.dumpPending
	e.dumpPending = false
	e.pipelineMutex.Unlock()
	if dump {
		if err := e.dumpGraph(cg); err != nil {
			core.LogWarn("could not dump frame graph: %s", err)
		}
	}

	if err := cg.Execute(frame); err != nil {
		return err
	}
	e.frameNumber++
	return nil
}

func (e *Engine) declare(fg *framegraph.FrameGraph) error {
	e.pipelineMutex.Lock()
	pd := e.pipeline
	e.pipelineMutex.Unlock()

	if pd != nil {
		var factory loaders.ExecuteFactory
		if e.gameInstance.FnExecute != nil {
			factory = loaders.ExecuteFactory(e.gameInstance.FnExecute)
		}
		_, err := pd.Declare(fg, loaders.Extent{Width: e.width, Height: e.height}, factory)
		return err
	}
	if e.gameInstance.FnDeclare != nil {
		return e.gameInstance.FnDeclare(fg, e.width, e.height)
	}
	return core.ErrNothingToRender
}

// dumpGraph writes the schedule to the configured file, as Graphviz when the
// file ends in .dot.
func (e *Engine) dumpGraph(cg *framegraph.CompiledGraph) error {
	path := e.config.FrameGraph.DumpFile
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".dot") {
		err = cg.WriteDOT(f)
	} else {
		err = cg.Dump(f)
	}
	if err != nil {
		return err
	}
	core.LogInfo("frame graph written to %s", path)
	return nil
}

func (e *Engine) setPipeline(pd *loaders.PipelineDescription) {
	e.pipelineMutex.Lock()
	defer e.pipelineMutex.Unlock()
	e.pipeline = pd
	e.dumpPending = e.config.FrameGraph.DumpFile != ""
}

func (e *Engine) onAssetChanged(info assets.AssetInfo, asset interface{}, err error) {
	if info.Type != assets.AssetTypePipeline {
		return
	}
	if filepath.Base(info.Path) != e.config.FrameGraph.Pipeline+assets.PipelineExtension {
		return
	}
	if err != nil {
		core.LogWarn("keeping the previous pipeline, %s failed to load: %s", info.Path, err)
		return
	}
	pd := asset.(*loaders.PipelineDescription)
	e.setPipeline(pd)
	core.LogInfo("pipeline %s reloaded (%d passes)", pd.Name, len(pd.Passes))
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	e.isRunning.Store(false)

	var errs []error
	if e.gameInstance.FnShutdown != nil {
		errs = append(errs, e.gameInstance.FnShutdown())
	}
	if e.assetManager != nil {
		errs = append(errs, e.assetManager.Shutdown())
	}
	if e.jobs != nil {
		errs = append(errs, e.jobs.Shutdown())
	}
	if e.allocator != nil {
		errs = append(errs, e.allocator.Reset())
	}
	if e.app != nil {
		errs = append(errs, e.app.shutdown())
	}
	errs = append(errs, core.EventShutdown())
	e.currentStage = EngineStageUninitialized
	return errors.Join(errs...)
}

// GetFramebufferSize returns the width and height (in this order)
// of the application Framebuffer
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

// Registry holds the allocator metrics of this engine.
func (e *Engine) Registry() *prometheus.Registry {
	return e.registry
}

func (e *Engine) Allocator() *systems.PhysicalResourceAllocator {
	return e.allocator
}

func (e *Engine) FrameNumber() uint64 {
	return e.frameNumber
}

func (e *Engine) onEvent(code core.SystemEventCode, sender interface{}, listener interface{}, context core.EventContext) bool {
	switch code {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning.Store(false)
		return true
	}
	return false
}

// onResized drops every physical resource: their sizes follow the
// framebuffer, and compiled graphs holding them become stale.
func (e *Engine) onResized(code core.SystemEventCode, sender interface{}, listener interface{}, context core.EventContext) bool {
	width := context.Data.U32[0]
	height := context.Data.U32[1]

	// Check if different. If so, trigger a resize event.
	if width == e.width && height == e.height {
		return false
	}
	e.width = width
	e.height = height
	core.LogDebug("Window resize: %d, %d", width, height)

	// Handle minimization
	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
		return false
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}

	if e.allocator != nil {
		if err := e.allocator.Reset(); err != nil {
			core.LogError("%s", err)
		}
		core.EventFire(core.EVENT_CODE_RESOURCES_INVALIDATED, e, core.EventContext{})
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(width, height); err != nil {
			core.LogError("%s", err)
		}
	}
	return false
}
