package engine

import (
	"fmt"

	"github.com/spaghettifunk/framegraph/engine/config"
	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/platform"
	"github.com/spaghettifunk/framegraph/engine/renderer"
	"github.com/spaghettifunk/framegraph/engine/renderer/headless"
	"github.com/spaghettifunk/framegraph/engine/renderer/vulkan"
)

/**
 * @brief The GPU side the engine runs on: a resource backend plus the window,
 * when the backend needs one.
 */
type application struct {
	rendererType renderer.RendererType
	backend      renderer.ResourceBackend
	platform     *platform.Platform
	shutdown     func() error
}

// newApplication picks the backend named in the config. Only the Vulkan
// backend opens a window.
func newApplication(cfg *config.Config) (*application, error) {
	rt, err := cfg.RendererType()
	if err != nil {
		return nil, err
	}
	app := &application{rendererType: rt}

	switch rt {
	case renderer.Headless:
		app.backend = headless.New(cfg.Renderer.MemoryBudget)
		app.shutdown = func() error { return nil }
	case renderer.Vulkan:
		p := platform.New()
		if err := p.Startup(cfg.Application.Name,
			cfg.Application.StartPosX,
			cfg.Application.StartPosY,
			cfg.Application.StartWidth,
			cfg.Application.StartHeight); err != nil {
			return nil, err
		}
		vb := vulkan.New(cfg.Renderer.Validation)
		if err := vb.Initialize(cfg.Application.Name, p.GetInstanceProcAddress()); err != nil {
			_ = p.Shutdown()
			return nil, err
		}
		app.platform = p
		app.backend = vb
		app.shutdown = func() error {
			if err := vb.Shutdown(); err != nil {
				core.LogError("%s", err)
			}
			return p.Shutdown()
		}
	default:
		return nil, fmt.Errorf("renderer backend %s is not supported", rt)
	}

	core.LogInfo("renderer backend: %s", rt)
	return app, nil
}

// pumpMessages reports false once the window asked to close. Without a
// window the application only stops through events.
func (a *application) pumpMessages() bool {
	if a.platform == nil {
		return true
	}
	return a.platform.PumpMessages()
}
