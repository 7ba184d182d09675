package engine

import (
	"github.com/spaghettifunk/framegraph/engine/config"
	"github.com/spaghettifunk/framegraph/engine/framegraph"
)

/**
 * @brief What an application plugs into the engine. The engine owns the frame
 * loop; the game declares the passes of every frame.
 */
type Game struct {
	Config *config.Config
	State  interface{}

	FnInitialize Initialize
	FnUpdate     Update
	FnDeclare    Declare
	FnExecute    ExecuteFactory
	FnOnResize   OnResize
	FnShutdown   Shutdown
}

type Initialize func() error
type Update func(deltaTime float64) error

// Declare builds the passes of one frame into an empty graph. It is only used
// while no pipeline description is loaded.
type Declare func(fg *framegraph.FrameGraph, width uint32, height uint32) error

// ExecuteFactory gives the body of a pass declared from a pipeline description.
type ExecuteFactory func(pass string) framegraph.PassExecuteFunc

type OnResize func(width uint32, height uint32) error
type Shutdown func() error
