package renderer

import (
	"fmt"

	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

// ResourceBackend is the slice of the GPU layer the physical resource allocator
// talks to. Allocate calls return the API specific object that ends up in
// PhysicalResource.InternalData; Release receives that same object back.
type ResourceBackend interface {
	AllocateTexture(desc metadata.TextureDesc) (interface{}, error)
	AllocateBuffer(byteSize uint64) (interface{}, error)
	Release(internal interface{}) error
}

// FrameContext is handed untouched to every pass execute callback. The frame
// graph never looks inside; backends put command buffers and the like here.
type FrameContext interface{}

type RendererType uint8

const (
	Vulkan RendererType = iota
	Headless
)

func (rt RendererType) String() string {
	switch rt {
	case Vulkan:
		return "vulkan"
	case Headless:
		return "headless"
	}
	return "unknown"
}

func ParseRendererType(s string) (RendererType, error) {
	switch s {
	case "vulkan":
		return Vulkan, nil
	case "headless":
		return Headless, nil
	}
	return Vulkan, fmt.Errorf("unknown renderer backend %q", s)
}
