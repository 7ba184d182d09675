// Package headless implements the GPU resource layer in plain memory. Nothing
// is drawn; allocations are bookkept so tests and tools can run the frame
// graph without a device, including out-of-memory behaviour.
package headless

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

// allocations are accounted in these units, like a real heap would
const allocationGranularity uint64 = 256

type Texture struct {
	Serial uint64
	Desc   metadata.TextureDesc
	Size   uint64
}

type Buffer struct {
	Serial uint64
	Size   uint64
}

type Backend struct {
	mutex sync.Mutex

	// zero means unlimited
	budget uint64

	serial    uint64
	used      uint64
	peak      uint64
	live      map[uint64]interface{}
	allocated uint64
	released  uint64
}

func New(budget uint64) *Backend {
	return &Backend{
		budget: budget,
		live:   make(map[uint64]interface{}),
	}
}

func (b *Backend) AllocateTexture(desc metadata.TextureDesc) (interface{}, error) {
	if desc.Width == 0 || desc.Height == 0 || desc.Depth == 0 {
		return nil, fmt.Errorf("headless: texture with empty extent %dx%dx%d", desc.Width, desc.Height, desc.Depth)
	}
	size := metadata.GetAligned(TextureByteSize(desc), allocationGranularity)

	b.mutex.Lock()
	defer b.mutex.Unlock()

	if err := b.reserve(size); err != nil {
		return nil, err
	}
	b.serial++
	t := &Texture{Serial: b.serial, Desc: desc, Size: size}
	b.live[t.Serial] = t
	core.LogDebug("headless: allocated texture %d (%s, %d bytes)", t.Serial, desc, size)
	return t, nil
}

func (b *Backend) AllocateBuffer(byteSize uint64) (interface{}, error) {
	if byteSize == 0 {
		return nil, fmt.Errorf("headless: zero sized buffer")
	}
	size := metadata.GetAligned(byteSize, allocationGranularity)

	b.mutex.Lock()
	defer b.mutex.Unlock()

	if err := b.reserve(size); err != nil {
		return nil, err
	}
	b.serial++
	buf := &Buffer{Serial: b.serial, Size: size}
	b.live[buf.Serial] = buf
	core.LogDebug("headless: allocated buffer %d (%d bytes)", buf.Serial, size)
	return buf, nil
}

func (b *Backend) Release(internal interface{}) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	var serial, size uint64
	switch obj := internal.(type) {
	case *Texture:
		serial, size = obj.Serial, obj.Size
	case *Buffer:
		serial, size = obj.Serial, obj.Size
	default:
		return fmt.Errorf("headless: cannot release %T", internal)
	}
	if _, ok := b.live[serial]; !ok {
		return fmt.Errorf("headless: object %d released twice or never allocated", serial)
	}
	delete(b.live, serial)
	b.used -= size
	b.released++
	return nil
}

func (b *Backend) reserve(size uint64) error {
	if b.budget != 0 && b.used+size > b.budget {
		return fmt.Errorf("headless: %d bytes requested with %d of %d in use: %w", size, b.used, b.budget, core.ErrOutOfMemory)
	}
	b.used += size
	b.peak = max(b.peak, b.used)
	b.allocated++
	return nil
}

type Stats struct {
	LiveObjects int
	UsedBytes   uint64
	PeakBytes   uint64
	Allocations uint64
	Releases    uint64
}

func (b *Backend) Stats() Stats {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return Stats{
		LiveObjects: len(b.live),
		UsedBytes:   b.used,
		PeakBytes:   b.peak,
		Allocations: b.allocated,
		Releases:    b.released,
	}
}

// TextureByteSize estimates the memory footprint of a texture including its
// mip chain and samples.
func TextureByteSize(desc metadata.TextureDesc) uint64 {
	bpp := uint64(bytesPerPixel(desc.Format))
	samples := uint64(max(desc.SampleCount, 1))
	w, h, d := uint64(desc.Width), uint64(desc.Height), uint64(max(desc.Depth, 1))

	var total uint64
	for level := uint32(0); level < desc.MipLevelCount(); level++ {
		total += w * h * d * bpp * samples
		w, h = max(w/2, 1), max(h/2, 1)
		if desc.Dimension == gputypes.TextureDimension3D {
			d = max(d/2, 1)
		}
	}
	return total
}

func bytesPerPixel(format gputypes.TextureFormat) uint32 {
	switch format {
	case gputypes.TextureFormatR8Unorm:
		return 1
	case gputypes.TextureFormatR16Float:
		return 2
	case gputypes.TextureFormatRGBA16Float:
		return 8
	case gputypes.TextureFormatRGBA32Float:
		return 16
	default:
		return 4
	}
}
