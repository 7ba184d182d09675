package systems

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

type AllocatorConfig struct {
	// AliasBuffers lets buffers be shared between logical resources like
	// textures are. When off every buffer request gets its own allocation,
	// released at the start of the next frame.
	AliasBuffers bool
	// Registerer receives the allocator collectors. Optional.
	Registerer prometheus.Registerer
	// InitialCapacity sizes the handle table.
	InitialCapacity int
}

type AllocatorStats struct {
	Frame      uint64
	Generation uint64
	Live       int
	Hits       uint64
	Misses     uint64
	Releases   uint64
}

type physicalHandle struct {
	resource *metadata.PhysicalResource
	// lifetimes this handle is bound for in the current frame
	claims    []metadata.Lifetime
	transient bool
}

func (h *physicalHandle) free(lifetime metadata.Lifetime) bool {
	for _, c := range h.claims {
		if c.Overlaps(lifetime) {
			return false
		}
	}
	return true
}

// lastEnd is the schedule index at which the handle became free this frame,
// -1 when it has not been bound yet.
func (h *physicalHandle) lastEnd() int32 {
	end := int32(-1)
	for _, c := range h.claims {
		end = max(end, c.End)
	}
	return end
}

// PhysicalResourceAllocator binds logical frame graph resources to backend
// allocations, reusing them within a frame when lifetimes do not overlap and
// across frames when descriptors match.
type PhysicalResourceAllocator struct {
	mutex   sync.Mutex
	backend renderer.ResourceBackend
	config  AllocatorConfig
	ids     *core.IdentifierPool
	handles map[uint32]*physicalHandle

	frame      uint64
	generation uint64
	stats      AllocatorStats
	metrics    *allocatorMetrics
}

func NewPhysicalResourceAllocator(backend renderer.ResourceBackend, config AllocatorConfig) (*PhysicalResourceAllocator, error) {
	if backend == nil {
		err := fmt.Errorf("func NewPhysicalResourceAllocator - backend must not be nil")
		core.LogError("%s", err)
		return nil, err
	}
	if config.InitialCapacity <= 0 {
		config.InitialCapacity = 64
	}

	pa := &PhysicalResourceAllocator{
		backend: backend,
		config:  config,
		ids:     core.NewIdentifierPool(config.InitialCapacity),
		handles: make(map[uint32]*physicalHandle, config.InitialCapacity),
		metrics: newAllocatorMetrics(),
	}
	if config.Registerer != nil {
		pa.metrics.MustRegister(config.Registerer)
	}
	return pa, nil
}

// BeginFrame starts a new frame: every claim is dropped and the buffers that
// were handed out without aliasing are given back to the backend.
func (pa *PhysicalResourceAllocator) BeginFrame() {
	pa.mutex.Lock()
	defer pa.mutex.Unlock()

	pa.frame++
	for id, h := range pa.handles {
		if h.transient {
			if err := pa.release(id, h); err != nil {
				core.LogError("failed to release transient buffer %s: %s", h.resource.Label, err)
			}
			continue
		}
		h.claims = h.claims[:0]
	}
}

// GetOrAllocate returns a physical resource able to back info for the given
// lifetime, reusing a compatible handle that is free for that span when one
// exists.
func (pa *PhysicalResourceAllocator) GetOrAllocate(info metadata.ResourceInfo, lifetime metadata.Lifetime) (*metadata.PhysicalResource, error) {
	pa.mutex.Lock()
	defer pa.mutex.Unlock()

	aliasable := info.Kind() == metadata.ResourceKindTexture || pa.config.AliasBuffers
	if aliasable {
		if h := pa.bestCandidate(info, lifetime); h != nil {
			h.claims = append(h.claims, lifetime)
			h.resource.LastUsedFrame = pa.frame
			pa.stats.Hits++
			pa.metrics.hits.Inc()
			core.LogDebug("reusing %s for %s during %s", h.resource.Label, info, lifetime)
			return h.resource, nil
		}
	}

	internal, err := pa.allocate(info)
	if err != nil {
		return nil, err
	}

	h := &physicalHandle{
		claims:    []metadata.Lifetime{lifetime},
		transient: !aliasable,
	}
	h.resource = &metadata.PhysicalResource{
		Label:         uuid.NewString(),
		Info:          info,
		LastUsedFrame: pa.frame,
		InternalData:  internal,
	}
	h.resource.ID = pa.ids.Acquire(h)
	pa.handles[h.resource.ID] = h

	pa.stats.Misses++
	pa.metrics.misses.Inc()
	pa.metrics.live.Set(float64(len(pa.handles)))
	core.LogDebug("allocated %s as #%d (%s)", info, h.resource.ID, h.resource.Label)
	return h.resource, nil
}

// bestCandidate prefers the handle freed most recently this frame, then the
// one used in the latest frame, then the lowest id.
func (pa *PhysicalResourceAllocator) bestCandidate(info metadata.ResourceInfo, lifetime metadata.Lifetime) *physicalHandle {
	var best *physicalHandle
	for _, h := range pa.handles {
		if h.transient || !metadata.Compatible(h.resource.Info, info) || !h.free(lifetime) {
			continue
		}
		if best == nil || better(h, best) {
			best = h
		}
	}
	return best
}

func better(a, b *physicalHandle) bool {
	if ae, be := a.lastEnd(), b.lastEnd(); ae != be {
		return ae > be
	}
	if a.resource.LastUsedFrame != b.resource.LastUsedFrame {
		return a.resource.LastUsedFrame > b.resource.LastUsedFrame
	}
	return a.resource.ID < b.resource.ID
}

func (pa *PhysicalResourceAllocator) allocate(info metadata.ResourceInfo) (interface{}, error) {
	if desc, ok := info.Texture(); ok {
		return pa.backend.AllocateTexture(desc)
	}
	return pa.backend.AllocateBuffer(info.ByteSize())
}

func (pa *PhysicalResourceAllocator) release(id uint32, h *physicalHandle) error {
	delete(pa.handles, id)
	if err := pa.ids.Release(id); err != nil {
		core.LogWarn("%s", err)
	}
	pa.stats.Releases++
	pa.metrics.releases.Inc()
	pa.metrics.live.Set(float64(len(pa.handles)))
	return pa.backend.Release(h.resource.InternalData)
}

// Reset gives every physical resource back to the backend, for teardown or
// when the framebuffer changes. Graphs compiled before the reset are stale.
func (pa *PhysicalResourceAllocator) Reset() error {
	pa.mutex.Lock()
	defer pa.mutex.Unlock()

	var errs []error
	for _, id := range pa.sortedIDs() {
		if err := pa.release(id, pa.handles[id]); err != nil {
			errs = append(errs, err)
		}
	}
	pa.ids.Reset()
	pa.generation++
	pa.metrics.resets.Inc()
	core.LogInfo("physical resources reset, generation %d", pa.generation)
	return errors.Join(errs...)
}

// Handles lists the live physical resources by id.
func (pa *PhysicalResourceAllocator) Handles() []*metadata.PhysicalResource {
	pa.mutex.Lock()
	defer pa.mutex.Unlock()

	out := make([]*metadata.PhysicalResource, 0, len(pa.handles))
	for _, id := range pa.sortedIDs() {
		out = append(out, pa.handles[id].resource)
	}
	return out
}

func (pa *PhysicalResourceAllocator) Stats() AllocatorStats {
	pa.mutex.Lock()
	defer pa.mutex.Unlock()

	st := pa.stats
	st.Frame = pa.frame
	st.Generation = pa.generation
	st.Live = len(pa.handles)
	return st
}

func (pa *PhysicalResourceAllocator) Generation() uint64 {
	pa.mutex.Lock()
	defer pa.mutex.Unlock()
	return pa.generation
}

func (pa *PhysicalResourceAllocator) Frame() uint64 {
	pa.mutex.Lock()
	defer pa.mutex.Unlock()
	return pa.frame
}

func (pa *PhysicalResourceAllocator) sortedIDs() []uint32 {
	ids := make([]uint32, 0, len(pa.handles))
	for id := range pa.handles {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
