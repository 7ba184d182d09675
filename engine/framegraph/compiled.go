package framegraph

import (
	"fmt"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
	"github.com/spaghettifunk/framegraph/engine/systems"
)

type Access int

const (
	AccessRead Access = iota
	AccessWrite
)

func (a Access) String() string {
	if a == AccessWrite {
		return "write"
	}
	return "read"
}

// ResourceBinding is one resource version a pass declared, with the physical
// resource backing it this frame.
type ResourceBinding struct {
	Node          NodeIndex
	ResourceIndex int
	Name          string
	Version       int32
	Usage         metadata.ResourceUsage
	Access        Access
	Physical      *metadata.PhysicalResource
}

type CompiledPass struct {
	Name          string
	Node          NodeIndex
	ScheduleIndex int
	Bindings      []ResourceBinding

	execute PassExecuteFunc
}

type CompiledResource struct {
	Index    int
	Name     string
	Info     metadata.ResourceInfo
	Lifetime metadata.Lifetime
	// Used is false for resources no pass references; they have no lifetime
	// and no physical resource.
	Used     bool
	Physical *metadata.PhysicalResource
}

// CompiledGraph is the schedule of one frame. It stays valid until its
// allocator is reset and runs once.
type CompiledGraph struct {
	nodes     []Node
	edges     []Edge
	order     []NodeIndex
	passes    []CompiledPass
	resources []CompiledResource
	hazards   []*HazardError

	allocator  *systems.PhysicalResourceAllocator
	generation uint64
	executed   bool
}

// Passes returns the passes in execution order.
func (cg *CompiledGraph) Passes() []CompiledPass {
	return cg.passes
}

func (cg *CompiledGraph) Resources() []CompiledResource {
	return cg.resources
}

func (cg *CompiledGraph) Hazards() []*HazardError {
	return cg.hazards
}

// Order is the full topological order, resource nodes included.
func (cg *CompiledGraph) Order() []NodeIndex {
	return cg.order
}

// Execute runs the pass closures one after the other in schedule order and
// stops at the first error.
func (cg *CompiledGraph) Execute(frame renderer.FrameContext) error {
	if cg.executed {
		return ErrAlreadyExecuted
	}
	if g := cg.allocator.Generation(); g != cg.generation {
		return fmt.Errorf("%w: compiled at generation %d, allocator at %d", ErrStaleGraph, cg.generation, g)
	}
	cg.executed = true

	for i := range cg.passes {
		pass := &cg.passes[i]
		if pass.execute == nil {
			core.LogDebug("pass %q has nothing to execute", pass.Name)
			continue
		}
		if err := pass.execute(frame, &PassResources{pass: pass}); err != nil {
			return fmt.Errorf("pass %q: %w", pass.Name, err)
		}
	}
	return nil
}

// PassResources resolves the nodes a pass declared to physical resources.
type PassResources struct {
	pass *CompiledPass
}

// Get returns the physical resource bound to node. Asking for a node the pass
// did not declare panics.
func (pr *PassResources) Get(node NodeIndex) *metadata.PhysicalResource {
	for _, b := range pr.pass.Bindings {
		if b.Node == node {
			return b.Physical
		}
	}
	malformed(node, "pass %q did not declare this resource", pr.pass.Name)
	return nil
}

// Lookup finds the first declared resource with the given name.
func (pr *PassResources) Lookup(name string) (*metadata.PhysicalResource, bool) {
	for _, b := range pr.pass.Bindings {
		if b.Name == name {
			return b.Physical, true
		}
	}
	return nil, false
}

func (pr *PassResources) Bindings() []ResourceBinding {
	return pr.pass.Bindings
}
