package framegraph

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
	"github.com/spaghettifunk/framegraph/engine/systems"
)

// Compile schedules the graph and binds its resources to physical resources
// of allocator, starting a new allocator frame. The graph is consumed: it
// panics on any later use.
func (fg *FrameGraph) Compile(allocator *systems.PhysicalResourceAllocator, opts ...CompileOption) (*CompiledGraph, error) {
	fg.ensureMutable()
	fg.consumed = true
	if allocator == nil {
		return nil, fmt.Errorf("framegraph: compile without an allocator")
	}

	options := compileOptions{hazardPolicy: HazardPolicyReport}
	for _, opt := range opts {
		opt(&options)
	}

	order, err := fg.topologicalSort()
	if err != nil {
		core.LogError("%s", err)
		return nil, err
	}

	hazards := fg.detectHazards()
	if len(hazards) > 0 && options.hazardPolicy == HazardPolicyFatal {
		errs := make([]error, len(hazards))
		for i, h := range hazards {
			errs[i] = h
		}
		return nil, errors.Join(errs...)
	}

	schedule := make([]NodeIndex, 0, len(order))
	for _, n := range order {
		if fg.nodes[n].IsPass() {
			schedule = append(schedule, n)
		}
	}
	fg.computeLifetimes(schedule)

	allocator.BeginFrame()
	physical := make([]*metadata.PhysicalResource, len(fg.resources))
	for i, r := range fg.resources {
		lifetime, ok := r.Lifetime()
		if !ok {
			core.LogDebug("resource %q is never used, not binding it", r.Name)
			continue
		}
		p, err := allocator.GetOrAllocate(r.Info, lifetime)
		if err != nil {
			aerr := &AllocationError{ResourceIndex: i, Resource: r.Name, Err: err}
			core.LogError("%s", aerr)
			return nil, aerr
		}
		physical[i] = p
	}

	return fg.link(order, schedule, physical, hazards, allocator), nil
}

func (fg *FrameGraph) link(order, schedule []NodeIndex, physical []*metadata.PhysicalResource, hazards []*HazardError, allocator *systems.PhysicalResourceAllocator) *CompiledGraph {
	cg := &CompiledGraph{
		nodes:      fg.nodes,
		edges:      fg.edges,
		order:      order,
		hazards:    hazards,
		allocator:  allocator,
		generation: allocator.Generation(),
	}

	for position, pass := range schedule {
		cp := CompiledPass{
			Name:          fg.nodes[pass].Name,
			Node:          pass,
			ScheduleIndex: position,
			execute:       fg.execute[pass],
		}
		for _, e := range fg.passEdges(pass) {
			edge := fg.edges[e]
			b := ResourceBinding{Usage: edge.Usage, Access: AccessRead, Node: edge.From}
			if edge.From == pass {
				b.Access, b.Node = AccessWrite, edge.To
			}
			n := fg.nodes[b.Node]
			b.ResourceIndex = n.ResourceIndex
			b.Name = n.Name
			b.Version = n.RenameIndex
			b.Physical = physical[n.ResourceIndex]
			cp.Bindings = append(cp.Bindings, b)
		}
		cg.passes = append(cg.passes, cp)
	}

	for i, r := range fg.resources {
		cr := CompiledResource{Index: i, Name: r.Name, Info: r.Info, Physical: physical[i]}
		cr.Lifetime, cr.Used = r.Lifetime()
		cg.resources = append(cg.resources, cr)
	}
	return cg
}

// passEdges merges the inputs and outputs of a pass in declaration order.
func (fg *FrameGraph) passEdges(pass NodeIndex) []EdgeIndex {
	in, out := fg.incoming[pass], fg.outgoing[pass]
	merged := make([]EdgeIndex, 0, len(in)+len(out))
	i, j := 0, 0
	for i < len(in) || j < len(out) {
		if j == len(out) || (i < len(in) && in[i] < out[j]) {
			merged = append(merged, in[i])
			i++
		} else {
			merged = append(merged, out[j])
			j++
		}
	}
	return merged
}
