package framegraph

import "github.com/spaghettifunk/framegraph/engine/renderer/metadata"

// PassBuilder declares what one pass touches. It only wraps the low level
// node and link calls of the graph.
type PassBuilder struct {
	graph *FrameGraph
	pass  NodeIndex
}

// AddPass creates a pass, lets setup declare its resources and stores the
// closure setup returns as the pass body. A nil closure leaves the pass empty.
func (fg *FrameGraph) AddPass(name string, setup func(pb *PassBuilder) PassExecuteFunc) NodeIndex {
	pass := fg.CreatePassNode(name)
	if setup == nil {
		return pass
	}
	pb := &PassBuilder{graph: fg, pass: pass}
	if fn := setup(pb); fn != nil {
		fg.SetPassExecute(pass, fn)
	}
	return pass
}

func (pb *PassBuilder) Pass() NodeIndex {
	return pb.pass
}

// Create declares a new resource produced by the pass.
func (pb *PassBuilder) Create(name string, info metadata.ResourceInfo, usage metadata.ResourceUsage) NodeIndex {
	r := pb.graph.CreateResourceNode(name, info)
	pb.graph.LinkOutput(pb.pass, r, usage)
	return r
}

// Read declares a read of the given resource version.
func (pb *PassBuilder) Read(resource NodeIndex, usage metadata.ResourceUsage) NodeIndex {
	pb.graph.LinkInput(pb.pass, resource, usage)
	return resource
}

// Write reads the given version and produces the next one, which it returns.
// Later passes must use the returned node to see the write.
func (pb *PassBuilder) Write(resource NodeIndex, usage metadata.ResourceUsage) NodeIndex {
	pb.graph.LinkInput(pb.pass, resource, usage)
	next := pb.graph.CloneResourceNode(resource)
	pb.graph.LinkOutput(pb.pass, next, usage)
	return next
}
