// Package framegraph schedules the render passes of one frame.
//
// Each frame the caller declares passes and the resources they create, read
// and write on a fresh FrameGraph. Writing a resource yields a new version of
// it, so the declaration is a DAG by construction. Compile orders the passes,
// reports concurrent read/write hazards, computes the span of the schedule
// during which every resource is in use and binds each resource to a physical
// GPU resource through a PhysicalResourceAllocator that outlives the graph.
// The CompiledGraph then runs the pass closures in schedule order.
//
//	fg := framegraph.New()
//	var gbuffer framegraph.NodeIndex
//	fg.AddPass("gbuffer", func(pb *framegraph.PassBuilder) framegraph.PassExecuteFunc {
//		gbuffer = pb.Create("albedo", info, metadata.ResourceUsageRenderTarget)
//		return func(frame renderer.FrameContext, res *framegraph.PassResources) error {
//			return draw(frame, res.Get(gbuffer))
//		}
//	})
//	compiled, err := fg.Compile(allocator)
//	...
//	err = compiled.Execute(frame)
package framegraph
