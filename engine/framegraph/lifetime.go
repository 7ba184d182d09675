package framegraph

import (
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

// computeLifetimes extends the lifetime of every resource touched by each
// pass, in schedule order. All versions of a resource share one lifetime.
func (fg *FrameGraph) computeLifetimes(schedule []NodeIndex) {
	for i := range fg.resources {
		fg.resources[i].lifetime = nil
	}

	for position, pass := range schedule {
		index := int32(position)
		touched := make(map[int]bool)
		for _, neighbor := range fg.neighbors(pass) {
			r := fg.nodes[neighbor].ResourceIndex
			if touched[r] {
				continue
			}
			touched[r] = true

			res := &fg.resources[r]
			if res.lifetime == nil {
				res.lifetime = &metadata.Lifetime{Begin: index, End: index}
				continue
			}
			if index <= res.lifetime.End {
				malformed(pass, "use of %q at %d is not after its last use at %d", res.Name, index, res.lifetime.End)
			}
			res.lifetime.End = index
		}
	}
}
