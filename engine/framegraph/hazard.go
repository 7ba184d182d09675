package framegraph

import (
	"github.com/spaghettifunk/framegraph/engine/core"
)

// detectHazards inspects the consumers of every resource version. A consumer
// that also outputs a version of the same resource writes it, the others only
// read. More than one writer, or readers next to a writer, means passes with
// no order between them touch the same memory.
func (fg *FrameGraph) detectHazards() []*HazardError {
	var hazards []*HazardError
	for i, n := range fg.nodes {
		if !n.IsResource() {
			continue
		}

		var readers, writers []string
		seen := make(map[NodeIndex]bool)
		for _, e := range fg.outgoing[i] {
			pass := fg.edges[e].To
			if seen[pass] {
				continue
			}
			seen[pass] = true
			if fg.writes(pass, n.ResourceIndex) {
				writers = append(writers, fg.nodes[pass].Name)
			} else {
				readers = append(readers, fg.nodes[pass].Name)
			}
		}

		if len(writers) > 1 || (len(writers) > 0 && len(readers) > 0) {
			h := &HazardError{
				ResourceIndex: n.ResourceIndex,
				Resource:      n.Name,
				Version:       n.RenameIndex,
				Readers:       readers,
				Writers:       writers,
			}
			core.LogError("%s", h)
			hazards = append(hazards, h)
		}
	}
	return hazards
}

func (fg *FrameGraph) writes(pass NodeIndex, resourceIndex int) bool {
	for _, e := range fg.outgoing[pass] {
		if out := fg.nodes[fg.edges[e].To]; out.IsResource() && out.ResourceIndex == resourceIndex {
			return true
		}
	}
	return false
}
