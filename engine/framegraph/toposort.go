package framegraph

import (
	"container/heap"

	"github.com/spaghettifunk/framegraph/engine/containers"
)

// readyQueue hands out ready nodes lowest insertion index first, so nodes
// without a path between them keep the order they were declared in.
type readyQueue []NodeIndex

func (q readyQueue) Len() int            { return len(q) }
func (q readyQueue) Less(i, j int) bool  { return q[i] < q[j] }
func (q readyQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *readyQueue) Push(x interface{}) { *q = append(*q, x.(NodeIndex)) }
func (q *readyQueue) Pop() interface{} {
	old := *q
	n := old[len(old)-1]
	*q = old[:len(old)-1]
	return n
}

// topologicalSort orders every node of the graph, passes and resources alike.
func (fg *FrameGraph) topologicalSort() ([]NodeIndex, error) {
	inDegree := make([]int, len(fg.nodes))
	for _, e := range fg.edges {
		inDegree[e.To]++
	}

	ready := &readyQueue{}
	for i, d := range inDegree {
		if d == 0 {
			*ready = append(*ready, NodeIndex(i))
		}
	}
	heap.Init(ready)

	order := make([]NodeIndex, 0, len(fg.nodes))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(NodeIndex)
		order = append(order, n)
		for _, e := range fg.outgoing[n] {
			to := fg.edges[e].To
			inDegree[to]--
			if inDegree[to] == 0 {
				heap.Push(ready, to)
			}
		}
	}

	if len(order) != len(fg.nodes) {
		return nil, fg.cycleError(inDegree)
	}
	return order, nil
}

// cycleError explains a failed sort. Every node left with a positive in-degree
// has a predecessor that is also left, so walking predecessors must loop; the
// loop is then traced forward breadth first to report the shortest cycle
// through the node where the walk closed.
func (fg *FrameGraph) cycleError(inDegree []int) *CycleError {
	cerr := &CycleError{}
	start := InvalidNode
	for i, d := range inDegree {
		if d > 0 {
			cerr.Unscheduled = append(cerr.Unscheduled, fg.nodes[i].String())
			if start == InvalidNode {
				start = NodeIndex(i)
			}
		}
	}

	seen := make(map[NodeIndex]bool)
	for !seen[start] {
		seen[start] = true
		for _, e := range fg.incoming[start] {
			if from := fg.edges[e].From; inDegree[from] > 0 {
				start = from
				break
			}
		}
	}

	parent := make(map[NodeIndex]NodeIndex)
	queue := containers.NewRingQueue[NodeIndex](8)
	queue.Push(start)
	for !queue.IsEmpty() {
		n, _ := queue.Dequeue()
		for _, e := range fg.outgoing[n] {
			to := fg.edges[e].To
			if inDegree[to] == 0 {
				continue
			}
			if to == start {
				cerr.Cycle = fg.tracePath(parent, start, n)
				return cerr
			}
			if _, ok := parent[to]; !ok {
				parent[to] = n
				queue.Push(to)
			}
		}
	}
	// unreachable for a graph with a cycle
	cerr.Cycle = []string{fg.nodes[start].String()}
	return cerr
}

func (fg *FrameGraph) tracePath(parent map[NodeIndex]NodeIndex, start, last NodeIndex) []string {
	var path []NodeIndex
	for n := last; n != start; n = parent[n] {
		path = append(path, n)
	}
	path = append(path, start)

	names := make([]string, 0, len(path)+1)
	for i := len(path) - 1; i >= 0; i-- {
		names = append(names, fg.nodes[path[i]].String())
	}
	return append(names, fg.nodes[start].String())
}
