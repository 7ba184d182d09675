package framegraph

import (
	"fmt"

	"github.com/spaghettifunk/framegraph/engine/renderer"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

type NodeIndex int

type EdgeIndex int

const InvalidNode NodeIndex = -1

type NodeKind int

const (
	NodeKindPass NodeKind = iota
	NodeKindResource
)

func (k NodeKind) String() string {
	if k == NodeKindPass {
		return "pass"
	}
	return "resource"
}

// Node is either a pass or one version of a resource. Resource nodes share the
// resource table entry at ResourceIndex; RenameIndex counts the writes that
// produced this version.
type Node struct {
	Kind          NodeKind
	Name          string
	ResourceIndex int
	RenameIndex   int32
}

func (n Node) IsPass() bool {
	return n.Kind == NodeKindPass
}

func (n Node) IsResource() bool {
	return n.Kind == NodeKindResource
}

func (n Node) String() string {
	if n.IsPass() {
		return n.Name
	}
	return fmt.Sprintf("%s#%d", n.Name, n.RenameIndex)
}

// Edge goes from a resource to the pass reading it, or from a pass to the
// resource it produces.
type Edge struct {
	From  NodeIndex
	To    NodeIndex
	Usage metadata.ResourceUsage
}

// Resource is a logical resource shared by all of its versions.
type Resource struct {
	Name     string
	Info     metadata.ResourceInfo
	lifetime *metadata.Lifetime
}

// Lifetime is only known once the graph has been compiled, and never for a
// resource no pass touches.
func (r Resource) Lifetime() (metadata.Lifetime, bool) {
	if r.lifetime == nil {
		return metadata.Lifetime{}, false
	}
	return *r.lifetime, true
}

// PassExecuteFunc records the GPU work of a pass. It gets the opaque frame
// context and the physical resources bound to what the pass declared.
type PassExecuteFunc func(frame renderer.FrameContext, resources *PassResources) error

// FrameGraph is the logical graph of one frame. Build it, compile it once, drop
// it. Not safe for concurrent use.
type FrameGraph struct {
	nodes     []Node
	edges     []Edge
	outgoing  [][]EdgeIndex
	incoming  [][]EdgeIndex
	execute   []PassExecuteFunc
	resources []Resource

	consumed bool
}

func New() *FrameGraph {
	return &FrameGraph{}
}

func (fg *FrameGraph) CreatePassNode(name string) NodeIndex {
	fg.ensureMutable()
	return fg.addNode(Node{Kind: NodeKindPass, Name: name})
}

func (fg *FrameGraph) CreateResourceNode(name string, info metadata.ResourceInfo) NodeIndex {
	fg.ensureMutable()
	fg.resources = append(fg.resources, Resource{Name: name, Info: info})
	return fg.addNode(Node{
		Kind:          NodeKindResource,
		Name:          name,
		ResourceIndex: len(fg.resources) - 1,
	})
}

// CloneResourceNode creates the next version of a resource. The original node
// is left as it is.
func (fg *FrameGraph) CloneResourceNode(resource NodeIndex) NodeIndex {
	fg.ensureMutable()
	n := fg.mustNode(resource)
	if !n.IsResource() {
		malformed(resource, "cannot clone pass %q, only resources have versions", n.Name)
	}
	return fg.addNode(Node{
		Kind:          NodeKindResource,
		Name:          n.Name,
		ResourceIndex: n.ResourceIndex,
		RenameIndex:   n.RenameIndex + 1,
	})
}

// LinkInput declares that pass reads input.
func (fg *FrameGraph) LinkInput(pass, input NodeIndex, usage metadata.ResourceUsage) {
	fg.ensureMutable()
	fg.mustPass(pass)
	fg.mustResource(input)
	fg.addEdge(Edge{From: input, To: pass, Usage: usage})
}

// LinkOutput declares that pass produces output.
func (fg *FrameGraph) LinkOutput(pass, output NodeIndex, usage metadata.ResourceUsage) {
	fg.ensureMutable()
	fg.mustPass(pass)
	fg.mustResource(output)
	fg.addEdge(Edge{From: pass, To: output, Usage: usage})
}

func (fg *FrameGraph) SetPassExecute(pass NodeIndex, fn PassExecuteFunc) {
	fg.ensureMutable()
	fg.mustPass(pass)
	fg.execute[pass] = fn
}

func (fg *FrameGraph) Node(i NodeIndex) Node {
	return fg.mustNode(i)
}

func (fg *FrameGraph) NodeCount() int {
	return len(fg.nodes)
}

func (fg *FrameGraph) Edge(i EdgeIndex) Edge {
	if i < 0 || int(i) >= len(fg.edges) {
		malformed(InvalidNode, "edge %d out of range (%d edges)", i, len(fg.edges))
	}
	return fg.edges[i]
}

func (fg *FrameGraph) EdgeCount() int {
	return len(fg.edges)
}

func (fg *FrameGraph) Resource(index int) Resource {
	if index < 0 || index >= len(fg.resources) {
		malformed(InvalidNode, "resource %d out of range (%d resources)", index, len(fg.resources))
	}
	return fg.resources[index]
}

func (fg *FrameGraph) Resources() []Resource {
	out := make([]Resource, len(fg.resources))
	copy(out, fg.resources)
	return out
}

func (fg *FrameGraph) addNode(n Node) NodeIndex {
	fg.nodes = append(fg.nodes, n)
	fg.outgoing = append(fg.outgoing, nil)
	fg.incoming = append(fg.incoming, nil)
	fg.execute = append(fg.execute, nil)
	return NodeIndex(len(fg.nodes) - 1)
}

func (fg *FrameGraph) addEdge(e Edge) EdgeIndex {
	fg.edges = append(fg.edges, e)
	i := EdgeIndex(len(fg.edges) - 1)
	fg.outgoing[e.From] = append(fg.outgoing[e.From], i)
	fg.incoming[e.To] = append(fg.incoming[e.To], i)
	return i
}

func (fg *FrameGraph) ensureMutable() {
	if fg.consumed {
		malformed(InvalidNode, "graph was already compiled")
	}
}

func (fg *FrameGraph) mustNode(i NodeIndex) Node {
	if i < 0 || int(i) >= len(fg.nodes) {
		malformed(i, "no such node (%d nodes)", len(fg.nodes))
	}
	return fg.nodes[i]
}

func (fg *FrameGraph) mustPass(i NodeIndex) Node {
	n := fg.mustNode(i)
	if !n.IsPass() {
		malformed(i, "%s is a resource, expected a pass", n)
	}
	return n
}

func (fg *FrameGraph) mustResource(i NodeIndex) Node {
	n := fg.mustNode(i)
	if !n.IsResource() {
		malformed(i, "%s is a pass, expected a resource", n)
	}
	return n
}

// neighbors lists the nodes adjacent to i in edge insertion order, both ways.
func (fg *FrameGraph) neighbors(i NodeIndex) []NodeIndex {
	out := make([]NodeIndex, 0, len(fg.incoming[i])+len(fg.outgoing[i]))
	for _, e := range fg.incoming[i] {
		out = append(out, fg.edges[e].From)
	}
	for _, e := range fg.outgoing[i] {
		out = append(out, fg.edges[e].To)
	}
	return out
}
