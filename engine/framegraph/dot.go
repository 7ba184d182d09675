package framegraph

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Dump writes the schedule, the resource lifetimes and the hazards in a form
// meant for people.
func (cg *CompiledGraph) Dump(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "schedule (%d passes):\n", len(cg.passes))
	for _, p := range cg.passes {
		fmt.Fprintf(bw, "  [%d] %s\n", p.ScheduleIndex, p.Name)
		for _, b := range p.Bindings {
			fmt.Fprintf(bw, "      %-5s %s#%d %s -> %s\n", b.Access, b.Name, b.Version, b.Usage, b.Physical)
		}
	}

	fmt.Fprintf(bw, "resources (%d):\n", len(cg.resources))
	for _, r := range cg.resources {
		lifetime := "unused"
		if r.Used {
			lifetime = r.Lifetime.String()
		}
		fmt.Fprintf(bw, "  %d %s %s lifetime=%s physical=%s\n", r.Index, r.Name, r.Info, lifetime, r.Physical)
	}

	fmt.Fprintf(bw, "hazards (%d):\n", len(cg.hazards))
	for _, h := range cg.hazards {
		fmt.Fprintf(bw, "  %s\n", h)
	}
	return bw.Flush()
}

// WriteDOT exports the graph to Graphviz. Passes are boxes labelled with
// their schedule index, resource versions are ellipses labelled with the
// lifetime of their resource and the physical resource backing it.
func (cg *CompiledGraph) WriteDOT(w io.Writer) error {
	bw := bufio.NewWriter(w)

	scheduled := make(map[NodeIndex]int, len(cg.passes))
	for _, p := range cg.passes {
		scheduled[p.Node] = p.ScheduleIndex
	}

	fmt.Fprintln(bw, "digraph framegraph {")
	fmt.Fprintln(bw, "  rankdir=LR;")
	for _, i := range cg.order {
		n := cg.nodes[i]
		if n.IsPass() {
			fmt.Fprintf(bw, "  n%d [shape=box, label=\"%s\\l#%d\\l\"];\n", i, escapeDOT(n.Name), scheduled[i])
			continue
		}
		r := cg.resources[n.ResourceIndex]
		lifetime := "unused"
		if r.Used {
			lifetime = r.Lifetime.String()
		}
		// Graphviz DOT: use "\l" as a newline to obtain left-aligned text.
		fmt.Fprintf(bw, "  n%d [shape=ellipse, label=\"%s\\llifetime: %s\\lphysical: %s\\l\"];\n",
			i, escapeDOT(n.String()), lifetime, escapeDOT(r.Physical.String()))
	}
	for _, e := range cg.edges {
		fmt.Fprintf(bw, "  n%d -> n%d [label=\"%s\"];\n", e.From, e.To, e.Usage)
	}
	fmt.Fprintln(bw, "}")
	return bw.Flush()
}

func escapeDOT(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
