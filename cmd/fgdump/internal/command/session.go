package command

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spaghettifunk/framegraph/engine/assets/loaders"
	"github.com/spaghettifunk/framegraph/engine/framegraph"
	"github.com/spaghettifunk/framegraph/engine/renderer/headless"
	"github.com/spaghettifunk/framegraph/engine/systems"
	"github.com/spf13/cobra"
)

// CompileOptions are the flags shared by every command that compiles.
type CompileOptions struct {
	Width        uint32
	Height       uint32
	HazardPolicy string
	AliasBuffers bool
	MemoryBudget uint64
}

func (o *CompileOptions) AddFlags(cmd *cobra.Command) {
	cmd.Flags().Uint32Var(&o.Width, "width", 1280, "Framebuffer width scaled resources are sized from")
	cmd.Flags().Uint32Var(&o.Height, "height", 720, "Framebuffer height scaled resources are sized from")
	cmd.Flags().StringVar(&o.HazardPolicy, "hazard-policy", "report", "What a hazard does to compilation (report | fatal)")
	cmd.Flags().BoolVar(&o.AliasBuffers, "alias-buffers", false, "Let buffers alias like textures")
	cmd.Flags().Uint64Var(&o.MemoryBudget, "memory-budget", 0, "Headless backend budget in bytes, 0 is unlimited")
}

// session compiles pipelines against one headless backend, so physical
// resources carry over from one compilation to the next.
type session struct {
	opts      CompileOptions
	policy    framegraph.HazardPolicy
	backend   *headless.Backend
	allocator *systems.PhysicalResourceAllocator
}

func newSession(opts CompileOptions, registerer prometheus.Registerer) (*session, error) {
	policy, err := framegraph.ParseHazardPolicy(opts.HazardPolicy)
	if err != nil {
		return nil, err
	}
	backend := headless.New(opts.MemoryBudget)
	allocator, err := systems.NewPhysicalResourceAllocator(backend, systems.AllocatorConfig{
		AliasBuffers: opts.AliasBuffers,
		Registerer:   registerer,
	})
	if err != nil {
		return nil, err
	}
	return &session{
		opts:      opts,
		policy:    policy,
		backend:   backend,
		allocator: allocator,
	}, nil
}

func (s *session) compile(pd *loaders.PipelineDescription, factory loaders.ExecuteFactory) (*framegraph.CompiledGraph, error) {
	fg := framegraph.New()
	extent := loaders.Extent{Width: s.opts.Width, Height: s.opts.Height}
	if _, err := pd.Declare(fg, extent, factory); err != nil {
		return nil, err
	}
	return fg.Compile(s.allocator, framegraph.WithHazardPolicy(s.policy))
}

func (s *session) close() error {
	return s.allocator.Reset()
}

// summarize prints one line per hazard and a closing count.
func summarize(cli *CLI, name string, cg *framegraph.CompiledGraph) {
	for _, h := range cg.Hazards() {
		cli.Println(Alert("hazard"), h.Error())
	}
	used := 0
	for _, r := range cg.Resources() {
		if r.Used {
			used++
		}
	}
	status := Highlight("ok")
	if len(cg.Hazards()) > 0 {
		status = Alert("hazards")
	}
	cli.Printf("%s %s: %d passes, %d of %d resources bound, %d hazards\n",
		status, name, len(cg.Passes()), used, len(cg.Resources()), len(cg.Hazards()))
}
