package command

import (
	"fmt"
	"time"

	"github.com/spaghettifunk/framegraph/engine/assets/loaders"
	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spf13/cobra"
)

type BenchOptions struct {
	CompileOptions
	Frames int
}

func NewBenchCommand(cli *CLI) *cobra.Command {
	var opts BenchOptions

	cmd := &cobra.Command{
		Use:   "bench <pipeline.fg.toml>",
		Short: "Declare, compile and execute a pipeline for many frames",
		Long: Highlight("fgdump bench <pipeline.fg.toml>") + "\n\n" +
			"Run the whole per frame cycle against the headless backend and report\n" +
			"frame times and how well physical resources were reused.\n",
		Args: ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunBench(cli, args[0], opts)
		},
	}

	opts.AddFlags(cmd)
	cmd.Flags().IntVar(&opts.Frames, "frames", 1000, "Number of frames to run")
	return cmd
}

func RunBench(cli *CLI, path string, opts BenchOptions) error {
	if opts.Frames <= 0 {
		return fmt.Errorf("frames must be positive, got %d", opts.Frames)
	}
	pd, err := loaders.LoadPipeline(path)
	if err != nil {
		return err
	}
	s, err := newSession(opts.CompileOptions, nil)
	if err != nil {
		return err
	}
	defer s.close()

	metrics := core.NewMetrics()
	clock := core.NewClock()
	clock.Start()
	var compileTime time.Duration
	for i := 0; i < opts.Frames; i++ {
		start := time.Now()
		cg, err := s.compile(pd, nil)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		compileTime += time.Since(start)
		if err := cg.Execute(nil); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		metrics.Update(time.Since(start).Seconds())
	}
	clock.Update()

	stats := s.allocator.Stats()
	backend := s.backend.Stats()
	cli.Printf("%s %s: %d frames in %.3fs\n", Highlight("bench"), pd.Name, opts.Frames, clock.Elapsed())
	cli.Printf("  compile avg: %s\n", compileTime/time.Duration(opts.Frames))
	cli.Printf("  frame avg (last %d): %.3f ms\n", core.AVG_COUNT, metrics.FrameTime())
	cli.Printf("  allocator: %d hits, %d misses, %d live\n", stats.Hits, stats.Misses, stats.Live)
	cli.Printf("  backend: %d objects, %d bytes peak\n", backend.LiveObjects, backend.PeakBytes)
	return nil
}
