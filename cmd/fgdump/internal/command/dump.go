package command

import (
	"fmt"
	"io"
	"os"

	"github.com/spaghettifunk/framegraph/engine/assets/loaders"
	"github.com/spf13/cobra"
)

type DumpOptions struct {
	CompileOptions
	Format string
	Output string
}

func NewDumpCommand(cli *CLI) *cobra.Command {
	var opts DumpOptions

	cmd := &cobra.Command{
		Use:   "dump <pipeline.fg.toml>",
		Short: "Compile a pipeline and print its schedule",
		Long: Highlight("fgdump dump <pipeline.fg.toml>") + "\n\n" +
			"Compile a pipeline description once and print the pass schedule with\n" +
			"every resource lifetime and physical binding, or a Graphviz graph.\n\n" +
			"Examples:\n" +
			"  fgdump dump assets/pipelines/deferred.fg.toml\n\n" +
			"  fgdump dump deferred.fg.toml --format dot -o frame.dot\n",
		Args: ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunDump(cli, args[0], opts)
		},
	}

	opts.AddFlags(cmd)
	cmd.Flags().StringVar(&opts.Format, "format", "text", "Output format (text | dot)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Write to this file instead of stdout")
	return cmd
}

func RunDump(cli *CLI, path string, opts DumpOptions) error {
	if opts.Format != "text" && opts.Format != "dot" {
		return fmt.Errorf("unknown format %q", opts.Format)
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

	cg, err := s.compile(pd, nil)
	if err != nil {
		return fmt.Errorf("compile %s: %w", pd.Name, err)
	}

	var w io.Writer = cli.Out
	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	if opts.Format == "dot" {
		err = cg.WriteDOT(w)
	} else {
		err = cg.Dump(w)
	}
	if err != nil {
		return err
	}
	if opts.Format == "text" || opts.Output != "" {
		summarize(cli, pd.Name, cg)
	}
	return nil
}
