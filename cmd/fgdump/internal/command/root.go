package command

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spf13/cobra"
)

var (
	logLevelFlag string
)

// CLI is the shared state of every subcommand.
type CLI struct {
	Out io.Writer
}

func NewCLI(w io.Writer) *CLI {
	return &CLI{Out: w}
}

func (c *CLI) Println(a ...any) {
	fmt.Fprintln(c.Out, a...)
}

func (c *CLI) Printf(format string, a ...any) {
	fmt.Fprintf(c.Out, format, a...)
}

// Highlight applies a blue color to the given format and arguments.
func Highlight(format string, a ...any) string {
	return color.RGB(50, 108, 229).Sprintf(format, a...)
}

func Alert(format string, a ...any) string {
	return color.RGB(229, 50, 50).Sprintf(format, a...)
}

func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fgdump",
		Short: "Compile frame graph pipeline descriptions and inspect the result",
		Long: Highlight("Usage: fgdump <subcommand> [args]") + "\n\n" +
			"fgdump reads *.fg.toml pipeline descriptions, compiles them against a\n" +
			"headless backend and prints the schedule, resource lifetimes, physical\n" +
			"bindings and hazards.\n",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return core.SetLogLevel(logLevelFlag)
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "warn", "Engine log level (debug, info, warn, error)")
	return cmd
}

// AddCommands registers all subcommands to the root command.
func AddCommands(root *cobra.Command, cli *CLI) {
	root.AddCommand(
		NewDumpCommand(cli),
		NewWatchCommand(cli),
		NewBenchCommand(cli),
	)
}

func Execute() {
	// Disable color output if NO_COLOR is set in the environment
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		color.NoColor = true
	}

	cli := NewCLI(os.Stdout)
	root := NewRootCommand()
	AddCommands(root, cli)

	if err := root.Execute(); err != nil {
		if msg := err.Error(); msg != "" {
			fmt.Fprintln(os.Stderr, Alert("Error!"), msg)
		}
		os.Exit(1)
	}
}

// ExactArgs returns an error if there is not the exact number of args.
func ExactArgs(number int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) == number {
			return nil
		}
		_ = cmd.Usage()
		return fmt.Errorf("expected %d arguments, got %d", number, len(args))
	}
}
