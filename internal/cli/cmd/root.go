// Package cmd implements the blutter command-line shell: a thin
// cobra tree over the dart lifting core, the same fang-wrapped,
// slog-backed shape the teacher's reverse tool used for its own
// terminal entry point.
package cmd

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "blutter",
	Short: "Dart/Flutter AOT snapshot lifter",
	Long: `blutter lifts ARM64 machine code compiled from a Dart/Flutter AOT
snapshot back into a typed intermediate representation: object pool
loads, class id checks, GDT dispatch calls, write barriers, and the
other idioms the Dart AOT compiler emits.`,
	Example: `
# Lift a run of instructions starting at a known function entry
blutter lift libapp.so 0x1a2b30 40

# List the function and symbol table blutter can resolve calls against
blutter functions libapp.so
  `,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debug, _ := cmd.Flags().GetBool("debug"); debug {
			os.Setenv("BLUTTER_LOG_LEVEL", "debug")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colorized output")
}

// Execute runs the root command, routing through fang when stdout is
// a terminal and falling back to plain cobra execution when piped —
// the same bypass the teacher's Execute used to dodge fang's markdown
// rendering in non-interactive contexts.
func Execute() {
	if !term.IsTerminal(os.Stdout.Fd()) {
		if err := rootCmd.Execute(); err != nil {
			os.Exit(1)
		}
		return
	}
	if err := fang.Execute(context.Background(), rootCmd, fang.WithNotifySignal(os.Interrupt)); err != nil {
		os.Exit(1)
	}
}
