package cmd

import (
	"fmt"

	"github.com/nxadm/tail"
	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Inspect blutter's own log output",
}

var logsTailCmd = &cobra.Command{
	Use:   "tail <file>",
	Short: "Follow a BLUTTER_LOG_TO_FILE log file live",
	Long: `tail follows the timestamped log file internal/logging writes when
BLUTTER_LOG_TO_FILE=1 is set, the motivating use case that package's doc
comment names but never itself consumes.`,
	Args: cobra.ExactArgs(1),
	RunE: runLogsTail,
}

func init() {
	logsCmd.AddCommand(logsTailCmd)
	rootCmd.AddCommand(logsCmd)
}

func runLogsTail(cmd *cobra.Command, args []string) error {
	t, err := tail.TailFile(args[0], tail.Config{Follow: true, ReOpen: true, Poll: true})
	if err != nil {
		return fmt.Errorf("tail %s: %w", args[0], err)
	}
	defer t.Stop()

	for line := range t.Lines {
		if line.Err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), line.Err)
			continue
		}
		fmt.Fprintln(cmd.OutOrStdout(), line.Text)
	}
	return nil
}
