package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mabhi256/hotscope/internal/engine"
)

var (
	diffOutput string
	diffAll    bool
)

var diffCmd = &cobra.Command{
	Use:   "diff <before> <after>",
	Short: "Compare the groups of two builds",
	Long: `Compare two builds of the same classes and report which groups were added,
removed or invalidated. Each side may be a class file, directory or jar.

Examples:
  hotscope diff build-old/classes build/classes
  hotscope diff app-1.jar app-2.jar --all`,
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: completeClassPaths,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return validateOutput(diffOutput)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		before, err := analyzePaths(cmd.Context(), args[:1])
		if err != nil {
			return err
		}
		after, err := analyzePaths(cmd.Context(), args[1:])
		if err != nil {
			return err
		}

		changes := []engine.GroupChange{}
		counts := make(map[engine.ChangeKind]int)
		for _, c := range engine.Diff(before, after) {
			counts[c.Kind]++
			if diffAll || c.Kind != engine.ChangeUnchanged {
				changes = append(changes, c)
			}
		}

		out := cmd.OutOrStdout()
		if diffOutput == formatJSON {
			return writeJSON(out, changes)
		}

		for _, c := range changes {
			fmt.Fprintln(out, c)
		}
		fmt.Fprintf(out, "%d invalidated, %d added, %d removed, %d unchanged\n",
			counts[engine.ChangeInvalidated], counts[engine.ChangeAdded],
			counts[engine.ChangeRemoved], counts[engine.ChangeUnchanged])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(diffCmd)
	registerOutputFlag(diffCmd, &diffOutput)
	diffCmd.Flags().BoolVar(&diffAll, "all", false, "include unchanged groups")
}
