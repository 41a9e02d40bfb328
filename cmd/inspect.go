package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/mabhi256/hotscope/internal/tui"
)

var inspectCmd = &cobra.Command{
	Use:               "inspect <path>...",
	Short:             "Browse scope trees interactively",
	Args:              cobra.MinimumNArgs(1),
	ValidArgsFunction: completeClassPaths,
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := analyzePaths(cmd.Context(), args)
		if err != nil {
			return err
		}
		return tui.RunInspect("hotscope inspect "+strings.Join(args, " "), info)
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
