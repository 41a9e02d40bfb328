package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mabhi256/hotscope/internal/analysis"
)

var analyzeOutput string

var analyzeCmd = &cobra.Command{
	Use:   "analyze <path>...",
	Short: "Print the scope tree of compiled classes",
	Long: `Analyze .class files, class directories and jars and print every method's
scope tree with group keys, scope hashes and static-call dependencies.

Examples:
  hotscope analyze build/classes/kotlin/main
  hotscope analyze app.jar -o json`,
	Args:              cobra.MinimumNArgs(1),
	ValidArgsFunction: completeClassPaths,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return validateOutput(analyzeOutput)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := analyzePaths(cmd.Context(), args)
		if err != nil {
			return err
		}

		if analyzeOutput == formatJSON {
			return writeJSON(cmd.OutOrStdout(), struct {
				Classes []string              `json:"classes"`
				Scopes  []*analysis.ScopeInfo `json:"scopes"`
			}{info.ClassIds(), info.Scopes()})
		}
		return analysis.WriteTree(cmd.OutOrStdout(), info)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	registerOutputFlag(analyzeCmd, &analyzeOutput)
}
