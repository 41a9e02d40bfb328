package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mabhi256/hotscope/internal/analysis"
)

var keyCmd = &cobra.Command{
	Use:   "key <group> <path>...",
	Short: "Resolve the invalidation key of one group",
	Long: `Resolve the invalidation key of a group across the given classes. The group
is a decimal key as emitted by the Compose compiler, or "remember". Separate
negative keys from the flags with --.

Examples:
  hotscope key -- -1340203414 build/classes/kotlin/main
  hotscope key remember app.jar`,
	Args: cobra.MinimumNArgs(2),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) == 0 {
			return []string{"remember"}, cobra.ShellCompDirectiveNoFileComp
		}
		return completeClassPaths(cmd, args, toComplete)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		group, err := analysis.ParseGroupKey(args[0])
		if err != nil {
			return err
		}

		info, err := analyzePaths(cmd.Context(), args[1:])
		if err != nil {
			return err
		}

		key, ok := analysis.ResolveInvalidationKey(info, group)
		if !ok {
			return fmt.Errorf("unknown group: %s", group)
		}
		fmt.Fprintln(cmd.OutOrStdout(), key)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keyCmd)
}
