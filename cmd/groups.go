package cmd

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/mabhi256/hotscope/internal/engine"
)

var groupsOutput string

var groupsCmd = &cobra.Command{
	Use:               "groups <path>...",
	Short:             "List every group with its invalidation key",
	Args:              cobra.MinimumNArgs(1),
	ValidArgsFunction: completeClassPaths,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return validateOutput(groupsOutput)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := analyzePaths(cmd.Context(), args)
		if err != nil {
			return err
		}

		entries := engine.Groups(info)
		out := cmd.OutOrStdout()
		if groupsOutput == formatJSON {
			return writeJSON(out, entries)
		}

		writeGroupTable(out, entries)
		return nil
	},
}

func writeGroupTable(w io.Writer, entries []engine.GroupEntry) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Group", "Key", "Scopes"})
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	for _, e := range entries {
		table.Append([]string{e.Group.String(), e.Key.String(), fmt.Sprintf("%d", e.Scopes)})
	}
	table.Render()
}

func init() {
	rootCmd.AddCommand(groupsCmd)
	registerOutputFlag(groupsCmd, &groupsOutput)
}
