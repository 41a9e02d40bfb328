package cmd

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Set at release time with -ldflags "-X github.com/mabhi256/hotscope/cmd.version=..."
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "hotscope version %s\n", version)
		if verbosity > 0 {
			fmt.Fprintf(out, "  go:       %s\n", runtime.Version())
			if rev := buildRevision(); rev != "" {
				fmt.Fprintf(out, "  revision: %s\n", rev)
			}
		}
	},
}

// buildRevision returns the VCS revision stamped by the go tool, if any
func buildRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	var rev, dirty string
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			if s.Value == "true" {
				dirty = "-dirty"
			}
		}
	}
	if len(rev) > 12 {
		rev = rev[:12]
	}
	if rev == "" {
		return ""
	}
	return rev + dirty
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
