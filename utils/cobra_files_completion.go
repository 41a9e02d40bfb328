package utils

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

// CompleteFilesByExtension completes directories and files ending in one of
// extensions
func CompleteFilesByExtension(extensions []string) func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return completePath(toComplete, extensions), cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
	}
}

func completePath(toComplete string, extensions []string) []string {
	dir := filepath.Dir(toComplete)
	prefix := filepath.Base(toComplete)

	// If no path separator, we're completing in current directory
	if !strings.Contains(toComplete, "/") {
		dir = "."
		prefix = toComplete
	} else if strings.HasSuffix(toComplete, "/") {
		dir = toComplete
		prefix = ""
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var suggestions []string
	for _, file := range files {
		name := file.Name()

		// Skip hidden files and non-matching prefixes
		if strings.HasPrefix(name, ".") || !strings.HasPrefix(name, prefix) {
			continue
		}

		suggestion := name
		if dir != "." {
			suggestion = filepath.Join(dir, name)
		}

		if file.IsDir() {
			suggestions = append(suggestions, suggestion+"/")
		} else if hasExtension(name, extensions) {
			suggestions = append(suggestions, suggestion)
		}
	}

	slices.Sort(suggestions)
	return suggestions
}

func hasExtension(filename string, extensions []string) bool {
	for _, ext := range extensions {
		if strings.HasSuffix(strings.ToLower(filename), ext) {
			return true
		}
	}
	return false
}
