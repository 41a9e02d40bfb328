package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/mabhi256/hotscope/internal/analysis"
	"github.com/mabhi256/hotscope/internal/engine"
	"github.com/mabhi256/hotscope/internal/loader"
	"github.com/mabhi256/hotscope/utils"
)

const (
	formatText = "text"
	formatJSON = "json"
)

var outputFormats = []string{formatText, formatJSON}

// completeClassPaths completes class files, jars and directories
var completeClassPaths = utils.CompleteFilesByExtension([]string{loader.ClassExt, loader.JarExt})

func validateOutput(format string) error {
	if !slices.Contains(outputFormats, format) {
		return fmt.Errorf("invalid output format: %s. Valid options: %v", format, outputFormats)
	}
	return nil
}

func registerOutputFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "output", "o", formatText, "Output format (text|json)")
	cmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return outputFormats, cobra.ShellCompDirectiveNoFileComp
	})
}

func engineOptions() engine.Options {
	return engine.Options{Workers: cfg.Analysis.Workers, Logger: logger}
}

// analyzePaths discovers and analyzes every class under paths
func analyzePaths(ctx context.Context, paths []string) (*analysis.RuntimeInfo, error) {
	sources, err := loader.Discover(paths, cfg.Watch.IgnorePatterns)
	if err != nil {
		return nil, err
	}
	logger.Debug("sources discovered", "count", len(sources))
	return engine.Analyze(ctx, cfg.AnalyzerConfig(), sources, engineOptions())
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
