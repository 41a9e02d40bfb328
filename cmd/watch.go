package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/mabhi256/hotscope/internal/engine"
	"github.com/mabhi256/hotscope/internal/loader"
	"github.com/mabhi256/hotscope/internal/logging"
	"github.com/mabhi256/hotscope/internal/tui"
	"github.com/mabhi256/hotscope/internal/watch"
)

var watchTUI bool

var watchCmd = &cobra.Command{
	Use:   "watch <dir>...",
	Short: "Watch class directories and report invalidated groups",
	Long: `Watch polls class output directories, reanalyzes classes whose bytes changed
and reports every group whose invalidation key moved.

Examples:
  hotscope watch build/classes/kotlin/main
  hotscope watch build/classes --tui`,
	Args:              cobra.MinimumNArgs(1),
	ValidArgsFunction: completeClassPaths,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		if watchTUI {
			// the dashboard owns the terminal
			logger = logging.NewDiscardLogger()
		}

		eng := engine.New(cfg.AnalyzerConfig(), engineOptions())
		sources, err := loader.Discover(args, cfg.Watch.IgnorePatterns)
		if err != nil {
			return err
		}
		report, err := eng.Load(ctx, sources)
		if err != nil {
			return err
		}

		run := func(ctx context.Context, handler watch.Handler) error {
			w := watch.New(args, eng, handler, watch.Options{
				PollInterval: cfg.Watch.PollInterval(),
				Debounce:     cfg.Watch.Debounce(),
				Ignore:       cfg.Watch.IgnorePatterns,
				Logger:       logger,
			})
			return w.Run(ctx)
		}

		if watchTUI {
			return tui.RunDashboard(ctx, tui.NewDashboard("hotscope watch", args),
				func(ctx context.Context, notify func(*engine.Report, error)) error {
					return run(ctx, notify)
				})
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Loaded %d classes, %d groups. Watching for changes...\n",
			len(report.Classes), len(engine.Groups(eng.Current())))
		return run(ctx, func(report *engine.Report, err error) {
			if err != nil {
				fmt.Fprintf(out, "reload failed: %v\n", err)
				return
			}
			for _, c := range report.Changes {
				fmt.Fprintln(out, c)
			}
		})
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().BoolVar(&watchTUI, "tui", false, "show a live dashboard")
}
