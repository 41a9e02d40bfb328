package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mabhi256/hotscope/internal/analysis"
	"github.com/mabhi256/hotscope/internal/classfile"
	"github.com/mabhi256/hotscope/internal/loader"
	"github.com/mabhi256/hotscope/internal/logging"
	"github.com/mabhi256/hotscope/internal/registry"
)

// Report summarises one load or reload pass
type Report struct {
	Classes  []string      `json:"classes"` // analyzed classes, in source order
	Skipped  int           `json:"skipped"` // sources whose digest was unchanged
	Methods  int           `json:"methods"`
	Changes  []GroupChange `json:"changes"` // every group whose key moved
	Duration time.Duration `json:"duration"`
}

// Invalidated returns the changes whose group must be recomposed
func (r *Report) Invalidated() []GroupChange {
	var result []GroupChange
	for _, c := range r.Changes {
		if c.Kind == ChangeInvalidated {
			result = append(result, c)
		}
	}
	return result
}

type Options struct {
	// Workers bounds parallel class analysis; 0 uses GOMAXPROCS
	Workers int
	Logger  *slog.Logger
}

// Engine owns the authoritative aggregate and decides which groups a class
// change invalidates
type Engine struct {
	analyzer *analysis.Analyzer
	runtime  *registry.RuntimeRegistry
	classes  *registry.ClassRegistry
	workers  int
	logger   *slog.Logger
}

func New(cfg analysis.Config, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Engine{
		analyzer: analysis.NewAnalyzer(cfg, logger),
		runtime:  registry.NewRuntimeRegistry(),
		classes:  registry.NewClassRegistry(),
		workers:  workers,
		logger:   logger,
	}
}

// Current returns the latest aggregate
func (e *Engine) Current() *analysis.RuntimeInfo {
	return e.runtime.Current()
}

// Classes returns the analyzed classes in load order
func (e *Engine) Classes() []registry.ClassRecord {
	return e.classes.Classes()
}

// Key resolves a group against the latest aggregate
func (e *Engine) Key(group analysis.GroupKey) (analysis.InvalidationKey, bool) {
	return analysis.ResolveInvalidationKey(e.runtime.Current(), group)
}

// Load analyzes every source and publishes the result
func (e *Engine) Load(ctx context.Context, sources []loader.Source) (*Report, error) {
	return e.run(ctx, sources, false)
}

// Reload analyzes only the sources whose bytes changed since they were last
// seen and reports the groups whose invalidation key moved
func (e *Engine) Reload(ctx context.Context, sources []loader.Source) (*Report, error) {
	return e.run(ctx, sources, true)
}

// Forget drops the class records loaded from the given origins, so a file
// that reappears is analyzed again. Scopes already published stay in the
// aggregate since a loaded class cannot be unloaded. Returns the number of
// classes forgotten.
func (e *Engine) Forget(origins ...string) int {
	gone := make(map[string]bool, len(origins))
	for _, o := range origins {
		gone[o] = true
	}
	n := 0
	for _, rec := range e.classes.Classes() {
		if gone[rec.Origin] && e.classes.Forget(rec.Name) {
			e.logger.Debug("class forgotten", "class", rec.Name, "origin", rec.Origin)
			n++
		}
	}
	return n
}

type analyzed struct {
	record registry.ClassRecord
	info   *analysis.RuntimeInfo
}

func (e *Engine) run(ctx context.Context, sources []loader.Source, skipUnchanged bool) (*Report, error) {
	start := time.Now()
	results := make([]*analyzed, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, src := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := e.analyze(src, skipUnchanged)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{}
	delta := analysis.NewRuntimeInfo(nil)
	for _, res := range results {
		if res == nil {
			report.Skipped++
			continue
		}
		delta = analysis.Merge(delta, res.info)
		report.Classes = append(report.Classes, res.record.Name)
		report.Methods += res.record.Methods
	}

	old, updated := e.runtime.Update(delta)
	for _, res := range results {
		if res != nil {
			e.classes.Observe(res.record)
		}
	}

	for _, c := range Diff(old, updated) {
		if c.Kind != ChangeUnchanged {
			report.Changes = append(report.Changes, c)
		}
	}
	report.Duration = time.Since(start)

	e.logger.Info("classes analyzed",
		"classes", len(report.Classes),
		"skipped", report.Skipped,
		"methods", report.Methods,
		"changes", len(report.Changes),
		"known", e.classes.Count(),
		"duration", report.Duration)
	return report, nil
}

func (e *Engine) analyze(src loader.Source, skipUnchanged bool) (*analyzed, error) {
	class, err := classfile.Parse(src.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", src.Origin, err)
	}

	digest := src.Digest()
	if skipUnchanged && e.classes.Unchanged(class.Name, digest) {
		e.logger.Debug("class unchanged", "class", class.Name, "origin", src.Origin)
		return nil, nil
	}

	info := e.analyzer.AnalyzeClass(class)
	methods := len(info.MethodIds())
	e.logger.Debug("class analyzed", "class", class.Name, "origin", src.Origin, "methods", methods)

	return &analyzed{
		record: registry.ClassRecord{
			Name:    class.Name,
			Origin:  src.Origin,
			Digest:  digest,
			Methods: methods,
		},
		info: info,
	}, nil
}

// Analyze decodes and analyzes sources without publishing them, folding the
// per-class results in source order
func Analyze(ctx context.Context, cfg analysis.Config, sources []loader.Source, opts Options) (*analysis.RuntimeInfo, error) {
	e := New(cfg, opts)
	if _, err := e.Load(ctx, sources); err != nil {
		return nil, err
	}
	return e.Current(), nil
}
