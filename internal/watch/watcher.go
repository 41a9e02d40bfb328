// Package watch polls class output directories and reloads changed classes.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/mabhi256/hotscope/internal/engine"
	"github.com/mabhi256/hotscope/internal/loader"
	"github.com/mabhi256/hotscope/internal/logging"
)

type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
)

func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Event represents one detected change to a class file
type Event struct {
	Type      EventType
	Path      string
	Timestamp time.Time
}

// Reloader is the part of the engine the watcher drives
type Reloader interface {
	Reload(ctx context.Context, sources []loader.Source) (*engine.Report, error)
	Forget(origins ...string) int
}

// Handler receives the outcome of every reload
type Handler func(report *engine.Report, err error)

type Options struct {
	PollInterval time.Duration
	Debounce     time.Duration
	Ignore       []string
	Logger       *slog.Logger
}

type fileState struct {
	size    int64
	modTime time.Time
}

// Watcher detects created, modified and deleted class files by size and
// modification time
type Watcher struct {
	dirs     []string
	opts     Options
	reloader Reloader
	handler  Handler
	logger   *slog.Logger

	state map[string]fileState
}

func New(dirs []string, reloader Reloader, handler Handler, opts Options) *Watcher {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 500 * time.Millisecond
	}
	return &Watcher{
		dirs:     dirs,
		opts:     opts,
		reloader: reloader,
		handler:  handler,
		logger:   logger,
	}
}

// Prime records the current state of the watched directories without
// producing events
func (w *Watcher) Prime() error {
	state, err := w.scan()
	if err != nil {
		return err
	}
	w.state = state
	return nil
}

// Poll rescans the watched directories and returns the changes since the
// previous scan, sorted by path
func (w *Watcher) Poll() ([]Event, error) {
	state, err := w.scan()
	if err != nil {
		return nil, err
	}
	now := time.Now()

	var events []Event
	for path, cur := range state {
		prev, existed := w.state[path]
		switch {
		case !existed:
			events = append(events, Event{Type: EventCreate, Path: path, Timestamp: now})
		case prev.size != cur.size || !prev.modTime.Equal(cur.modTime):
			events = append(events, Event{Type: EventModify, Path: path, Timestamp: now})
		}
	}
	for path := range w.state {
		if _, exists := state[path]; !exists {
			events = append(events, Event{Type: EventDelete, Path: path, Timestamp: now})
		}
	}
	w.state = state

	slices.SortFunc(events, func(a, b Event) int {
		return strings.Compare(a.Path, b.Path)
	})
	return events, nil
}

func (w *Watcher) scan() (map[string]fileState, error) {
	state := make(map[string]fileState)
	for _, dir := range w.dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !loader.IsClassFile(path) {
				return nil
			}
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return err
			}
			if loader.Ignored(filepath.ToSlash(rel), w.opts.Ignore) {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				// removed between listing and stat
				return nil
			}
			state[path] = fileState{size: info.Size(), modTime: info.ModTime()}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return state, nil
}

// Run polls until ctx is cancelled. Batches of changes are debounced and
// handed to the reloader one batch at a time.
func (w *Watcher) Run(ctx context.Context) error {
	if w.state == nil {
		if err := w.Prime(); err != nil {
			return err
		}
	}

	batches := make(chan []Event, 1)
	debouncer := NewBatchDebouncer(w.opts.Debounce, func(events []Event) {
		select {
		case batches <- events:
		case <-ctx.Done():
		}
	})
	defer debouncer.Cancel()

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	w.logger.Info("watching class directories",
		"dirs", w.dirs,
		"pollInterval", w.opts.PollInterval,
		"debounce", w.opts.Debounce)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			events, err := w.Poll()
			if err != nil {
				w.logger.Warn("scan failed", "error", err)
				continue
			}
			debouncer.Add(events...)
		case events := <-batches:
			w.process(ctx, events)
		}
	}
}

func (w *Watcher) process(ctx context.Context, events []Event) {
	latest := make(map[string]EventType, len(events))
	for _, e := range events {
		latest[e.Path] = e.Type
	}

	var sources []loader.Source
	var deleted []string
	for _, path := range slices.Sorted(maps.Keys(latest)) {
		if latest[path] == EventDelete {
			deleted = append(deleted, path)
			continue
		}
		src, err := loader.ReadFile(path)
		if err != nil {
			w.logger.Warn("skipping unreadable class file", "path", path, "error", err)
			continue
		}
		sources = append(sources, src)
	}
	if len(deleted) > 0 {
		n := w.reloader.Forget(deleted...)
		w.logger.Info("class files deleted", "files", len(deleted), "forgotten", n)
	}
	if len(sources) == 0 {
		return
	}

	w.logger.Debug("reloading classes", "files", len(sources))
	report, err := w.reloader.Reload(ctx, sources)
	if err != nil {
		w.logger.Error("reload failed", "error", err)
	}
	if w.handler != nil {
		w.handler(report, err)
	}
}
