package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mabhi256/hotscope/internal/analysis"
	"github.com/mabhi256/hotscope/internal/engine"
	"github.com/mabhi256/hotscope/internal/loader"
	"github.com/mabhi256/hotscope/internal/testutil"
)

func TestEventTypeString(t *testing.T) {
	tests := []struct {
		eventType EventType
		want      string
	}{
		{EventCreate, "create"},
		{EventModify, "modify"},
		{EventDelete, "delete"},
		{EventType(99), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.eventType.String())
	}
}

func types(events []Event) map[string]EventType {
	result := make(map[string]EventType, len(events))
	for _, e := range events {
		result[filepath.Base(e.Path)] = e.Type
	}
	return result
}

func TestWatcher_Poll(t *testing.T) {
	dir := t.TempDir()
	a := testutil.WriteFile(t, dir, "com/example/AKt.class", testutil.SimpleClass("com/example/AKt", 1, 1))
	b := testutil.WriteFile(t, dir, "com/example/BKt.class", testutil.SimpleClass("com/example/BKt", 2, 2))

	w := New([]string{dir}, nil, nil, Options{Ignore: []string{"*$$*"}})
	require.NoError(t, w.Prime())

	events, err := w.Poll()
	require.NoError(t, err)
	assert.Empty(t, events)

	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(a, later, later))
	require.NoError(t, os.Remove(b))
	testutil.WriteFile(t, dir, "com/example/CKt.class", testutil.SimpleClass("com/example/CKt", 3, 3))
	testutil.WriteFile(t, dir, "com/example/CKt$$Lambda.class", []byte{1})
	testutil.WriteFile(t, dir, "com/example/notes.txt", []byte("x"))

	events, err = w.Poll()
	require.NoError(t, err)
	assert.Equal(t, map[string]EventType{
		"AKt.class": EventModify,
		"BKt.class": EventDelete,
		"CKt.class": EventCreate,
	}, types(events))
	assert.True(t, events[0].Path < events[1].Path && events[1].Path < events[2].Path)

	events, err = w.Poll()
	require.NoError(t, err)
	assert.Empty(t, events, "state advances after each poll")
}

func TestWatcher_MissingDirectory(t *testing.T) {
	w := New([]string{filepath.Join(t.TempDir(), "missing")}, nil, nil, Options{})
	assert.Error(t, w.Prime())
	assert.Error(t, w.Run(t.Context()))
}

type recorder struct {
	mu      sync.Mutex
	reports []*engine.Report
	errs    []error
	done    chan struct{}
}

func newRecorder() *recorder {
	return &recorder{done: make(chan struct{}, 16)}
}

func (r *recorder) handle(report *engine.Report, err error) {
	r.mu.Lock()
	r.reports = append(r.reports, report)
	r.errs = append(r.errs, err)
	r.mu.Unlock()
	r.done <- struct{}{}
}

func (r *recorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWatcher_RunReloadsChangedClasses(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "com/example/AKt.class", testutil.SimpleClass("com/example/AKt", 100, 1))

	eng := engine.New(analysis.DefaultConfig(), engine.Options{Workers: 1})
	sources, err := loader.Discover([]string{dir}, nil)
	require.NoError(t, err)
	_, err = eng.Load(t.Context(), sources)
	require.NoError(t, err)

	rec := newRecorder()
	w := New([]string{dir}, eng, rec.handle, Options{
		PollInterval: 10 * time.Millisecond,
		Debounce:     20 * time.Millisecond,
	})
	require.NoError(t, w.Prime())

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	testutil.WriteFile(t, dir, "com/example/AKt.class", testutil.SimpleClass("com/example/AKt", 100, 2))
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))
	rec.wait(t)

	cancel()
	require.NoError(t, <-done)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.NoError(t, rec.errs[0])
	invalidated := rec.reports[0].Invalidated()
	require.Len(t, invalidated, 1)
	assert.Equal(t, analysis.Group(100), invalidated[0].Group)
}

type failingReloader struct {
	forgotten []string
}

func (*failingReloader) Reload(context.Context, []loader.Source) (*engine.Report, error) {
	return nil, assert.AnError
}

func (r *failingReloader) Forget(origins ...string) int {
	r.forgotten = append(r.forgotten, origins...)
	return len(origins)
}

func TestWatcher_ProcessReportsErrorsAndSkipsDeletes(t *testing.T) {
	dir := t.TempDir()
	present := testutil.WriteFile(t, dir, "AKt.class", testutil.SimpleClass("AKt", 1, 1))

	rec := newRecorder()
	reloader := &failingReloader{}
	w := New([]string{dir}, reloader, rec.handle, Options{})

	gone := filepath.Join(dir, "Gone.class")
	w.process(t.Context(), []Event{
		{Type: EventDelete, Path: gone},
	})
	assert.Empty(t, rec.reports, "deletions alone do not reload")
	assert.Equal(t, []string{gone}, reloader.forgotten)

	w.process(t.Context(), []Event{
		{Type: EventCreate, Path: present},
		{Type: EventModify, Path: present},
		{Type: EventModify, Path: filepath.Join(dir, "Unreadable.class")},
	})
	require.Len(t, rec.errs, 1)
	assert.ErrorIs(t, rec.errs[0], assert.AnError)
	assert.Len(t, reloader.forgotten, 1, "only deletions are forgotten")
}

func TestWatcher_DeletedClassIsForgotten(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "com/example/AKt.class", testutil.SimpleClass("com/example/AKt", 100, 1))

	eng := engine.New(analysis.DefaultConfig(), engine.Options{Workers: 1})
	sources, err := loader.Discover([]string{dir}, nil)
	require.NoError(t, err)
	_, err = eng.Load(t.Context(), sources)
	require.NoError(t, err)
	require.Len(t, eng.Classes(), 1)

	w := New([]string{dir}, eng, nil, Options{})
	require.NoError(t, w.Prime())
	require.NoError(t, os.Remove(path))

	events, err := w.Poll()
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventDelete, events[0].Type)

	w.process(t.Context(), events)
	assert.Empty(t, eng.Classes())
	_, ok := eng.Key(analysis.Group(100))
	assert.True(t, ok, "published scopes outlive the file")
}
