package watch

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBatchDebouncer_CollectsUntilQuiet(t *testing.T) {
	var mu sync.Mutex
	var batches [][]Event
	emitted := make(chan struct{}, 4)

	d := NewBatchDebouncer(30*time.Millisecond, func(events []Event) {
		mu.Lock()
		batches = append(batches, events)
		mu.Unlock()
		emitted <- struct{}{}
	})

	d.Add(Event{Path: "a"})
	d.Add(Event{Path: "b"}, Event{Path: "c"})
	assert.Equal(t, 3, d.EventCount())

	select {
	case <-emitted:
	case <-time.After(5 * time.Second):
		t.Fatal("batch never emitted")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, batches, 1)
	assert.Len(t, batches[0], 3)
	assert.Zero(t, d.EventCount())
}

func TestBatchDebouncer_FlushAndCancel(t *testing.T) {
	var got []Event
	d := NewBatchDebouncer(time.Hour, func(events []Event) { got = events })

	d.Add()
	assert.Zero(t, d.EventCount(), "empty adds are ignored")

	d.Add(Event{Path: "a"})
	d.Flush()
	assert.Len(t, got, 1)

	got = nil
	d.Add(Event{Path: "b"})
	d.Cancel()
	d.Flush()
	assert.Nil(t, got)
}
