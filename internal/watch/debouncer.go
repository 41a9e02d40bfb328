package watch

import (
	"sync"
	"time"
)

// BatchDebouncer collects events and emits them as a batch once no new
// event has arrived for the configured delay
type BatchDebouncer struct {
	delay  time.Duration
	timer  *time.Timer
	mu     sync.Mutex
	events []Event
	emit   func([]Event)
}

func NewBatchDebouncer(delay time.Duration, emit func([]Event)) *BatchDebouncer {
	return &BatchDebouncer{
		delay: delay,
		emit:  emit,
	}
}

// Add adds events to the pending batch and restarts the quiet period
func (b *BatchDebouncer) Add(events ...Event) {
	if len(events) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events = append(b.events, events...)
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.delay, b.flush)
}

func (b *BatchDebouncer) flush() {
	b.mu.Lock()
	events := b.events
	b.events = nil
	b.timer = nil
	b.mu.Unlock()

	if len(events) > 0 && b.emit != nil {
		b.emit(events)
	}
}

// Cancel drops any pending batch
func (b *BatchDebouncer) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.events = nil
}

// Flush emits any pending batch immediately
func (b *BatchDebouncer) Flush() {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.mu.Unlock()

	b.flush()
}

func (b *BatchDebouncer) EventCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}
