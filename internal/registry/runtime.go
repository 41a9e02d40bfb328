package registry

import (
	"sync/atomic"

	"github.com/mabhi256/hotscope/internal/analysis"
)

// RuntimeRegistry publishes the authoritative merged RuntimeInfo. Readers
// never block; writers fold deltas in a compare-and-swap loop.
type RuntimeRegistry struct {
	current  atomic.Pointer[analysis.RuntimeInfo]
	revision atomic.Uint64
}

func NewRuntimeRegistry() *RuntimeRegistry {
	r := &RuntimeRegistry{}
	r.current.Store(analysis.NewRuntimeInfo(nil))
	return r
}

// Current returns the latest aggregate; never nil
func (r *RuntimeRegistry) Current() *analysis.RuntimeInfo {
	return r.current.Load()
}

// Update merges delta over the current aggregate and returns the aggregate
// before and after the merge
func (r *RuntimeRegistry) Update(delta *analysis.RuntimeInfo) (old, updated *analysis.RuntimeInfo) {
	for {
		old = r.current.Load()
		updated = analysis.Merge(old, delta)
		if r.current.CompareAndSwap(old, updated) {
			if updated != old {
				r.revision.Add(1)
			}
			return old, updated
		}
	}
}

// Revision counts the updates that changed the aggregate
func (r *RuntimeRegistry) Revision() uint64 {
	return r.revision.Load()
}
