package registry

import (
	"slices"
	"sync/atomic"
)

// ClassRecord describes the last analyzed version of a class
type ClassRecord struct {
	Name      string
	Origin    string
	Digest    uint64
	Methods   int
	LoadOrder int // Order in which the class was first seen
	Revision  int // Number of distinct versions observed
}

type ClassRegistry struct {
	classes   *BaseRegistry[string, ClassRecord]
	loadOrder atomic.Int64
}

func NewClassRegistry() *ClassRegistry {
	return &ClassRegistry{
		classes: NewBaseRegistry[string, ClassRecord](),
	}
}

// Observe records a class version. It reports false, and records nothing,
// when the class is already known with the same digest.
func (cr *ClassRegistry) Observe(rec ClassRecord) bool {
	return cr.classes.Update(rec.Name, func(old ClassRecord, exists bool) (ClassRecord, bool) {
		if exists && old.Digest == rec.Digest {
			return old, false
		}
		if exists {
			rec.LoadOrder = old.LoadOrder
			rec.Revision = old.Revision + 1
		} else {
			rec.LoadOrder = int(cr.loadOrder.Add(1))
			rec.Revision = 1
		}
		return rec, true
	})
}

// Unchanged reports whether name is known with the given digest
func (cr *ClassRegistry) Unchanged(name string, digest uint64) bool {
	rec, exists := cr.classes.Get(name)
	return exists && rec.Digest == digest
}

func (cr *ClassRegistry) GetByName(name string) (ClassRecord, bool) {
	return cr.classes.Get(name)
}

// Forget drops a class so its next version is analyzed as new
func (cr *ClassRegistry) Forget(name string) bool {
	return cr.classes.Remove(name)
}

// Classes returns every record in load order
func (cr *ClassRegistry) Classes() []ClassRecord {
	all := cr.classes.GetAll()
	result := make([]ClassRecord, 0, len(all))
	for _, rec := range all {
		result = append(result, rec)
	}
	slices.SortFunc(result, func(a, b ClassRecord) int {
		return a.LoadOrder - b.LoadOrder
	})
	return result
}

func (cr *ClassRegistry) Count() int {
	return cr.classes.Count()
}
