package analysis

import (
	"maps"
	"slices"
)

// RuntimeInfo indexes the scope trees of every analyzed method. It is
// immutable; merging produces a new instance.
type RuntimeInfo struct {
	scopes  []*ScopeInfo
	order   []MethodId
	methods map[MethodId][]*ScopeInfo
	groups  map[GroupKey][]*ScopeInfo
}

// NewRuntimeInfo indexes method-root scopes. Roots of the same method keep
// their relative order.
func NewRuntimeInfo(scopes []*ScopeInfo) *RuntimeInfo {
	methods := make(map[MethodId][]*ScopeInfo)
	for _, s := range scopes {
		methods[s.MethodId] = append(methods[s.MethodId], s)
	}
	return fromMethods(methods)
}

func fromMethods(methods map[MethodId][]*ScopeInfo) *RuntimeInfo {
	info := &RuntimeInfo{
		methods: methods,
		order:   slices.SortedFunc(maps.Keys(methods), MethodId.Compare),
		groups:  make(map[GroupKey][]*ScopeInfo),
	}
	for _, id := range info.order {
		info.scopes = append(info.scopes, methods[id]...)
	}
	for _, root := range info.scopes {
		root.Walk(func(s *ScopeInfo) {
			info.groups[s.Group] = append(info.groups[s.Group], s)
		})
	}
	return info
}

// IsEmpty reports whether no method has been analyzed. A nil info is empty.
func (r *RuntimeInfo) IsEmpty() bool {
	return r == nil || len(r.scopes) == 0
}

// Scopes returns every method-root scope ordered by method identity
func (r *RuntimeInfo) Scopes() []*ScopeInfo {
	if r == nil {
		return nil
	}
	return slices.Clone(r.scopes)
}

// MethodIds returns the analyzed methods in order
func (r *RuntimeInfo) MethodIds() []MethodId {
	if r == nil {
		return nil
	}
	return slices.Clone(r.order)
}

// Method returns the root scopes recorded for a method
func (r *RuntimeInfo) Method(id MethodId) []*ScopeInfo {
	if r == nil {
		return nil
	}
	return slices.Clone(r.methods[id])
}

// Groups returns every scope at any depth carrying the key. NoGroup
// selects scopes without a key.
func (r *RuntimeInfo) Groups(key GroupKey) []*ScopeInfo {
	if r == nil {
		return nil
	}
	return slices.Clone(r.groups[key])
}

// GroupKeys returns the keys of the group index, NoGroup first
func (r *RuntimeInfo) GroupKeys() []GroupKey {
	if r == nil {
		return nil
	}
	return slices.SortedFunc(maps.Keys(r.groups), GroupKey.Compare)
}

// ClassIds returns the distinct classes with analyzed methods
func (r *RuntimeInfo) ClassIds() []string {
	if r == nil {
		return nil
	}
	var classes []string
	for _, id := range r.order {
		if n := len(classes); n == 0 || classes[n-1] != id.ClassId {
			classes = append(classes, id.ClassId)
		}
	}
	return classes
}

// MergeReplacing returns r with every method present in update replaced by
// update's entries
func (r *RuntimeInfo) MergeReplacing(update *RuntimeInfo) *RuntimeInfo {
	return Merge(r, update)
}

// Merge is right-biased by method identity: methods of b replace those of a.
// An empty operand on either side yields the other operand unchanged.
func Merge(a, b *RuntimeInfo) *RuntimeInfo {
	switch {
	case b.IsEmpty() && a == nil:
		return NewRuntimeInfo(nil)
	case b.IsEmpty():
		return a
	case a.IsEmpty():
		return b
	}

	methods := maps.Clone(a.methods)
	maps.Copy(methods, b.methods)
	return fromMethods(methods)
}
