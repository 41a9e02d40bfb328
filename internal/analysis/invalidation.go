package analysis

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// ResolveInvalidationKey combines the hashes of every scope registered for
// group with everything they transitively depend on: static-call and
// lambda targets resolved through the method index, and direct remember
// children. The remember group always resolves to 0; unknown groups
// resolve to false.
func ResolveInvalidationKey(info *RuntimeInfo, group GroupKey) (InvalidationKey, bool) {
	if group.IsRemember() {
		return 0, true
	}
	direct := info.Groups(group)
	if len(direct) == 0 {
		return 0, false
	}

	d := xxhash.New()
	var buf [8]byte
	for _, s := range relevantClosure(info, direct) {
		binary.BigEndian.PutUint64(buf[:], s.Hash)
		_, _ = d.Write(buf[:])
	}
	return InvalidationKey(d.Sum64()), true
}

// relevantClosure expands roots breadth-first to a fixed point and returns
// the scopes in discovery order
func relevantClosure(info *RuntimeInfo, roots []*ScopeInfo) []*ScopeInfo {
	seen := make(map[*ScopeInfo]struct{}, len(roots))
	closure := make([]*ScopeInfo, 0, len(roots))
	visit := func(s *ScopeInfo) {
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		closure = append(closure, s)
	}

	for _, r := range roots {
		visit(r)
	}
	for i := 0; i < len(closure); i++ {
		s := closure[i]
		for _, dep := range s.Dependencies {
			for _, target := range info.methods[dep] {
				visit(target)
			}
		}
		for _, c := range s.Children {
			if c.Group.IsRemember() {
				visit(c)
			}
		}
	}
	return closure
}
