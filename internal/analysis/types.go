package analysis

import (
	"cmp"
	"encoding/json"
	"fmt"
	"strconv"
)

// MethodId identifies a method by declaring class, name and descriptor
type MethodId struct {
	ClassId    string `json:"class"`
	Name       string `json:"name"`
	Descriptor string `json:"descriptor"`
}

func (m MethodId) String() string {
	return m.ClassId + "." + m.Name + m.Descriptor
}

// CompareClassId orders class identifiers
func CompareClassId(a, b string) int {
	return cmp.Compare(a, b)
}

// Compare orders by class, then name, then descriptor
func (m MethodId) Compare(o MethodId) int {
	if c := CompareClassId(m.ClassId, o.ClassId); c != 0 {
		return c
	}
	if c := cmp.Compare(m.Name, o.Name); c != 0 {
		return c
	}
	return cmp.Compare(m.Descriptor, o.Descriptor)
}

// RememberKey is the group key the compose compiler assigns to remember blocks
const RememberKey int32 = 1849434622

// GroupKey is a compiler-assigned group key, or no key at all
type GroupKey struct {
	Key   int32
	Valid bool
}

var (
	NoGroup       = GroupKey{}
	RememberGroup = Group(RememberKey)
)

func Group(key int32) GroupKey {
	return GroupKey{Key: key, Valid: true}
}

func (g GroupKey) IsRemember() bool {
	return g == RememberGroup
}

func (g GroupKey) String() string {
	if !g.Valid {
		return "none"
	}
	return strconv.FormatInt(int64(g.Key), 10)
}

// Compare orders keys numerically with NoGroup first
func (g GroupKey) Compare(o GroupKey) int {
	if g.Valid != o.Valid {
		if !g.Valid {
			return -1
		}
		return 1
	}
	return cmp.Compare(g.Key, o.Key)
}

func (g GroupKey) MarshalJSON() ([]byte, error) {
	if !g.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(g.Key)
}

func (g *GroupKey) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*g = NoGroup
		return nil
	}
	var k int32
	if err := json.Unmarshal(data, &k); err != nil {
		return err
	}
	*g = Group(k)
	return nil
}

// ParseGroupKey accepts a decimal key or the alias "remember"
func ParseGroupKey(s string) (GroupKey, error) {
	if s == "remember" {
		return RememberGroup, nil
	}
	k, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return NoGroup, fmt.Errorf("invalid group key %q: %w", s, err)
	}
	return Group(int32(k)), nil
}

type ScopeType int

const (
	ScopeMethod ScopeType = iota
	ScopeRestartGroup
	ScopeReplaceGroup
	ScopeSourceInformationMarker
)

func (t ScopeType) String() string {
	switch t {
	case ScopeMethod:
		return "Method"
	case ScopeRestartGroup:
		return "RestartGroup"
	case ScopeReplaceGroup:
		return "ReplaceGroup"
	case ScopeSourceInformationMarker:
		return "SourceInformationMarker"
	default:
		return fmt.Sprintf("ScopeType(%d)", int(t))
	}
}

func (t ScopeType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ScopeInfo is one node of a method's scope tree. Trees are built once by
// the analyzer and never modified afterwards.
type ScopeInfo struct {
	MethodId     MethodId     `json:"method"`
	Type         ScopeType    `json:"type"`
	Group        GroupKey     `json:"group"`
	ParentGroup  GroupKey     `json:"parentGroup"`
	Hash         uint64       `json:"hash"`
	Children     []*ScopeInfo `json:"children,omitempty"`
	Dependencies []MethodId   `json:"dependencies,omitempty"`
}

// Walk visits the scope and its descendants in pre-order
func (s *ScopeInfo) Walk(fn func(*ScopeInfo)) {
	fn(s)
	for _, c := range s.Children {
		c.Walk(fn)
	}
}

// InvalidationKey summarises the bytecode a group's recomposition depends on
type InvalidationKey uint64

func (k InvalidationKey) String() string {
	return fmt.Sprintf("%016x", uint64(k))
}

func (k InvalidationKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}
