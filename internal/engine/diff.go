package engine

import (
	"fmt"

	"github.com/mabhi256/hotscope/internal/analysis"
)

type ChangeKind int

const (
	ChangeUnchanged ChangeKind = iota
	ChangeAdded
	ChangeRemoved
	ChangeInvalidated
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeUnchanged:
		return "unchanged"
	case ChangeAdded:
		return "added"
	case ChangeRemoved:
		return "removed"
	case ChangeInvalidated:
		return "invalidated"
	default:
		return fmt.Sprintf("ChangeKind(%d)", int(k))
	}
}

func (k ChangeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// GroupEntry is one group's invalidation key within an aggregate
type GroupEntry struct {
	Group  analysis.GroupKey        `json:"group"`
	Key    analysis.InvalidationKey `json:"key"`
	Scopes int                      `json:"scopes"`
}

// Groups resolves every group of info, sorted by group key. The no-group
// bucket is skipped.
func Groups(info *analysis.RuntimeInfo) []GroupEntry {
	keys := info.GroupKeys()
	entries := make([]GroupEntry, 0, len(keys))
	for _, g := range keys {
		if !g.Valid {
			continue
		}
		key, ok := analysis.ResolveInvalidationKey(info, g)
		if !ok {
			continue
		}
		entries = append(entries, GroupEntry{Group: g, Key: key, Scopes: len(info.Groups(g))})
	}
	return entries
}

// GroupChange describes how a group's invalidation key moved between two
// aggregates
type GroupChange struct {
	Group  analysis.GroupKey        `json:"group"`
	Kind   ChangeKind               `json:"kind"`
	OldKey analysis.InvalidationKey `json:"oldKey"`
	NewKey analysis.InvalidationKey `json:"newKey"`
}

func (c GroupChange) String() string {
	switch c.Kind {
	case ChangeAdded:
		return fmt.Sprintf("%-11s %s -> %s", c.Kind, c.Group, c.NewKey)
	case ChangeRemoved:
		return fmt.Sprintf("%-11s %s %s", c.Kind, c.Group, c.OldKey)
	default:
		return fmt.Sprintf("%-11s %s %s -> %s", c.Kind, c.Group, c.OldKey, c.NewKey)
	}
}

// Diff classifies every group present in either aggregate, sorted by group key
func Diff(old, updated *analysis.RuntimeInfo) []GroupChange {
	before := Groups(old)
	after := Groups(updated)

	changes := make([]GroupChange, 0, max(len(before), len(after)))
	i, j := 0, 0
	for i < len(before) || j < len(after) {
		var cmp int
		switch {
		case i == len(before):
			cmp = 1
		case j == len(after):
			cmp = -1
		default:
			cmp = before[i].Group.Compare(after[j].Group)
		}

		switch {
		case cmp < 0:
			changes = append(changes, GroupChange{Group: before[i].Group, Kind: ChangeRemoved, OldKey: before[i].Key})
			i++
		case cmp > 0:
			changes = append(changes, GroupChange{Group: after[j].Group, Kind: ChangeAdded, NewKey: after[j].Key})
			j++
		default:
			kind := ChangeUnchanged
			if before[i].Key != after[j].Key {
				kind = ChangeInvalidated
			}
			changes = append(changes, GroupChange{Group: after[j].Group, Kind: kind, OldKey: before[i].Key, NewKey: after[j].Key})
			i++
			j++
		}
	}
	return changes
}
