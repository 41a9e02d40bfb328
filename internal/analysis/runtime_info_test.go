package analysis_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mabhi256/hotscope/internal/analysis"
	"github.com/mabhi256/hotscope/internal/classfile"
	"github.com/mabhi256/hotscope/internal/testutil"
)

func scope(class, name string, group analysis.GroupKey, hash uint64, children ...*analysis.ScopeInfo) *analysis.ScopeInfo {
	return &analysis.ScopeInfo{
		MethodId: analysis.MethodId{ClassId: class, Name: name, Descriptor: "()V"},
		Type:     analysis.ScopeMethod,
		Group:    group,
		Hash:     hash,
		Children: children,
	}
}

func TestNewRuntimeInfo_Indexes(t *testing.T) {
	child := &analysis.ScopeInfo{Type: analysis.ScopeReplaceGroup, Group: analysis.Group(2), ParentGroup: analysis.Group(1)}
	a := scope("b/B", "m", analysis.Group(1), 10, child)
	b := scope("a/A", "m", analysis.NoGroup, 20)
	a2 := scope("b/B", "m", analysis.Group(1), 11)

	info := analysis.NewRuntimeInfo([]*analysis.ScopeInfo{a, b, a2})

	assert.Equal(t, []*analysis.ScopeInfo{b, a, a2}, info.Scopes())
	assert.Equal(t, []*analysis.ScopeInfo{a, a2}, info.Method(a.MethodId))
	assert.Equal(t, []*analysis.ScopeInfo{a, a2}, info.Groups(analysis.Group(1)))
	assert.Equal(t, []*analysis.ScopeInfo{child}, info.Groups(analysis.Group(2)))
	assert.Equal(t, []*analysis.ScopeInfo{b}, info.Groups(analysis.NoGroup))
	assert.Equal(t, []string{"a/A", "b/B"}, info.ClassIds())
	assert.Len(t, info.MethodIds(), 2)
}

func TestMerge_RightBiased(t *testing.T) {
	shared := scope("a/A", "shared", analysis.Group(1), 1)
	onlyLeft := scope("a/A", "left", analysis.Group(2), 2)
	replacement := scope("a/A", "shared", analysis.Group(3), 3)
	onlyRight := scope("a/A", "right", analysis.Group(4), 4)

	left := analysis.NewRuntimeInfo([]*analysis.ScopeInfo{shared, onlyLeft})
	right := analysis.NewRuntimeInfo([]*analysis.ScopeInfo{replacement, onlyRight})
	merged := analysis.Merge(left, right)

	assert.ElementsMatch(t, []*analysis.ScopeInfo{onlyLeft, replacement, onlyRight}, merged.Scopes())
	assert.Equal(t, []*analysis.ScopeInfo{replacement}, merged.Method(shared.MethodId))
	assert.Empty(t, merged.Groups(analysis.Group(1)), "replaced scopes leave the group index")
	assert.Equal(t, []*analysis.ScopeInfo{replacement}, merged.Groups(analysis.Group(3)))

	// operands are untouched
	assert.Equal(t, []*analysis.ScopeInfo{shared}, left.Method(shared.MethodId))
	assert.Equal(t, merged, left.MergeReplacing(right))
}

func TestMerge_Identity(t *testing.T) {
	info := analysis.NewRuntimeInfo([]*analysis.ScopeInfo{scope("a/A", "m", analysis.Group(1), 1)})
	empty := analysis.NewRuntimeInfo(nil)

	assert.Same(t, info, analysis.Merge(info, nil))
	assert.Same(t, info, analysis.Merge(nil, info))
	assert.Same(t, info, analysis.Merge(info, empty))
	assert.Same(t, info, analysis.Merge(empty, info))

	both := analysis.Merge(nil, nil)
	require.NotNil(t, both)
	assert.True(t, both.IsEmpty())
}

func TestMerge_Idempotent(t *testing.T) {
	a := analysis.NewRuntimeInfo([]*analysis.ScopeInfo{
		scope("a/A", "x", analysis.Group(1), 1),
		scope("a/A", "y", analysis.Group(2), 2),
	})
	overlapping := analysis.NewRuntimeInfo([]*analysis.ScopeInfo{
		scope("a/A", "y", analysis.Group(5), 5),
		scope("b/B", "z", analysis.Group(6), 6),
	})
	disjoint := analysis.NewRuntimeInfo([]*analysis.ScopeInfo{
		scope("c/C", "w", analysis.Group(7), 7),
	})

	for name, b := range map[string]*analysis.RuntimeInfo{"overlapping": overlapping, "disjoint": disjoint} {
		t.Run(name, func(t *testing.T) {
			ab := analysis.Merge(a, b)
			assert.Equal(t, ab, analysis.Merge(a, ab))
		})
	}
}

func TestMerge_ReanalysisSupersedes(t *testing.T) {
	analyzer := analysis.NewAnalyzer(analysis.DefaultConfig(), nil)
	build := func(v int32) *analysis.RuntimeInfo {
		cb := testutil.NewClass("com/example/FooKt")
		cb.Composable("Foo").StartRestartGroup(100).Int(v).Op(classfile.POP).EndRestartGroup().Return()
		info, err := analyzer.AnalyzeBytes(cb.Bytes())
		require.NoError(t, err)
		return info
	}

	v1, v2 := build(1), build(2)
	merged := analysis.Merge(v1, v2)
	assert.Equal(t, v2.Groups(analysis.Group(100)), merged.Groups(analysis.Group(100)))
	assert.Len(t, merged.Scopes(), 1)
}

func TestScopeInfo_JSON(t *testing.T) {
	s := scope("a/A", "m", analysis.NoGroup, 7,
		&analysis.ScopeInfo{Type: analysis.ScopeRestartGroup, Group: analysis.Group(-3)})
	data, err := json.Marshal(s)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"method": {"class": "a/A", "name": "m", "descriptor": "()V"},
		"type": "Method",
		"group": null,
		"parentGroup": null,
		"hash": 7,
		"children": [{
			"method": {"class": "", "name": "", "descriptor": ""},
			"type": "RestartGroup",
			"group": -3,
			"parentGroup": null,
			"hash": 0
		}]
	}`, string(data))
}

func TestParseGroupKey(t *testing.T) {
	tests := []struct {
		in      string
		want    analysis.GroupKey
		wantErr bool
	}{
		{"remember", analysis.RememberGroup, false},
		{"1849434622", analysis.RememberGroup, false},
		{"-42", analysis.Group(-42), false},
		{"x", analysis.NoGroup, true},
		{"99999999999", analysis.NoGroup, true},
	}
	for _, tt := range tests {
		got, err := analysis.ParseGroupKey(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}
