package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mabhi256/hotscope/internal/analysis"
	"github.com/mabhi256/hotscope/internal/engine"
)

func sampleInfo() *analysis.RuntimeInfo {
	var scopes []*analysis.ScopeInfo
	for i := range 40 {
		scopes = append(scopes, &analysis.ScopeInfo{
			MethodId: analysis.MethodId{ClassId: "com/example/ScreenKt", Name: "m" + string(rune('a'+i%26)) + strings.Repeat("x", i/26), Descriptor: "()V"},
			Type:     analysis.ScopeMethod,
			Group:    analysis.Group(int32(i)),
			Hash:     uint64(i),
		})
	}
	return analysis.NewRuntimeInfo(scopes)
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestInspectModel(t *testing.T) {
	m := NewInspectModel("hotscope inspect", sampleInfo())
	assert.Empty(t, m.View(), "nothing renders before the first resize")

	m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	view := m.View()
	assert.Contains(t, view, "1 classes • 40 methods • 40 groups")
	assert.Contains(t, view, "class com/example/ScreenKt")

	m.Update(keyMsg("G"))
	assert.True(t, m.viewport.AtBottom())
	m.Update(keyMsg("g"))
	assert.True(t, m.viewport.AtTop())

	m.Update(keyMsg("?"))
	assert.True(t, m.help.ShowAll)

	_, cmd := m.Update(keyMsg("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func report(changes ...engine.GroupChange) *engine.Report {
	return &engine.Report{Classes: []string{"com/example/ScreenKt"}, Changes: changes, Duration: 3 * time.Millisecond}
}

func TestDashboardModel_Reports(t *testing.T) {
	m := NewDashboard("hotscope watch", []string{"build/classes"})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	assert.Contains(t, m.View(), "waiting for changes")

	m.Update(ReportMsg{Report: report(
		engine.GroupChange{Group: analysis.Group(1), Kind: engine.ChangeInvalidated, OldKey: 1, NewKey: 2},
		engine.GroupChange{Group: analysis.Group(2), Kind: engine.ChangeAdded, NewKey: 3},
	), At: time.Now()})
	m.Update(ReportMsg{Err: errors.New("failed to parse Broken.class"), At: time.Now()})

	assert.Equal(t, 1, m.reloads)
	assert.Equal(t, 1, m.failures)
	assert.Equal(t, []float64{1}, m.history)

	view := m.View()
	assert.Contains(t, view, "Reload failed")
	assert.Contains(t, view, "failed to parse Broken.class")
	assert.Contains(t, view, "invalidated 1")
	assert.NotContains(t, view, "added")

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, FilterAll, m.filter)
	assert.Contains(t, m.View(), "added")

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, FilterInvalidated, m.filter, "filters cycle")
}

func TestDashboardModel_HistoryIsBounded(t *testing.T) {
	m := NewDashboard("hotscope watch", nil)
	for range historySize + 10 {
		m.Update(ReportMsg{Report: report()})
	}
	assert.Len(t, m.history, historySize)
	assert.Equal(t, historySize+10, m.reloads)
}

func TestDashboardModel_Tick(t *testing.T) {
	m := NewDashboard("hotscope watch", nil)
	later := m.started.Add(90 * time.Second)
	_, cmd := m.Update(tickMsg(later))
	assert.NotNil(t, cmd)
	assert.Equal(t, later, m.now)
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 10))
	assert.Equal(t, "abcdefg...", TruncateString("abcdefghijklmnop", 10))
	assert.Equal(t, "ab", TruncateString("abcdef", 2))
}
