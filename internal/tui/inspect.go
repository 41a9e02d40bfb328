package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mabhi256/hotscope/internal/analysis"
)

// InspectModel is a scrollable view over a scope tree dump
type InspectModel struct {
	title   string
	summary string
	content string

	viewport viewport.Model
	help     help.Model
	keys     inspectKeys
	ready    bool

	width  int
	height int
}

func NewInspectModel(title string, info *analysis.RuntimeInfo) *InspectModel {
	groups := 0
	for _, g := range info.GroupKeys() {
		if g.Valid {
			groups++
		}
	}
	return &InspectModel{
		title: title,
		summary: fmt.Sprintf("%d classes • %d methods • %d groups",
			len(info.ClassIds()), len(info.MethodIds()), groups),
		content: strings.TrimRight(analysis.Render(info), "\n"),
		help:    help.New(),
		keys:    inspectKeys{DefaultKeyMap()},
	}
}

func (m *InspectModel) Init() tea.Cmd {
	return nil
}

func (m *InspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.resize()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			m.resize()
			return m, nil
		case key.Matches(msg, m.keys.Top):
			m.viewport.GotoTop()
			return m, nil
		case key.Matches(msg, m.keys.Bottom):
			m.viewport.GotoBottom()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *InspectModel) resize() {
	height := m.height - lipgloss.Height(m.renderHeader()) - lipgloss.Height(m.help.View(m.keys))
	height = max(height, 1)
	if !m.ready {
		m.viewport = viewport.New(m.width, height)
		m.viewport.SetContent(m.content)
		m.ready = true
		return
	}
	m.viewport.Width = m.width
	m.viewport.Height = height
}

func (m *InspectModel) renderHeader() string {
	line := m.title + " • " + m.summary
	if m.ready {
		line += MutedStyle.Render(fmt.Sprintf(" • %3.0f%%", m.viewport.ScrollPercent()*100))
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		HeaderStyle.Width(max(m.width, 1)).Render(line),
		MutedStyle.Render(strings.Repeat("─", max(m.width, 0))),
	)
}

func (m *InspectModel) View() string {
	if !m.ready {
		return ""
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.help.View(m.keys),
	)
}

// RunInspect opens the interactive tree browser
func RunInspect(title string, info *analysis.RuntimeInfo) error {
	program := tea.NewProgram(
		NewInspectModel(title, info),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
