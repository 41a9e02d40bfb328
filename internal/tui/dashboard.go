package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/NimbleMarkets/ntcharts/sparkline"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mabhi256/hotscope/internal/engine"
	"github.com/mabhi256/hotscope/utils"
)

const (
	historySize     = 120
	sparklineHeight = 4
)

type ChangeFilter int

const (
	FilterInvalidated ChangeFilter = iota
	FilterAll
)

func (f ChangeFilter) String() string {
	switch f {
	case FilterInvalidated:
		return "Invalidated"
	case FilterAll:
		return "All changes"
	default:
		return "Unknown"
	}
}

// ReportMsg delivers the outcome of one reload to the dashboard
type ReportMsg struct {
	Report *engine.Report
	Err    error
	At     time.Time
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// DashboardModel shows live reload activity
type DashboardModel struct {
	title   string
	dirs    []string
	started time.Time
	now     time.Time

	reloads  int
	failures int
	lastErr  error
	lastAt   time.Time
	last     *engine.Report
	history  []float64
	filter   ChangeFilter
	scroll   int

	help help.Model
	keys KeyMap

	width  int
	height int
}

func NewDashboard(title string, dirs []string) *DashboardModel {
	now := time.Now()
	return &DashboardModel{
		title:   title,
		dirs:    dirs,
		started: now,
		now:     now,
		help:    help.New(),
		keys:    DefaultKeyMap(),
	}
}

func (m *DashboardModel) Init() tea.Cmd {
	return tick()
}

func (m *DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tickMsg:
		m.now = time.Time(msg)
		return m, tick()

	case ReportMsg:
		m.record(msg)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Filter):
			utils.CycleEnumPtr(&m.filter, 1, FilterAll)
			m.scroll = 0
		case key.Matches(msg, m.keys.Up):
			m.scroll = max(m.scroll-1, 0)
		case key.Matches(msg, m.keys.Down):
			m.scroll = min(m.scroll+1, max(len(m.visibleChanges())-1, 0))
		case key.Matches(msg, m.keys.Top):
			m.scroll = 0
		}
	}
	return m, nil
}

func (m *DashboardModel) record(msg ReportMsg) {
	m.lastAt = msg.At
	if msg.Err != nil {
		m.failures++
		m.lastErr = msg.Err
		return
	}
	m.reloads++
	m.lastErr = nil
	m.last = msg.Report
	m.scroll = 0

	m.history = append(m.history, float64(len(msg.Report.Invalidated())))
	if len(m.history) > historySize {
		m.history = m.history[len(m.history)-historySize:]
	}
}

func (m *DashboardModel) visibleChanges() []engine.GroupChange {
	if m.last == nil {
		return nil
	}
	if m.filter == FilterInvalidated {
		return m.last.Invalidated()
	}
	return m.last.Changes
}

func (m *DashboardModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	header := m.renderHeader()
	stats := m.renderStats()
	chart := m.renderSparkline()
	helpView := m.help.View(m.keys)

	listHeight := m.height - lipgloss.Height(header) - lipgloss.Height(stats) -
		lipgloss.Height(chart) - lipgloss.Height(helpView) - 1
	list := lipgloss.NewStyle().Height(max(listHeight, 1)).Render(m.renderChanges(max(listHeight, 1)))

	return lipgloss.JoinVertical(lipgloss.Left, header, stats, chart, m.renderFilterBar(), list, helpView)
}

func (m *DashboardModel) renderHeader() string {
	uptime := m.now.Sub(m.started)
	status := GoodStyle.Render(fmt.Sprintf("● Watching • Uptime: %s", utils.FormatDuration(uptime)))
	if m.lastErr != nil {
		status = CriticalStyle.Render("● Reload failed")
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		HeaderStyle.Width(m.width).Render(m.title+" • "+status),
		MutedStyle.Render(strings.Repeat("─", m.width)),
	)
}

func (m *DashboardModel) renderStats() string {
	lines := []string{
		fmt.Sprintf("Directories: %s", strings.Join(m.dirs, ", ")),
		fmt.Sprintf("Reloads: %s  Failures: %s",
			InfoStyle.Render(fmt.Sprint(m.reloads)),
			failureStyle(m.failures).Render(fmt.Sprint(m.failures))),
	}
	if m.last != nil {
		lines = append(lines, fmt.Sprintf("Last reload: %d classes, %d skipped, %d invalidated in %s (%s)",
			len(m.last.Classes), m.last.Skipped, len(m.last.Invalidated()),
			utils.FormatDuration(m.last.Duration), m.lastAt.Format(time.TimeOnly)))
	}
	if m.lastErr != nil {
		lines = append(lines, ErrorStyle.Render(TruncateString(m.lastErr.Error(), max(m.width, 10))))
	}
	return strings.Join(lines, "\n")
}

func failureStyle(n int) lipgloss.Style {
	if n > 0 {
		return CriticalStyle
	}
	return MutedStyle
}

func (m *DashboardModel) renderSparkline() string {
	width := max(m.width-4, 10)
	title := MutedStyle.Render("Invalidated groups per reload")
	if len(m.history) == 0 {
		return BoxStyle.Width(width).Render(title + "\n" + MutedStyle.Render("waiting for changes..."))
	}
	sl := sparkline.New(width, sparklineHeight)
	sl.PushAll(m.history)
	sl.Draw()
	return BoxStyle.Width(width).Render(title + "\n" + sl.View())
}

func (m *DashboardModel) renderFilterBar() string {
	var tabs []string
	for f := FilterInvalidated; f <= FilterAll; f++ {
		if f == m.filter {
			tabs = append(tabs, TabActiveStyle.Render(f.String()))
		} else {
			tabs = append(tabs, TabInactiveStyle.Render(f.String()))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m *DashboardModel) renderChanges(height int) string {
	changes := m.visibleChanges()
	if len(changes) == 0 {
		return MutedStyle.Render("No group changes")
	}

	start := min(m.scroll, len(changes)-1)
	end := min(start+height, len(changes))
	lines := make([]string, 0, end-start)
	for _, c := range changes[start:end] {
		lines = append(lines, ChangeStyle(c.Kind.String()).Render(c.String()))
	}
	return strings.Join(lines, "\n")
}

// RunDashboard runs the dashboard while run drives reloads. Reports passed
// to notify are forwarded to the UI; quitting the UI cancels run's context.
func RunDashboard(ctx context.Context, model *DashboardModel, run func(ctx context.Context, notify func(*engine.Report, error)) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	notify := func(report *engine.Report, err error) {
		program.Send(ReportMsg{Report: report, Err: err, At: time.Now()})
	}

	var wg sync.WaitGroup
	var runErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		runErr = run(ctx, notify)
		if runErr != nil {
			program.Quit()
		}
	}()

	_, err := program.Run()
	interrupted := ctx.Err() != nil
	cancel()
	wg.Wait()

	if runErr != nil {
		return runErr
	}
	if err != nil && !interrupted {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
