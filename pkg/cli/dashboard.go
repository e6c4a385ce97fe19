package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/harrisonrobin/taskctx/pkg/app"
	"github.com/harrisonrobin/taskctx/pkg/model"
	"github.com/harrisonrobin/taskctx/pkg/store"
	"github.com/spf13/cobra"
)

// dashboardModel lists open tasks next to the statistics. Selection and the
// capture form are kept in the store so the rest of the app sees them.
type dashboardModel struct {
	app    *app.App
	ctx    context.Context
	width  int
	height int

	tasks  []model.Task
	report statsReport
	cursor int

	note    []rune
	flash   string
	loading bool
	err     error
}

// dashboardLoadedMsg carries a fresh snapshot back to the model.
type dashboardLoadedMsg struct {
	tasks  []model.Task
	report statsReport
}

func newDashboardModel(ctx context.Context, a *app.App) dashboardModel {
	return dashboardModel{app: a, ctx: ctx, loading: true}
}

func (m dashboardModel) Init() tea.Cmd {
	return m.load
}

func (m dashboardModel) load() tea.Msg {
	open := append(m.app.Store.ByStatus(model.StatusActive), m.app.Store.ByStatus(model.StatusPaused)...)
	return dashboardLoadedMsg{tasks: open, report: buildStatsReport(m.app)}
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.app.Store.ShowContextCapture() {
			return m.updateCapture(msg)
		}
		return m.updateBrowse(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case dashboardLoadedMsg:
		m.loading = false
		m.tasks = msg.tasks
		m.report = msg.report
		if m.cursor >= len(m.tasks) {
			m.cursor = max(len(m.tasks)-1, 0)
		}
		m.syncSelection()
		return m, nil
	}
	return m, nil
}

func (m dashboardModel) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		m.syncSelection()
	case "down", "j":
		if m.cursor < len(m.tasks)-1 {
			m.cursor++
		}
		m.syncSelection()
	case "r":
		m.loading = true
		return m, m.load
	case "p":
		if t, ok := m.selected(); ok && t.Status == model.StatusActive {
			m.note = nil
			m.err = nil
			m.app.Store.SetShowContextCapture(true)
		}
	case "s", "enter":
		if t, ok := m.selected(); ok && t.Status == model.StatusPaused {
			m.err = m.app.Store.Resume(t.ID)
			m.flash = "Resumed " + t.Title
			return m, m.load
		}
	case "c":
		if t, ok := m.selected(); ok {
			m.err = m.app.Store.Complete(m.ctx, t.ID)
			m.flash = "Completed " + t.Title
			return m, m.load
		}
	}
	return m, nil
}

func (m dashboardModel) updateCapture(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.app.Store.SetShowContextCapture(false)
		m.note = nil
	case tea.KeyEnter:
		t, ok := m.selected()
		if !ok {
			m.app.Store.SetShowContextCapture(false)
			return m, nil
		}
		if err := m.app.Store.Pause(m.ctx, t.ID, store.ContextInput{Note: string(m.note)}, nil); err != nil {
			m.err = err
			return m, nil
		}
		m.note = nil
		m.flash = "Paused " + t.Title
		return m, m.load
	case tea.KeyBackspace:
		if len(m.note) > 0 {
			m.note = m.note[:len(m.note)-1]
		}
	case tea.KeySpace:
		m.note = append(m.note, ' ')
	case tea.KeyRunes:
		m.note = append(m.note, msg.Runes...)
	}
	return m, nil
}

func (m dashboardModel) selected() (model.Task, bool) {
	if m.cursor < 0 || m.cursor >= len(m.tasks) {
		return model.Task{}, false
	}
	return m.tasks[m.cursor], true
}

func (m dashboardModel) syncSelection() {
	if t, ok := m.selected(); ok {
		m.app.Store.SelectTask(t.ID)
		return
	}
	m.app.Store.SelectTask("")
}

func (m dashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render(" taskctx ")
	help := mutedStyle.Render("↑/↓: select | p: pause | s: resume | c: complete | r: refresh | q: quit")
	if m.app.Store.ShowContextCapture() {
		help = mutedStyle.Render("enter: save and pause | esc: cancel")
	}
	if m.loading {
		return fmt.Sprintf("%s\n\n  Loading data...\n\n%s", title, help)
	}

	tasksPanel := panelStyle.Render(m.renderTasks())
	statsPanel := panelStyle.Render(renderSummary(m.report.Dashboard) + "\n\n" + renderWeekly(m.report.WeeklyProgress))

	var body string
	if m.width > 100 {
		body = lipgloss.JoinHorizontal(lipgloss.Top, tasksPanel, statsPanel)
	} else {
		body = lipgloss.JoinVertical(lipgloss.Left, tasksPanel, statsPanel)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n%s\n", title, body)
	if m.app.Store.ShowContextCapture() {
		if t, ok := m.selected(); ok {
			fmt.Fprintf(&b, "\nWhere are you leaving %s?\n> %s█\n", t.Title, string(m.note))
		}
	}
	if m.err != nil {
		fmt.Fprintf(&b, "\n%s\n", errorStyle.Render("Error: "+m.err.Error()))
	} else if m.flash != "" {
		fmt.Fprintf(&b, "\n%s\n", m.flash)
	}
	fmt.Fprintf(&b, "\n%s", help)
	return b.String()
}

func (m dashboardModel) renderTasks() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Open tasks"))
	b.WriteString("\n")
	if len(m.tasks) == 0 {
		b.WriteString("No open tasks.")
		return b.String()
	}
	now := m.app.Now()
	for i, t := range m.tasks {
		cursor := "  "
		name := styleForStatus(t.Status).Render(t.Title)
		if i == m.cursor {
			cursor = "> "
			name = selectedStyle.Render(t.Title)
		}
		fmt.Fprintf(&b, "%s%s %s\n", cursor, name, mutedStyle.Render(string(t.Status)+", "+timeAgo(t.LastModified, now)))
		if c := t.LatestContext(); c != nil && i == m.cursor {
			fmt.Fprintf(&b, "    %s\n", c.Note)
			if c.NextAction != "" {
				fmt.Fprintf(&b, "    Next: %s\n", c.NextAction)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func newDashboardCmd(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Interactive dashboard of open tasks and statistics",
		Long: `Launch an interactive terminal dashboard listing open tasks next to your
productivity statistics. Select a task with the arrow keys, then pause it
with a note, resume it or complete it in place.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := tea.NewProgram(newDashboardModel(cmd.Context(), a), tea.WithAltScreen())
			_, err := p.Run()
			a.Store.SetShowContextCapture(false)
			a.Store.Wait()
			return err
		},
	}
}
