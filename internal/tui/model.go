// Package tui is the interactive service table. The Bubble Tea event loop is
// the only goroutine that touches the row table; provider calls run as
// commands or scheduler tasks and report back as messages.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/BrainStation-23/serman/internal/logging"
	"github.com/BrainStation-23/serman/internal/rows"
	"github.com/BrainStation-23/serman/internal/scheduler"
	"github.com/BrainStation-23/serman/internal/service"
)

// Model is the Bubble Tea model for the service table.
type Model struct {
	// UI components
	table  table.Model
	filter textinput.Model
	help   help.Model
	keys   keyMap

	// State
	rows      *rows.Table
	visible   []rows.Row
	filtering bool
	loading   bool
	status    string
	err       error
	width     int
	height    int

	// Dependencies
	ctx      context.Context
	provider service.Provider
	sched    *scheduler.Scheduler
}

// snapshotMsg carries a full enumeration.
type snapshotMsg struct {
	snap service.Snapshot
	err  error
}

// resultMsg carries one scheduler result.
type resultMsg scheduler.Result

// New creates the model. The initial snapshot is taken by Init.
func New(ctx context.Context, p service.Provider, s *scheduler.Scheduler) Model {
	filter := textinput.New()
	filter.Prompt = "/ "
	filter.Placeholder = "filter services"
	filter.CharLimit = 64

	t := table.New(
		table.WithColumns(tableColumns()),
		table.WithFocused(true),
		table.WithHeight(15),
	)
	t.SetStyles(tableStyles())

	return Model{
		table:    t,
		filter:   filter,
		help:     help.New(),
		keys:     defaultKeyMap(),
		rows:     rows.New(nil),
		loading:  true,
		width:    80,
		height:   24,
		ctx:      logging.WithComponent(ctx, "tui"),
		provider: p,
		sched:    s,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadSnapshot, m.waitForResult)
}

func (m Model) loadSnapshot() tea.Msg {
	snap, err := m.provider.Snapshot(m.ctx)
	return snapshotMsg{snap: snap, err: err}
}

// waitForResult blocks on the scheduler channel off the event loop and
// hands the next result back as a message.
func (m Model) waitForResult() tea.Msg {
	select {
	case r := <-m.sched.Results():
		return resultMsg(r)
	case <-m.ctx.Done():
		return nil
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		if h := msg.Height - 8; h > 3 {
			m.table.SetHeight(h)
		}
		return m, nil

	case snapshotMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.rows.Reset(msg.snap)
		m.status = fmt.Sprintf("%d services", m.rows.Len())
		m.syncTable()
		return m, nil

	case resultMsg:
		m.applyResult(scheduler.Result(msg))
		return m, m.waitForResult

	case tea.KeyMsg:
		if m.filtering {
			return m.handleFilterKey(msg)
		}
		return m.handleKeyMsg(msg)
	}

	return m, nil
}

func (m *Model) applyResult(r scheduler.Result) {
	if !m.rows.Apply(r) {
		return
	}
	m.syncTable()

	if r.Verb == scheduler.VerbRefresh {
		return
	}
	switch {
	case r.Err != nil:
		m.status = fmt.Sprintf("%s %s: %v", r.Verb, r.Service, r.Err)
	case r.Status == "":
		m.status = fmt.Sprintf("%s %s: no status reported", r.Verb, r.Service)
	default:
		m.status = fmt.Sprintf("%s %s: %s", r.Verb, r.Service, r.Status)
	}
}

func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filter.SetValue("")
		fallthrough
	case tea.KeyEnter:
		m.filtering = false
		m.filter.Blur()
		m.table.Focus()
		m.syncTable()
		return m, nil
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.syncTable()
	return m, cmd
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Mark):
		if row, ok := m.cursorRow(); ok {
			m.rows.ToggleMark(row.Name)
			m.syncTable()
		}
		return m, nil

	case key.Matches(msg, m.keys.Start):
		return m.mutate(scheduler.VerbStart)

	case key.Matches(msg, m.keys.Stop):
		return m.mutate(scheduler.VerbStop)

	case key.Matches(msg, m.keys.Restart):
		return m.mutate(scheduler.VerbRestart)

	case key.Matches(msg, m.keys.Refresh):
		m.sched.Refresh(m.ctx, m.rows.Names()...)
		m.status = "refreshing…"
		return m, nil

	case key.Matches(msg, m.keys.Reload):
		if m.anyBusy() {
			m.status = "operations in flight, re-enumerate later"
			return m, nil
		}
		m.loading = true
		return m, m.loadSnapshot

	case key.Matches(msg, m.keys.Filter):
		m.filtering = true
		m.table.Blur()
		return m, m.filter.Focus()

	case key.Matches(msg, m.keys.Clear):
		m.rows.ClearMarks()
		m.filter.SetValue("")
		m.syncTable()
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// mutate submits verb for the marked rows, or the cursor row when nothing is
// marked. Busy rows are skipped; each accepted row is disabled before its
// task is spawned.
func (m Model) mutate(verb scheduler.Verb) (tea.Model, tea.Cmd) {
	targets := m.rows.Marked()
	if len(targets) == 0 {
		if row, ok := m.cursorRow(); ok {
			targets = []string{row.Name}
		}
	}

	var accepted []string
	for _, name := range targets {
		if m.rows.Disable(name) {
			accepted = append(accepted, name)
		}
	}
	if len(accepted) == 0 {
		m.status = "nothing to " + string(verb)
		return m, nil
	}

	logging.FromContext(m.ctx).Info().Str("verb", string(verb)).Strs("services", accepted).Msg("operation requested")
	m.sched.Mutate(m.ctx, verb, accepted...)
	m.status = fmt.Sprintf("%s %s…", verb, strings.Join(accepted, ", "))
	m.syncTable()
	return m, nil
}

func (m Model) cursorRow() (rows.Row, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.visible) {
		return rows.Row{}, false
	}
	return m.visible[i], true
}

func (m Model) anyBusy() bool {
	for _, name := range m.rows.Names() {
		if row, _ := m.rows.Get(name); row.Busy {
			return true
		}
	}
	return false
}

// syncTable rebuilds the visible rows from the row table and filter text.
func (m *Model) syncTable() {
	m.visible = m.rows.Filter(m.filter.Value())

	tableRows := make([]table.Row, len(m.visible))
	for i, r := range m.visible {
		mark, status := " ", r.Status
		if r.Marked {
			mark = "●"
		}
		if r.Busy {
			mark, status = "…", "working"
		}
		tableRows[i] = table.Row{mark, r.Name, status, r.PID}
	}
	m.table.SetRows(tableRows)

	if c := m.table.Cursor(); c >= len(tableRows) && len(tableRows) > 0 {
		m.table.SetCursor(len(tableRows) - 1)
	}
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("SerMan"))
	b.WriteString(subtleStyle.Render(fmt.Sprintf("  %s · %s", m.provider.Name(), m.provider.Pattern())))
	b.WriteString("\n\n")

	if m.filtering || m.filter.Value() != "" {
		b.WriteString(m.filter.View())
		b.WriteString("\n\n")
	}

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	case m.loading:
		b.WriteString(subtleStyle.Render("  Loading services…"))
		b.WriteString("\n")
	case m.rows.Len() == 0:
		b.WriteString(subtleStyle.Render("  No matching services found."))
		b.WriteString("\n")
	default:
		b.WriteString(m.table.View())
		b.WriteString("\n")
	}

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(subtleStyle.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))

	return b.String()
}
