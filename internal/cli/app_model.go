package cli

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/multitimer/internal/cli/formatter"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// appModel is the root bubbletea Model for the TUI.
// It manages a view stack and the periodic reconcile loop.
type appModel struct {
	state     *SharedState
	viewStack []View
	quitting  bool

	// Transient one-line output, shown until the next key press.
	lastOutput string
}

func newAppModel(app *App) appModel {
	state := &SharedState{App: app}
	return appModel{
		state:     state,
		viewStack: []View{newTimerListView(state)},
	}
}

// activeView returns the top view on the stack, or nil.
func (m *appModel) activeView() View {
	if len(m.viewStack) == 0 {
		return nil
	}
	return m.viewStack[len(m.viewStack)-1]
}

// setActiveView replaces the top of the view stack.
// If the stack is empty, this is a no-op.
func (m *appModel) setActiveView(v View) {
	if len(m.viewStack) > 0 {
		m.viewStack[len(m.viewStack)-1] = v
	}
}

// ── bubbletea interface ──────────────────────────────────────────────────────

func (m appModel) Init() tea.Cmd {
	cmds := []tea.Cmd{reconcile(m.state.App), scheduleTick(m.state.TickInterval())}
	if v := m.activeView(); v != nil {
		cmds = append(cmds, v.Init())
	}
	return tea.Batch(cmds...)
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.state.Width = msg.Width
		m.state.Height = msg.Height
		return m.forward(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		return m, tea.Batch(reconcile(m.state.App), scheduleTick(m.state.TickInterval()))

	case reconciledMsg:
		m.state.LoadErr = msg.err
		if msg.timers != nil || msg.err == nil {
			m.state.Timers = msg.timers
		}
		if msg.err != nil {
			m.state.App.logger().Warn("reconcile failed", "error", msg.err)
		}
		if len(msg.finished) > 0 {
			m.lastOutput = m.finishedLine(msg.finished)
		}
		return m.broadcast(refreshViewMsg{})

	case timersLoadedMsg:
		m.state.LoadErr = msg.err
		if msg.err == nil {
			m.state.Timers = msg.timers
		}
		if msg.output != "" {
			m.lastOutput = msg.output
		}
		return m.broadcast(refreshViewMsg{})

	case historyLoadedMsg:
		return m.broadcast(msg)

	// Navigation messages from views
	case pushViewMsg:
		m.lastOutput = ""
		m.viewStack = append(m.viewStack, msg.view)
		return m, msg.view.Init()

	case popViewMsg:
		if len(m.viewStack) > 1 {
			m.viewStack = m.viewStack[:len(m.viewStack)-1]
		}
		return m, nil

	case cmdOutputMsg:
		m.lastOutput = msg.output
		return m, nil

	case wizardCompleteMsg:
		// Atomically pop the wizard view and execute the follow-up command.
		if len(m.viewStack) > 1 {
			m.viewStack = m.viewStack[:len(m.viewStack)-1]
		}
		m.lastOutput = ""
		return m, msg.nextCmd

	case quitMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m.forward(msg)
}

// broadcast sends msg to ALL views in the stack so views under a form
// see the same snapshot as the one on top.
func (m appModel) broadcast(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	for i, v := range m.viewStack {
		updated, cmd := v.Update(msg)
		m.viewStack[i] = updated.(View)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return m, tea.Batch(cmds...)
}

// forward hands msg to the active view.
func (m appModel) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	v := m.activeView()
	if v == nil {
		return m, nil
	}
	updated, cmd := v.Update(msg)
	m.setActiveView(updated.(View))
	return m, cmd
}

func (m appModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Global quit
	if msg.Type == tea.KeyCtrlC {
		m.quitting = true
		return m, tea.Quit
	}

	m.lastOutput = ""

	// Forms receive every key, including q and esc.
	if v := m.activeView(); v != nil && viewCapturesInput(v) {
		return m.forward(msg)
	}

	switch {
	case msg.String() == "q":
		m.quitting = true
		return m, tea.Quit

	case msg.Type == tea.KeyEsc:
		if len(m.viewStack) > 1 {
			m.viewStack = m.viewStack[:len(m.viewStack)-1]
		}
		return m, nil
	}

	return m.forward(msg)
}

func (m appModel) View() string {
	if m.quitting {
		return ""
	}

	var sections []string
	sections = append(sections, m.renderHeader())
	if banner := m.renderAlertBanner(); banner != "" {
		sections = append(sections, banner)
	}
	if v := m.activeView(); v != nil {
		sections = append(sections, v.View())
	}
	if m.lastOutput != "" {
		sections = append(sections, "  "+m.lastOutput)
	}
	sections = append(sections, m.renderStatusBar())

	result := strings.Join(sections, "\n")

	// Pad to terminal height to prevent stale line artifacts from
	// bubbletea's line-diff renderer in alt-screen mode.
	if m.state.Height > 0 {
		lines := strings.Count(result, "\n") + 1
		if lines < m.state.Height {
			result += strings.Repeat("\n", m.state.Height-lines)
		}
	}

	return result
}

// ── rendering helpers ────────────────────────────────────────────────────────

func (m *appModel) renderHeader() string {
	title := formatter.StylePurple.Render("multitimer")

	var crumbs []string
	for _, v := range m.viewStack {
		if t := v.Title(); t != "" {
			crumbs = append(crumbs, t)
		}
	}
	breadcrumb := ""
	if len(crumbs) > 0 {
		breadcrumb = " " + formatter.Dim("›") + " " + formatter.Dim(strings.Join(crumbs, " › "))
	}

	header := title + breadcrumb
	now := m.state.Now().Time()
	header += "  " + formatter.Dim(now.Format("3:04:05 PM"))

	sep := formatter.Dim(strings.Repeat("─", max(m.state.Width, 20)))
	return header + "\n" + sep
}

// renderAlertBanner lists every timer whose alert is still sounding.
func (m *appModel) renderAlertBanner() string {
	alerting := m.state.Alerting()
	if len(alerting) == 0 {
		return ""
	}
	names := make([]string, 0, len(alerting))
	for _, t := range alerting {
		names = append(names, fmt.Sprintf("#%d %s", t.ID, t.Label))
	}
	return formatter.StyleAlert.Render(" ⏰ TIME'S UP ") + " " +
		formatter.Bold(strings.Join(names, ", ")) + "  " + formatter.Dim("s: silence")
}

func (m *appModel) renderStatusBar() string {
	var hints []string
	if v := m.activeView(); v != nil {
		for _, b := range v.ShortHelp() {
			hints = append(hints, formatter.Dim(b.Help().Key+": "+b.Help().Desc))
		}
	}
	if v := m.activeView(); v == nil || !viewCapturesInput(v) {
		if len(m.viewStack) > 1 {
			hints = append(hints, formatter.Dim("esc: back"))
		}
		hints = append(hints, formatter.Dim("q: quit"))
	}
	if m.state.LoadErr != nil {
		hints = append(hints, formatter.StyleRed.Render("⚠ "+m.state.LoadErr.Error()))
	}

	bar := strings.Join(hints, "  ")
	sepStyle := lipgloss.NewStyle().Foreground(formatter.ColorDim)
	sep := sepStyle.Render(strings.Repeat("─", max(m.state.Width, 20)))
	return sep + "\n" + bar
}

func (m *appModel) finishedLine(ids []int64) string {
	var labels []string
	for _, id := range ids {
		if t := m.state.Timer(id); t != nil {
			labels = append(labels, formatter.Bold(t.Label))
		} else {
			labels = append(labels, fmt.Sprintf("#%d", id))
		}
	}
	return formatter.StyleHeader.Render("⏰") + " Finished: " + strings.Join(labels, ", ")
}

// viewCapturesInput returns true if the active view has its own input
// and should receive all key events (bypassing global keybindings like q/Esc).
func viewCapturesInput(v View) bool {
	return v != nil && v.ID() == ViewForm
}
