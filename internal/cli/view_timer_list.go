package cli

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/multitimer/internal/cli/formatter"
	"github.com/alexanderramin/multitimer/internal/domain"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// timerListView is the home view: every timer with a live countdown.
type timerListView struct {
	state  *SharedState
	cursor int
}

func newTimerListView(state *SharedState) *timerListView {
	return &timerListView{state: state}
}

func (v *timerListView) ID() ViewID    { return ViewTimerList }
func (v *timerListView) Title() string { return "" }

func (v *timerListView) ShortHelp() []key.Binding {
	return []key.Binding{
		key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "start/pause")),
		key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "silence")),
		key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
		key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "delete")),
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
	}
}

func (v *timerListView) Init() tea.Cmd {
	return nil
}

// selected returns the timer under the cursor, or nil.
func (v *timerListView) selected() *domain.Timer {
	if v.cursor < 0 || v.cursor >= len(v.state.Timers) {
		return nil
	}
	return v.state.Timers[v.cursor]
}

func (v *timerListView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case refreshViewMsg:
		if n := len(v.state.Timers); v.cursor >= n {
			v.cursor = max(n-1, 0)
		}
		return v, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if v.cursor > 0 {
				v.cursor--
			}
			return v, nil
		case "down", "j":
			if v.cursor < len(v.state.Timers)-1 {
				v.cursor++
			}
			return v, nil
		case "a":
			return v, execAddTimer(v.state)
		}

		t := v.selected()
		if t == nil {
			return v, nil
		}
		switch msg.String() {
		case " ":
			return v, toggleTimer(v.state, t)
		case "p":
			return v, routeAction(v.state, t, domain.ActionPause)
		case "s":
			return v, routeAction(v.state, t, domain.ActionSilence)
		case "r":
			return v, routeAction(v.state, t, domain.ActionReset)
		case "e":
			return v, execEditTimer(v.state, t)
		case "x", "delete":
			return v, execDeleteTimer(v.state, t)
		case "enter", "h":
			return v, pushView(newTimerDetailView(v.state, t.ID))
		}
	}
	return v, nil
}

func (v *timerListView) View() string {
	timers := v.state.Timers
	if len(timers) == 0 {
		if v.state.LoadErr != nil {
			return "\n  " + formatter.StyleRed.Render("Error: "+v.state.LoadErr.Error())
		}
		return "\n  " + formatter.Dim("No timers yet. Press a to add one.")
	}

	now := v.state.Now()
	wall := now.Time()
	barWidth := 20
	if v.state.Width > 0 && v.state.Width < 100 {
		barWidth = 10
	}

	var b strings.Builder
	b.WriteString("\n")
	for i, t := range timers {
		status := formatter.DisplayStatus(t, now)

		cursor := "  "
		if i == v.cursor {
			cursor = formatter.StyleHeader.Render("▸ ")
		}
		label := fmt.Sprintf("%-24s", formatter.Truncate(t.Label, 24))
		if i == v.cursor {
			label = formatter.Bold(label)
		}

		left := formatter.StatusColor(status).Render(fmt.Sprintf("%8s", domain.FormatHMS(t.RemainingMs(now))))
		bar := formatter.RenderCompactBar(formatter.Fraction(t, now), barWidth, status != domain.TimerRunning)

		fmt.Fprintf(&b, "%s%s %s %s %s %s",
			cursor, formatter.Dim(fmt.Sprintf("%3d", t.ID)), label, left, bar, formatter.StatusPill(status))
		if formatter.Alerting(t) {
			b.WriteString(" " + formatter.StyleAlert.Render(" ALERT "))
		}
		if stop := t.WillStopAt(now); stop != nil {
			b.WriteString("  " + formatter.Dim("→ "+formatter.ClockTime(stop, wall)))
		}
		b.WriteString("\n")
	}
	return b.String()
}
