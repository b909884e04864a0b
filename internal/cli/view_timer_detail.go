package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexanderramin/multitimer/internal/cli/formatter"
	"github.com/alexanderramin/multitimer/internal/domain"
	"github.com/alexanderramin/multitimer/internal/repository"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

const detailHistoryLimit = 10

// historyLoadedMsg carries the events of one timer.
type historyLoadedMsg struct {
	timerID int64
	events  []*domain.TimerEvent
	err     error
}

// timerDetailView shows one timer's card and its recent history.
type timerDetailView struct {
	state   *SharedState
	timerID int64
	label   string

	events []*domain.TimerEvent
	err    error
	// sig is the snapshot the history was last loaded for.
	sig string
}

func newTimerDetailView(state *SharedState, id int64) *timerDetailView {
	v := &timerDetailView{state: state, timerID: id}
	if t := state.Timer(id); t != nil {
		v.label = t.Label
	}
	return v
}

func (v *timerDetailView) ID() ViewID { return ViewTimerDetail }
func (v *timerDetailView) Title() string {
	return fmt.Sprintf("#%d %s", v.timerID, v.label)
}

func (v *timerDetailView) ShortHelp() []key.Binding {
	return []key.Binding{
		key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "start/pause")),
		key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "silence")),
		key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
		key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "delete")),
	}
}

func (v *timerDetailView) Init() tea.Cmd {
	v.sig = snapshotSig(v.state.Timer(v.timerID))
	return v.loadHistory()
}

func (v *timerDetailView) loadHistory() tea.Cmd {
	app, id := v.state.App, v.timerID
	return func() tea.Msg {
		events, err := app.Timers.History(context.Background(), id, detailHistoryLimit)
		return historyLoadedMsg{timerID: id, events: events, err: err}
	}
}

// snapshotSig changes whenever t changes in a way that records an event.
func snapshotSig(t *domain.Timer) string {
	if t == nil {
		return "gone"
	}
	return fmt.Sprintf("%s|%d|%d|%t|%t|%t|%s", t.Status(), t.AccumulatedMs, t.TotalMs,
		t.IsRunning, t.Alerted, t.Silenced, t.Label)
}

func (v *timerDetailView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case historyLoadedMsg:
		if msg.timerID != v.timerID {
			return v, nil
		}
		v.events, v.err = msg.events, msg.err
		if errors.Is(v.err, repository.ErrNotFound) {
			v.events, v.err = nil, nil
		}
		return v, nil

	case refreshViewMsg:
		t := v.state.Timer(v.timerID)
		if t == nil && v.state.LoadErr == nil {
			// Deleted, here or elsewhere.
			return v, popView()
		}
		if t != nil {
			v.label = t.Label
		}
		if sig := snapshotSig(t); sig != v.sig {
			v.sig = sig
			return v, v.loadHistory()
		}
		return v, nil

	case tea.KeyMsg:
		t := v.state.Timer(v.timerID)
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
		}
	}
	return v, nil
}

func (v *timerDetailView) View() string {
	t := v.state.Timer(v.timerID)
	if t == nil {
		return "\n  " + formatter.Dim("Timer not found.")
	}

	now := v.state.Now()
	out := "\n" + formatter.FormatTimer(t, now) + "\n"
	if v.err != nil {
		return out + "  " + formatter.StyleRed.Render("Error: "+v.err.Error())
	}
	return out + formatter.FormatHistory(t.Label, v.events, now.Time())
}
