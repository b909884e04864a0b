package formatter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alexanderramin/multitimer/internal/domain"
)

const labelWidth = 28

// DisplayStatus is the status shown to the user. A running timer whose
// time is up shows as finished even before a reconcile pass stamps it.
func DisplayStatus(t *domain.Timer, now domain.Instant) domain.TimerStatus {
	if t.Due(now) {
		return domain.TimerFinished
	}
	return t.Status()
}

// Alerting reports whether t has an unsilenced alert.
func Alerting(t *domain.Timer) bool {
	return t.Alerted && !t.Silenced
}

// FormatTimerList renders all timers as a table.
func FormatTimerList(timers []*domain.Timer, now domain.Instant) string {
	if len(timers) == 0 {
		return Dim("No timers yet. Create one with: multitimer add LABEL DURATION") + "\n"
	}

	wall := now.Time()
	headers := []string{"ID", "LABEL", "TOTAL", "ELAPSED", "LEFT", "STATUS", "STARTED", "WILL STOP"}
	rows := make([][]string, 0, len(timers))
	for _, t := range timers {
		status := DisplayStatus(t, now)
		pill := StatusPill(status)
		if Alerting(t) {
			pill += " " + StyleAlert.Render(" ALERT ")
		}
		rows = append(rows, []string{
			Dim(strconv.FormatInt(t.ID, 10)),
			Truncate(t.Label, labelWidth),
			domain.FormatHMS(t.TotalMs),
			domain.FormatHMS(t.ElapsedMs(now)),
			StatusColor(status).Render(domain.FormatHMS(t.RemainingMs(now))),
			pill,
			ClockTime(t.StartedAt(), wall),
			ClockTime(t.WillStopAt(now), wall),
		})
	}
	return RenderTable(headers, rows)
}

// FormatTimer renders one timer as a card.
func FormatTimer(t *domain.Timer, now domain.Instant) string {
	wall := now.Time()
	status := DisplayStatus(t, now)

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", Dim("Status   "), StatusPill(status))
	fmt.Fprintf(&b, "%s  %s\n", Dim("Elapsed  "), Bold(domain.FormatHMS(t.ElapsedMs(now))))
	fmt.Fprintf(&b, "%s  %s\n", Dim("Left     "), StatusColor(status).Render(domain.FormatHMS(t.RemainingMs(now))))
	fmt.Fprintf(&b, "%s  %s\n", Dim("Started  "), ClockTime(t.StartedAt(), wall))
	fmt.Fprintf(&b, "%s  %s\n", Dim("Will stop"), ClockTime(t.WillStopAt(now), wall))
	b.WriteString("\n")
	b.WriteString(RenderProgress(Fraction(t, now), 30))
	if Alerting(t) {
		b.WriteString("\n\n" + StyleAlert.Render(" ALERT ") + " " + Dim("silence with: multitimer silence "+strconv.FormatInt(t.ID, 10)))
	}

	title := fmt.Sprintf("#%d %s · %s", t.ID, t.Label, domain.FormatHMS(t.TotalMs))
	return RenderBox(title, b.String()) + "\n"
}

// FormatHistory renders a timer's events, newest first.
func FormatHistory(label string, events []*domain.TimerEvent, now time.Time) string {
	var b strings.Builder
	b.WriteString(Header("History · "+label) + "\n")
	if len(events) == 0 {
		b.WriteString(Dim("No events.") + "\n")
		return b.String()
	}

	rows := make([][]string, 0, len(events))
	for _, e := range events {
		at := time.UnixMilli(e.WallClockMs)
		clock, offset := TimeAndOffset(at, now)
		if offset != "" {
			clock += " (" + offset + ")"
		}
		rows = append(rows, []string{
			clock,
			Dim(HumanTimestamp(at, now)),
			eventLabel(e.Kind),
			Dim(string(e.Source)),
			domain.FormatHMS(e.ElapsedMs),
		})
	}
	b.WriteString(RenderTable([]string{"TIME", "WHEN", "EVENT", "SOURCE", "ELAPSED"}, rows))
	return b.String()
}

func eventLabel(k domain.EventKind) string {
	switch k {
	case domain.EventFinished, domain.EventAlertDispatched:
		return StyleHeader.Render(string(k))
	case domain.EventStarted:
		return StyleGreen.Render(string(k))
	case domain.EventPaused, domain.EventSilenced:
		return StyleYellow.Render(string(k))
	case domain.EventDeleted, domain.EventAlertExpired:
		return StyleRed.Render(string(k))
	default:
		return string(k)
	}
}

// Fraction is the share of the duration already counted, in [0, 1].
func Fraction(t *domain.Timer, now domain.Instant) float64 {
	if t.TotalMs <= 0 {
		return 0
	}
	return float64(t.ElapsedMs(now)) / float64(t.TotalMs)
}
