package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// Placeholder is shown for times that do not exist yet.
const Placeholder = "—"

// RenderBox wraps content in a rounded-border box with an optional title.
func RenderBox(title string, content string) string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorDim).
		PaddingLeft(2).
		PaddingRight(2).
		PaddingTop(1).
		PaddingBottom(1)

	if title != "" {
		titleRendered := StyleHeader.Render(title)
		inner := titleRendered + "\n\n" + content
		return boxStyle.Render(inner)
	}

	return boxStyle.Render(content)
}

// TimeAndOffset formats t as a 12-hour clock time in now's location and
// returns the calendar-day offset from now ("+1 day", "-3 days"), empty on
// the same day.
func TimeAndOffset(t, now time.Time) (string, string) {
	t = t.In(now.Location())
	base := t.Format("3:04:05 PM")

	days := dayNumber(t) - dayNumber(now)
	switch {
	case days == 0:
		return base, ""
	case days == 1:
		return base, "+1 day"
	case days == -1:
		return base, "-1 day"
	case days > 0:
		return base, fmt.Sprintf("+%d days", days)
	default:
		return base, fmt.Sprintf("%d days", days)
	}
}

func dayNumber(t time.Time) int {
	y, m, d := t.Date()
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

// ClockTime renders an optional time with its bold day-offset tag.
func ClockTime(t *time.Time, now time.Time) string {
	if t == nil {
		return Dim(Placeholder)
	}
	base, offset := TimeAndOffset(*t, now)
	if offset == "" {
		return base
	}
	return base + " " + Bold("("+offset+")")
}

// HumanTimestamp returns a relative timestamp such as "3 minutes ago".
func HumanTimestamp(t, now time.Time) string {
	if now.Sub(t) < time.Second && t.Sub(now) < time.Second {
		return "just now"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// Truncate shortens s to at most width cells, adding an ellipsis.
func Truncate(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r))+1 > width {
		r = r[:len(r)-1]
	}
	return strings.TrimRight(string(r), " ") + "…"
}
