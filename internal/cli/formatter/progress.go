package formatter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	filledBlock = "█"
	emptyBlock  = "░"
)

// RenderProgress renders a countdown bar like [████░░░░] 45%.
// The bar turns yellow past two thirds and red in the last tenth.
func RenderProgress(pct float64, width int) string {
	pct, width = clampBar(pct, width)
	return fmt.Sprintf("[%s] %3.0f%%", barStyle(pct).Render(blocks(pct, width)), pct*100)
}

// RenderCompactBar renders the bar without brackets or percentage.
// dim renders it in the muted color (paused timers).
func RenderCompactBar(pct float64, width int, dim bool) string {
	pct, width = clampBar(pct, width)
	bar := blocks(pct, width)
	if dim {
		return StyleDim.Render(bar)
	}
	return barStyle(pct).Render(bar)
}

func clampBar(pct float64, width int) (float64, int) {
	if pct < 0 {
		pct = 0
	}
	if pct > 1 {
		pct = 1
	}
	if width < 2 {
		width = 2
	}
	return pct, width
}

func blocks(pct float64, width int) string {
	filled := min(int(pct*float64(width)), width)
	return strings.Repeat(filledBlock, filled) + strings.Repeat(emptyBlock, width-filled)
}

func barStyle(pct float64) lipgloss.Style {
	switch {
	case pct >= 0.9:
		return StyleRed
	case pct >= 0.66:
		return StyleYellow
	default:
		return StyleGreen
	}
}
