package cli

import (
	"errors"
	"strings"

	"github.com/alexanderramin/multitimer/internal/cli/formatter"
	"github.com/alexanderramin/multitimer/internal/domain"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// timerHuhTheme returns a custom huh theme using the existing Gruvbox palette.
func timerHuhTheme() *huh.Theme {
	t := huh.ThemeBase()

	// Focused state: orange accent
	t.Focused.Title = lipgloss.NewStyle().Foreground(formatter.ColorHeader).Bold(true)
	t.Focused.FocusedButton = lipgloss.NewStyle().Foreground(formatter.ColorFg).Background(formatter.ColorHeader).Padding(0, 1)
	t.Focused.BlurredButton = lipgloss.NewStyle().Foreground(formatter.ColorDim).Padding(0, 1)
	t.Focused.TextInput.Cursor = lipgloss.NewStyle().Foreground(formatter.ColorHeader)
	t.Focused.TextInput.Prompt = lipgloss.NewStyle().Foreground(formatter.ColorHeader)
	t.Focused.TextInput.Text = lipgloss.NewStyle().Foreground(formatter.ColorFg)
	t.Focused.TextInput.Placeholder = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Focused.Description = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Focused.ErrorMessage = t.Focused.ErrorMessage.Foreground(formatter.ColorRed)

	// Blurred state: dimmed
	t.Blurred.Title = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.TextInput.Prompt = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.TextInput.Text = lipgloss.NewStyle().Foreground(formatter.ColorDim)

	return t
}

// timerInput collects the fields of the add and edit forms.
type timerInput struct {
	Label    string
	Duration string
	Start    bool
}

// validateDuration accepts anything domain.ParseDuration accepts.
func validateDuration(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("duration is required")
	}
	_, err := domain.ParseDuration(s)
	return err
}

// wizardTimer creates the add/edit form. The start question is only
// asked for new timers.
func wizardTimer(in *timerInput, askStart bool) *huh.Form {
	fields := []huh.Field{
		huh.NewInput().
			Title("Label").
			Placeholder("Timer N").
			CharLimit(64).
			Value(&in.Label),
		huh.NewInput().
			Title("Duration").
			Description("HH:MM:SS, MM:SS, seconds, or 25m / 1h30m").
			Value(&in.Duration).
			Validate(validateDuration),
	}
	if askStart {
		fields = append(fields, huh.NewConfirm().
			Title("Start now?").
			Affirmative("Yes").
			Negative("No").
			Value(&in.Start))
	}

	return huh.NewForm(
		huh.NewGroup(fields...),
	).WithTheme(timerHuhTheme()).WithShowHelp(false)
}

// wizardConfirm creates a huh form for a yes/no confirmation.
func wizardConfirm(title string, result *bool) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative("Yes").
				Negative("No").
				Value(result),
		),
	).WithTheme(timerHuhTheme()).WithShowHelp(false)
}
