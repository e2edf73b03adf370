package monitor

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/marcus/checkin/internal/models"
)

var (
	// Base colors
	primaryColor = lipgloss.Color("212")
	mutedColor   = lipgloss.Color("241")
	successColor = lipgloss.Color("42")
	warningColor = lipgloss.Color("214")
	errorColor   = lipgloss.Color("196")

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Background(lipgloss.Color("237")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)

	titleStyle    = lipgloss.NewStyle().Bold(true)
	subtleStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	helpStyle     = lipgloss.NewStyle().Foreground(mutedColor)
	selectedStyle = lipgloss.NewStyle().Foreground(primaryColor).Bold(true)
	successStyle  = lipgloss.NewStyle().Foreground(successColor)
	warningStyle  = lipgloss.NewStyle().Foreground(warningColor)
	errorStyle    = lipgloss.NewStyle().Foreground(errorColor)

	stateStyles = map[models.ParticipantState]lipgloss.Style{
		models.StateComplete:  lipgloss.NewStyle().Foreground(successColor),
		models.StatePending:   lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		models.StateUnpaid:    lipgloss.NewStyle().Foreground(warningColor),
		models.StateRejected:  lipgloss.NewStyle().Foreground(errorColor),
		models.StateWithdrawn: lipgloss.NewStyle().Foreground(mutedColor),
	}
)

func formatState(s models.ParticipantState) string {
	if style, ok := stateStyles[s]; ok {
		return style.Render(string(s))
	}
	return string(s)
}

// checkinIcon shows the check-in state, or a spinner glyph while a
// toggle is in flight
func checkinIcon(p *models.Participant) string {
	switch {
	case p.CheckedInLoading:
		return warningStyle.Render("…")
	case p.CheckedIn:
		return successStyle.Render("✓")
	default:
		return subtleStyle.Render("○")
	}
}

func paymentIcon(p *models.Participant) string {
	switch {
	case p.Price == 0:
		return " "
	case p.IsPaidLoading:
		return warningStyle.Render("…")
	case p.IsPaid:
		return successStyle.Render("$")
	default:
		return errorStyle.Render("$")
	}
}
