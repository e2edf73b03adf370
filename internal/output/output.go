// Package output provides styled terminal output helpers (success, error,
// warning, participant formatting) using lipgloss.
package output

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/marcus/checkin/internal/models"
)

var (
	// Styles
	titleStyle   = lipgloss.NewStyle().Bold(true)
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	stateStyles  = map[models.ParticipantState]lipgloss.Style{
		models.StateComplete:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		models.StatePending:   lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		models.StateUnpaid:    lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		models.StateRejected:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		models.StateWithdrawn: lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
	}
)

// Success prints a success message
func Success(format string, args ...interface{}) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message
func Error(format string, args ...interface{}) {
	fmt.Println(errorStyle.Render("ERROR: " + fmt.Sprintf(format, args...)))
}

// Warning prints a warning message
func Warning(format string, args ...interface{}) {
	fmt.Println(warningStyle.Render("Warning: " + fmt.Sprintf(format, args...)))
}

// Info prints an info message
func Info(format string, args ...interface{}) {
	fmt.Println(fmt.Sprintf(format, args...))
}

// Notify prints a failure notification with its title and detail
func Notify(title, detail string) {
	fmt.Println(errorStyle.Render(title))
	if detail != "" {
		fmt.Println(subtleStyle.Render("  " + detail))
	}
}

// JSON outputs data as JSON
func JSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// FormatState formats a registration state with color
func FormatState(s models.ParticipantState) string {
	style, ok := stateStyles[s]
	if !ok {
		return fmt.Sprintf("[%s]", s)
	}
	return style.Render(fmt.Sprintf("[%s]", s))
}

// CheckinMark returns the check-in indicator used in lists
func CheckinMark(p *models.Participant) string {
	switch {
	case p.CheckedInLoading:
		return warningStyle.Render("…")
	case p.CheckedIn:
		return successStyle.Render("✓")
	default:
		return subtleStyle.Render("○")
	}
}

// FormatParticipantShort formats a participant on one line
func FormatParticipantShort(p *models.Participant) string {
	parts := []string{
		CheckinMark(p),
		titleStyle.Render(fmt.Sprintf("#%d", p.ID)),
		p.FullName,
		FormatState(p.State),
	}
	if p.OccupiedSlots > 1 {
		parts = append(parts, subtleStyle.Render(fmt.Sprintf("%d slots", p.OccupiedSlots)))
	}
	if p.Price > 0 && !p.IsPaid {
		parts = append(parts, warningStyle.Render("unpaid "+p.FormattedPrice))
	}
	if p.Deleted {
		parts = append(parts, errorStyle.Render("[deleted]"))
	}
	return strings.Join(parts, "  ")
}

// FormatEvent formats an event on one line
func FormatEvent(e *models.Event) string {
	parts := []string{
		titleStyle.Render(fmt.Sprintf("#%d", e.ID)),
		e.Title,
		subtleStyle.Render(FormatDate(e.Date)),
		subtleStyle.Render(e.BaseURL),
	}
	if e.Deleted {
		parts = append(parts, errorStyle.Render("[deleted]"))
	}
	return strings.Join(parts, "  ")
}

// FormatRegform formats a registration form with its counters
func FormatRegform(rf *models.Regform) string {
	parts := []string{
		titleStyle.Render(fmt.Sprintf("#%d", rf.ID)),
		rf.Title,
		fmt.Sprintf("%d/%d checked in", rf.CheckedInCount, rf.RegistrationCount),
	}
	if !rf.IsOpen {
		parts = append(parts, subtleStyle.Render("closed"))
	}
	if rf.Deleted {
		parts = append(parts, errorStyle.Render("[deleted]"))
	}
	return strings.Join(parts, "  ")
}

// FormatDate renders a server date (ISO 8601) as "Mon 2 Jan 2006".
// Dates that do not parse are returned unchanged.
func FormatDate(s string) string {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("Mon 2 Jan 2006")
		}
	}
	return s
}

// FormatTimeAgo formats a time as a human-readable "ago" string
func FormatTimeAgo(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}

// SectionHeader returns a formatted section header for CLI output
func SectionHeader(title string) string {
	return fmt.Sprintf("\n%s:\n", strings.ToUpper(title))
}
