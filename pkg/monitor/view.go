package monitor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/marcus/checkin/internal/models"
	"github.com/marcus/checkin/internal/output"
)

// View implements tea.Model
func (m Model) View() string {
	if m.Width == 0 || m.Height == 0 {
		return "Loading..."
	}
	if m.Width < MinWidth || m.Height < MinHeight {
		return m.renderCompact()
	}

	header := m.renderHeader()
	footer := m.renderFooter()
	listHeight := m.Height - lipgloss.Height(header) - lipgloss.Height(footer)

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.renderList(listHeight),
		footer,
	)
}

func (m Model) renderCompact() string {
	return fmt.Sprintf("%s\n%d/%d checked in\n%s",
		ansi.Truncate(m.Regform.Title, m.Width, "…"),
		m.Regform.CheckedInCount, m.Regform.RegistrationCount,
		subtleStyle.Render("terminal too small"))
}

func (m Model) renderHeader() string {
	title := fmt.Sprintf("%s · %s", m.Event.Title, m.Regform.Title)
	counts := fmt.Sprintf("%d/%d checked in", m.Regform.CheckedInCount, m.Regform.RegistrationCount)

	titleWidth := m.Width - lipgloss.Width(counts) - 4
	title = ansi.Truncate(title, max(titleWidth, 1), "…")
	gap := max(m.Width-lipgloss.Width(title)-lipgloss.Width(counts)-2, 1)

	line := headerStyle.Width(m.Width).Render(title + strings.Repeat(" ", gap) + counts)

	var sub []string
	if date := output.FormatDate(m.Event.Date); date != "" {
		sub = append(sub, date)
	}
	if m.Syncing {
		sub = append(sub, warningStyle.Render("syncing…"))
	} else if !m.LastSync.IsZero() {
		sub = append(sub, "synced "+output.FormatTimeAgo(m.LastSync))
	} else {
		sub = append(sub, "not synced")
	}
	if m.Regform.Deleted {
		sub = append(sub, errorStyle.Render("form deleted on server"))
	} else if !m.Regform.IsOpen {
		sub = append(sub, "registration closed")
	}
	return line + "\n" + subtleStyle.Render(" "+strings.Join(sub, " · "))
}

func (m Model) renderList(height int) string {
	if height <= 0 {
		return ""
	}
	rows := m.visible()
	if len(rows) == 0 {
		msg := "No participants"
		if m.Filter != "" {
			msg = fmt.Sprintf("No participants match %q", m.Filter)
		}
		return lipgloss.NewStyle().Height(height).Render(subtleStyle.Render(" " + msg))
	}

	start := scrollStart(m.Cursor, len(rows), height)
	end := min(start+height, len(rows))

	lines := make([]string, 0, height)
	for i := start; i < end; i++ {
		lines = append(lines, m.renderRow(&rows[i], i == m.Cursor))
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// scrollStart keeps the cursor inside a window of the given height
func scrollStart(cursor, total, height int) int {
	if total <= height || cursor < height/2 {
		return 0
	}
	return min(cursor-height/2, total-height)
}

func (m Model) renderRow(p *models.Participant, selected bool) string {
	prefix := "  "
	if selected {
		prefix = selectedStyle.Render("> ")
	}

	state := formatState(p.State)
	right := state
	if p.OccupiedSlots > 1 {
		right = fmt.Sprintf("×%d  %s", p.OccupiedSlots, state)
	}

	nameWidth := m.Width - 2 - 4 - lipgloss.Width(right) - 2
	name := ansi.Truncate(p.FullName, max(nameWidth, 1), "…")
	if selected {
		name = titleStyle.Render(name)
	}
	gap := max(m.Width-2-4-lipgloss.Width(name)-lipgloss.Width(right), 1)

	return prefix + checkinIcon(p) + " " + paymentIcon(p) + " " + name + strings.Repeat(" ", gap) + right
}

func (m Model) renderFooter() string {
	var lines []string

	switch m.Mode {
	case ModeScan:
		lines = append(lines, m.ScanInput.View())
	case ModeFilter:
		lines = append(lines, m.FilterInput.View())
	default:
		if m.Filter != "" {
			lines = append(lines, subtleStyle.Render(fmt.Sprintf("filter: %s (%d)", m.Filter, len(m.visible()))))
		}
	}

	if m.Status != "" {
		style := successStyle
		if m.StatusIsErr {
			style = errorStyle
		}
		lines = append(lines, style.Render(ansi.Truncate(m.Status, m.Width, "…")))
	} else if m.UpdateAvailable != nil {
		lines = append(lines, warningStyle.Render(ansi.Truncate(
			fmt.Sprintf("Update available: %s → %s (%s)",
				m.UpdateAvailable.CurrentVersion, m.UpdateAvailable.LatestVersion, m.UpdateAvailable.UpdateCommand),
			m.Width, "…")))
	}

	lines = append(lines, m.renderHelp())
	return strings.Join(lines, "\n")
}

func (m Model) renderHelp() string {
	h := help.New()
	h.Width = m.Width
	h.Styles.ShortKey = helpStyle.Bold(true)
	h.Styles.ShortDesc = helpStyle

	var bindings []key.Binding
	switch m.Mode {
	case ModeScan:
		bindings = scanKeys
	case ModeFilter:
		bindings = filterKeys
	default:
		bindings = keys.ShortHelp()
	}
	return h.ShortHelpView(bindings)
}
