package monitor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// handleKey routes a key press by mode
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	switch m.Mode {
	case ModeScan:
		return m.handleScanKey(msg)
	case ModeFilter:
		return m.handleFilterKey(msg)
	}

	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Down):
		m.Cursor++
		m.clampCursor()
	case key.Matches(msg, keys.Up):
		m.Cursor--
		m.clampCursor()
	case key.Matches(msg, keys.Top):
		m.Cursor = 0
		m.clampCursor()
	case key.Matches(msg, keys.Bottom):
		m.Cursor = len(m.visible()) - 1
		m.clampCursor()
	case key.Matches(msg, keys.Scan):
		m.Mode = ModeScan
		m.ScanInput.SetValue("")
		return m, m.ScanInput.Focus()
	case key.Matches(msg, keys.Filter):
		m.Mode = ModeFilter
		return m, m.FilterInput.Focus()
	case key.Matches(msg, keys.Clear):
		m.Filter = ""
		m.FilterInput.SetValue("")
		m.restoreCursor()
	case key.Matches(msg, keys.CheckIn):
		if p, ok := m.selected(); ok && !p.CheckedInLoading {
			return m, m.toggleCheckin(p)
		}
	case key.Matches(msg, keys.Paid):
		if p, ok := m.selected(); ok && !p.IsPaidLoading && p.Price > 0 {
			return m, m.togglePaid(p)
		}
	case key.Matches(msg, keys.Sync):
		if !m.Syncing {
			m.Syncing = true
			return m, m.syncForm()
		}
	}
	return m, nil
}

func (m Model) handleScanKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.Mode = ModeList
		m.ScanInput.Blur()
		return m, nil
	case tea.KeyEnter:
		text := strings.TrimSpace(m.ScanInput.Value())
		m.ScanInput.SetValue("")
		if text == "" {
			return m, nil
		}
		// Stay in scan mode so the next ticket can be scanned right away
		return m, m.scan(text)
	}

	var cmd tea.Cmd
	m.ScanInput, cmd = m.ScanInput.Update(msg)
	return m, cmd
}

func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.Mode = ModeList
		m.FilterInput.Blur()
		m.Filter = ""
		m.FilterInput.SetValue("")
		m.restoreCursor()
		return m, nil
	case tea.KeyEnter:
		m.Mode = ModeList
		m.FilterInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.FilterInput, cmd = m.FilterInput.Update(msg)
	m.Filter = strings.TrimSpace(m.FilterInput.Value())
	m.Cursor = 0
	m.clampCursor()
	return m, cmd
}

// handleScan reacts to an ingested payload
func (m Model) handleScan(msg ScanDoneMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		return m, m.setStatus(msg.Err.Error(), true)
	}
	res := msg.Result
	if res == nil {
		// Rejected; the reason arrives as a notice
		return m, nil
	}

	cmds := []tea.Cmd{m.fetchData()}
	switch {
	case res.ParticipantID == 0:
		cmds = append(cmds, m.setStatus(fmt.Sprintf("Event added: %s", res.Path), false))
	case res.RegformID != m.Regform.ID:
		cmds = append(cmds, m.setStatus(fmt.Sprintf("Participant belongs to another form: %s", res.Path), true))
	default:
		m.selectID(res.ParticipantID)
		text := "Participant found"
		if res.Offline {
			text += " (offline)"
		}
		cmds = append(cmds, m.setStatus(text, false))
	}
	return m, tea.Batch(cmds...)
}
