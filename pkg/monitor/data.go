package monitor

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/marcus/checkin/internal/models"
	"github.com/marcus/checkin/internal/qrcode"
	"github.com/marcus/checkin/internal/sync"
	"github.com/sahilm/fuzzy"
)

// fetchData reads the form and its live participants from the store
func (m Model) fetchData() tea.Cmd {
	store, regformID := m.DB, m.Regform.ID
	return func() tea.Msg {
		ctx := context.Background()
		rf, err := store.GetRegform(ctx, regformID)
		if err != nil {
			return RefreshDataMsg{Err: err}
		}
		ps, err := store.ListParticipants(ctx, regformID, false)
		if err != nil {
			return RefreshDataMsg{Err: err}
		}
		return RefreshDataMsg{Regform: rf, Participants: ps, Timestamp: time.Now()}
	}
}

// syncForm refreshes the form and its participants from the server
func (m Model) syncForm() tea.Cmd {
	r, event, regform := m.Reconciler, m.Event, m.Regform
	return func() tea.Msg {
		ctx := context.Background()
		res, err := r.SyncRegform(ctx, event, regform)
		if err != nil || res.Outcome != sync.OK {
			return SyncDoneMsg{Result: res, Err: err}
		}
		more, err := r.SyncParticipants(ctx, event, regform)
		res.Add(more)
		return SyncDoneMsg{Result: res, Err: err}
	}
}

// scan ingests a scanned payload
func (m Model) scan(text string) tea.Cmd {
	g, auto, bell := m.Gateway, m.AutoCheckin, m.Bell
	return func() tea.Msg {
		ctx := context.Background()
		payload, err := qrcode.Parse(text)
		if err != nil {
			return ScanDoneMsg{Err: err}
		}

		var res *sync.ScanResult
		switch p := payload.(type) {
		case *qrcode.EventPayload:
			res, err = g.ScanEvent(ctx, p)
		case *qrcode.ParticipantPayload:
			res, err = g.ScanParticipant(ctx, p, auto)
			if err == nil && res != nil {
				_, err = g.CheckInScanned(ctx, res, bell)
			}
		default:
			err = errors.New("unsupported QR code")
		}
		return ScanDoneMsg{Result: res, Err: err}
	}
}

// toggleCheckin flips the check-in state of a participant
func (m Model) toggleCheckin(p models.Participant) tea.Cmd {
	g, event, regform, bell := m.Gateway, m.Event, m.Regform, m.Bell
	return func() tea.Msg {
		action := "Checked in"
		if p.CheckedIn {
			action = "Check-in undone"
		}
		outcome, err := g.SetCheckedIn(context.Background(), event, regform, &p, !p.CheckedIn, bell)
		return MutationDoneMsg{Action: action, Name: p.FullName, Outcome: outcome, Err: err}
	}
}

// togglePaid flips the payment state of a participant
func (m Model) togglePaid(p models.Participant) tea.Cmd {
	g, event, regform := m.Gateway, m.Event, m.Regform
	return func() tea.Msg {
		action := "Marked paid"
		if p.IsPaid {
			action = "Marked unpaid"
		}
		outcome, err := g.SetPaid(context.Background(), event, regform, &p, !p.IsPaid)
		return MutationDoneMsg{Action: action, Name: p.FullName, Outcome: outcome, Err: err}
	}
}

type participantNames []models.Participant

func (n participantNames) String(i int) string { return n[i].FullName }
func (n participantNames) Len() int            { return len(n) }

// visible returns the participants matching the filter, best match first.
// Without a filter the store order (by name) is kept.
func (m Model) visible() []models.Participant {
	if m.Filter == "" {
		return m.Participants
	}
	matches := fuzzy.FindFrom(m.Filter, participantNames(m.Participants))
	out := make([]models.Participant, len(matches))
	for i, match := range matches {
		out[i] = m.Participants[match.Index]
	}
	return out
}

// selected returns the participant under the cursor
func (m Model) selected() (models.Participant, bool) {
	rows := m.visible()
	if m.Cursor < 0 || m.Cursor >= len(rows) {
		return models.Participant{}, false
	}
	return rows[m.Cursor], true
}

func (m *Model) clampCursor() {
	n := len(m.visible())
	if m.Cursor >= n {
		m.Cursor = n - 1
	}
	if m.Cursor < 0 {
		m.Cursor = 0
	}
	if p, ok := m.selected(); ok {
		m.SelectedID = p.ID
	}
}

// restoreCursor keeps the selection on the same participant after a refresh
func (m *Model) restoreCursor() {
	for i, p := range m.visible() {
		if p.ID == m.SelectedID {
			m.Cursor = i
			return
		}
	}
	m.clampCursor()
}

// selectID moves the cursor to a participant, clearing the filter if it
// hides them
func (m *Model) selectID(id int64) {
	m.SelectedID = id
	for i, p := range m.visible() {
		if p.ID == id {
			m.Cursor = i
			return
		}
	}
	m.Filter = ""
	m.FilterInput.SetValue("")
	m.restoreCursor()
}
