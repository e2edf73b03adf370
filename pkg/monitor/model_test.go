package monitor

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/marcus/checkin/internal/db"
	"github.com/marcus/checkin/internal/models"
	"github.com/marcus/checkin/internal/sync"
	"github.com/marcus/checkin/internal/syncclient"
	"github.com/marcus/checkin/internal/testserver"
	_ "github.com/mattn/go-sqlite3"
)

// newTestModel seeds a store with one form holding three live participants
// and one deleted participant, backed by a fake API that knows the form.
func newTestModel(t *testing.T) (Model, *testserver.Server) {
	t.Helper()
	ctx := context.Background()

	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite3: %v", err)
	}
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })

	store, err := db.OpenConn(conn)
	if err != nil {
		t.Fatalf("OpenConn: %v", err)
	}

	api := testserver.New("tok")
	t.Cleanup(api.Close)
	api.AddEvent(syncclient.Event{ID: 42, Title: "Conf"})
	api.AddRegform(42, syncclient.Regform{ID: 73, Title: "Main", IsOpen: true, RegistrationCount: 3})
	api.AddParticipant(73, syncclient.Participant{ID: 101, FullName: "Ada Lovelace", CheckinSecret: "a", OccupiedSlots: 1})

	var eventID, regformID int64
	err = store.Update(ctx, func(tx *db.Tx) error {
		serverID, err := tx.AddServer(ctx, &models.Server{BaseURL: api.URL, AuthToken: "tok"})
		if err != nil {
			return err
		}
		eventID, err = tx.AddEvent(ctx, &models.Event{RemoteID: 42, ServerID: serverID, BaseURL: api.URL, Title: "Conf"})
		if err != nil {
			return err
		}
		regformID, err = tx.AddRegform(ctx, &models.Regform{RemoteID: 73, EventID: eventID, Title: "Main", IsOpen: true, RegistrationCount: 3})
		if err != nil {
			return err
		}
		for _, p := range []models.Participant{
			{RemoteID: 101, FullName: "Ada Lovelace", CheckinSecret: "a", OccupiedSlots: 1, State: models.StateComplete},
			{RemoteID: 102, FullName: "Bob Stone", CheckinSecret: "b", OccupiedSlots: 1, State: models.StateComplete},
			{RemoteID: 103, FullName: "Cleo Park", CheckinSecret: "c", OccupiedSlots: 1, State: models.StatePending},
			{RemoteID: 104, FullName: "Dan Gone", CheckinSecret: "d", OccupiedSlots: 1, Deleted: true},
		} {
			p.RegformID = regformID
			if _, err := tx.AddParticipant(ctx, &p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	event, _ := store.GetEvent(ctx, eventID)
	regform, _ := store.GetRegform(ctx, regformID)
	if event == nil || regform == nil {
		t.Fatal("seed rows missing")
	}

	m := NewModel(Options{
		DB:      store,
		Dialer:  sync.HTTPDialer(5 * time.Second),
		Event:   event,
		Regform: regform,
	})
	return refresh(t, m), api
}

func refresh(t *testing.T, m Model) Model {
	t.Helper()
	msg := m.fetchData()()
	if rd, ok := msg.(RefreshDataMsg); !ok || rd.Err != nil {
		t.Fatalf("fetchData = %#v", msg)
	}
	next, _ := m.Update(msg)
	return next.(Model)
}

func press(m Model, keys ...string) Model {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func names(ps []models.Participant) string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.FullName
	}
	return strings.Join(out, ",")
}

func TestRefreshSkipsDeleted(t *testing.T) {
	m, _ := newTestModel(t)

	if got := names(m.Participants); got != "Ada Lovelace,Bob Stone,Cleo Park" {
		t.Errorf("participants = %q", got)
	}
	if m.LastRefresh.IsZero() {
		t.Error("LastRefresh not set")
	}
}

func TestCursorSurvivesRefresh(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(m, "j", "j")
	if m.Cursor != 2 {
		t.Fatalf("Cursor = %d, want 2", m.Cursor)
	}
	m = press(m, "j")
	if m.Cursor != 2 {
		t.Errorf("Cursor moved past the end: %d", m.Cursor)
	}
	selected := m.SelectedID

	m = refresh(t, m)
	if m.SelectedID != selected || m.Cursor != 2 {
		t.Errorf("after refresh cursor=%d selected=%d, want 2/%d", m.Cursor, m.SelectedID, selected)
	}

	m = press(m, "g")
	if m.Cursor != 0 {
		t.Errorf("g: Cursor = %d", m.Cursor)
	}
}

func TestFilter(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(m, "/", "c", "l", "e")
	if m.Mode != ModeFilter {
		t.Fatalf("Mode = %v, want filter", m.Mode)
	}
	if got := names(m.visible()); got != "Cleo Park" {
		t.Errorf("visible = %q", got)
	}

	m = press(m, "enter")
	if m.Mode != ModeList || m.Filter != "cle" {
		t.Errorf("enter: mode=%v filter=%q", m.Mode, m.Filter)
	}
	if p, ok := m.selected(); !ok || p.FullName != "Cleo Park" {
		t.Errorf("selected = %v %v", p.FullName, ok)
	}

	m = press(m, "esc")
	if m.Filter != "" || len(m.visible()) != 3 {
		t.Errorf("esc left filter %q with %d rows", m.Filter, len(m.visible()))
	}
	if p, _ := m.selected(); p.FullName != "Cleo Park" {
		t.Errorf("selection lost on clear: %q", p.FullName)
	}
}

func TestScanModeKeepsKeysFromList(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(m, "s", "q", "j")
	if m.Mode != ModeScan {
		t.Fatalf("Mode = %v, want scan", m.Mode)
	}
	if m.ScanInput.Value() != "qj" {
		t.Errorf("scan input = %q", m.ScanInput.Value())
	}
	if m.Cursor != 0 {
		t.Errorf("cursor moved while scanning: %d", m.Cursor)
	}

	m = press(m, "esc")
	if m.Mode != ModeList {
		t.Errorf("esc: Mode = %v", m.Mode)
	}
}

func TestHandleScanSelectsParticipant(t *testing.T) {
	m, _ := newTestModel(t)
	cleo := m.Participants[2]

	m = press(m, "/", "a", "d", "a", "enter")
	next, _ := m.Update(ScanDoneMsg{Result: &sync.ScanResult{
		EventID:       m.Event.ID,
		RegformID:     m.Regform.ID,
		ParticipantID: cleo.ID,
		Offline:       true,
	}})
	m = next.(Model)

	if m.Filter != "" {
		t.Errorf("filter hiding the scanned participant was kept: %q", m.Filter)
	}
	if p, ok := m.selected(); !ok || p.ID != cleo.ID {
		t.Errorf("selected = %q, want Cleo Park", p.FullName)
	}
	if m.Status != "Participant found (offline)" || m.StatusIsErr {
		t.Errorf("status = %q err=%v", m.Status, m.StatusIsErr)
	}

	// A rejected scan changes nothing; the reason arrives as a notice
	next, cmd := m.Update(ScanDoneMsg{})
	if cmd != nil || next.(Model).Status != m.Status {
		t.Error("rejected scan touched the model")
	}
}

func TestHandleScanOtherForm(t *testing.T) {
	m, _ := newTestModel(t)

	next, _ := m.Update(ScanDoneMsg{Result: &sync.ScanResult{
		Path:          "/event/1/99/5",
		RegformID:     99,
		ParticipantID: 5,
	}})
	m = next.(Model)
	if !m.StatusIsErr || !strings.Contains(m.Status, "another form") {
		t.Errorf("status = %q err=%v", m.Status, m.StatusIsErr)
	}
}

func TestToggleCheckin(t *testing.T) {
	m, api := newTestModel(t)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	if cmd == nil {
		t.Fatal("c returned no command")
	}
	raw := cmd()
	msg, ok := raw.(MutationDoneMsg)
	if !ok {
		t.Fatalf("command returned %T", raw)
	}
	if msg.Err != nil || msg.Outcome != sync.OK {
		t.Fatalf("mutation = %+v", msg)
	}
	if msg.Action != "Checked in" || msg.Name != "Ada Lovelace" {
		t.Errorf("mutation = %+v", msg)
	}
	if !api.Participant(73, 101).CheckedIn {
		t.Error("server not updated")
	}

	next, _ := m.Update(msg)
	m = refresh(t, next.(Model))
	if !m.Participants[0].CheckedIn {
		t.Error("store not updated")
	}
	if m.Regform.CheckedInCount != 1 {
		t.Errorf("CheckedInCount = %d, want 1", m.Regform.CheckedInCount)
	}
	if m.Status != "Checked in: Ada Lovelace" {
		t.Errorf("status = %q", m.Status)
	}
}

func TestNoticeAndStatusClear(t *testing.T) {
	m, _ := newTestModel(t)

	next, _ := m.Update(NoticeMsg{Title: "Could not update check-in status", Detail: "boom"})
	m = next.(Model)
	if m.Status != "Could not update check-in status: boom" || !m.StatusIsErr {
		t.Fatalf("status = %q err=%v", m.Status, m.StatusIsErr)
	}
	seq := m.statusSeq

	m.setStatus("newer", false)
	next, _ = m.Update(ClearStatusMsg{Seq: seq})
	m = next.(Model)
	if m.Status != "newer" {
		t.Errorf("stale clear removed status: %q", m.Status)
	}

	next, _ = m.Update(ClearStatusMsg{Seq: m.statusSeq})
	if next.(Model).Status != "" {
		t.Error("status not cleared")
	}
}

func TestTickSkipsWhileSyncing(t *testing.T) {
	m, _ := newTestModel(t)

	next, _ := m.Update(TickMsg(time.Now()))
	m = next.(Model)
	if !m.Syncing {
		t.Fatal("tick did not start a sync")
	}

	m = press(m, "r")
	if !m.Syncing {
		t.Error("r cleared syncing")
	}

	next, _ = m.Update(SyncDoneMsg{Result: sync.Result{Outcome: sync.OK}})
	m = next.(Model)
	if m.Syncing || m.LastSync.IsZero() {
		t.Errorf("after sync: syncing=%v lastSync=%v", m.Syncing, m.LastSync)
	}
}

func TestView(t *testing.T) {
	m, _ := newTestModel(t)

	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	m = next.(Model)

	view := ansi.Strip(m.View())
	for _, want := range []string{"Conf · Main", "0/3 checked in", "Ada Lovelace", "Cleo Park", "not synced"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
	if strings.Contains(view, "Dan Gone") {
		t.Error("deleted participant rendered")
	}
	if lines := strings.Count(view, "\n") + 1; lines > 20 {
		t.Errorf("view has %d lines for height 20", lines)
	}

	next, _ = m.Update(tea.WindowSizeMsg{Width: 30, Height: 5})
	if !strings.Contains(next.(Model).View(), "terminal too small") {
		t.Error("compact view not used")
	}
}

func TestScrollStart(t *testing.T) {
	tests := []struct {
		cursor, total, height, want int
	}{
		{0, 5, 10, 0},
		{3, 100, 10, 0},
		{20, 100, 10, 15},
		{99, 100, 10, 90},
	}
	for _, tt := range tests {
		if got := scrollStart(tt.cursor, tt.total, tt.height); got != tt.want {
			t.Errorf("scrollStart(%d, %d, %d) = %d, want %d", tt.cursor, tt.total, tt.height, got, tt.want)
		}
	}
}
