// Package monitor is the check-in desk TUI: a live participant list for one
// registration form that accepts scanned QR payloads and toggles check-in
// and payment.
package monitor

import (
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/marcus/checkin/internal/db"
	"github.com/marcus/checkin/internal/models"
	"github.com/marcus/checkin/internal/sync"
	"github.com/marcus/checkin/internal/version"
)

// Options configures a monitor
type Options struct {
	DB          *db.DB
	Dialer      sync.Dialer
	Event       *models.Event
	Regform     *models.Regform
	Interval    time.Duration
	AutoCheckin bool
	// Bell runs after a successful check-in when sound is enabled
	Bell    func()
	Version string
}

// Model is the main Bubble Tea model for the monitor TUI
type Model struct {
	DB         *db.DB
	Reconciler *sync.Reconciler
	Gateway    *sync.Gateway

	Event        *models.Event
	Regform      *models.Regform
	Participants []models.Participant

	// Window dimensions
	Width  int
	Height int

	// UI state
	Mode        Mode
	Cursor      int
	SelectedID  int64 // preserved across refresh
	ScanInput   textinput.Model
	FilterInput textinput.Model
	Filter      string
	Syncing     bool
	LastRefresh time.Time
	LastSync    time.Time

	// Status bar
	Status      string
	StatusIsErr bool
	statusSeq   int

	Interval    time.Duration
	AutoCheckin bool
	Bell        func()

	Version         string
	UpdateAvailable *version.UpdateAvailableMsg

	notices chan NoticeMsg
}

// NewModel creates a monitor for one registration form
func NewModel(opts Options) Model {
	scan := textinput.New()
	scan.Placeholder = "paste or scan a QR payload"
	scan.Prompt = "scan> "
	scan.CharLimit = 4096

	filter := textinput.New()
	filter.Placeholder = "name"
	filter.Prompt = "/"

	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}

	notices := make(chan NoticeMsg, 16)
	report := sync.ReporterFunc(func(title, detail string) {
		// Reports come from command goroutines; drop rather than block if
		// the UI is not keeping up
		select {
		case notices <- NoticeMsg{Title: title, Detail: detail}:
		default:
		}
	})

	return Model{
		DB:          opts.DB,
		Reconciler:  sync.NewReconciler(opts.DB, opts.Dialer, report),
		Gateway:     sync.NewGateway(opts.DB, opts.Dialer, report),
		Event:       opts.Event,
		Regform:     opts.Regform,
		ScanInput:   scan,
		FilterInput: filter,
		Interval:    opts.Interval,
		AutoCheckin: opts.AutoCheckin,
		Bell:        opts.Bell,
		Version:     opts.Version,
		notices:     notices,
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.fetchData(),
		m.syncForm(),
		m.scheduleTick(),
		m.waitForNotice(),
		version.CheckAsync(m.Version),
	)
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		m.ScanInput.Width = max(msg.Width-8, 10)
		m.clampCursor()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case TickMsg:
		if m.Syncing {
			return m, m.scheduleTick()
		}
		m.Syncing = true
		return m, tea.Batch(m.syncForm(), m.scheduleTick())

	case RefreshDataMsg:
		if msg.Err != nil {
			return m, m.setStatus("Could not read the store: "+msg.Err.Error(), true)
		}
		if msg.Regform != nil {
			m.Regform = msg.Regform
		}
		m.Participants = msg.Participants
		m.LastRefresh = msg.Timestamp
		m.restoreCursor()
		return m, nil

	case SyncDoneMsg:
		m.Syncing = false
		if msg.Err != nil {
			return m, tea.Batch(m.fetchData(), m.setStatus("Sync failed: "+msg.Err.Error(), true))
		}
		if msg.Result.Outcome == sync.OK {
			m.LastSync = time.Now()
		}
		return m, m.fetchData()

	case ScanDoneMsg:
		return m.handleScan(msg)

	case MutationDoneMsg:
		cmds := []tea.Cmd{m.fetchData()}
		switch {
		case msg.Err != nil:
			cmds = append(cmds, m.setStatus(msg.Action+" failed: "+msg.Err.Error(), true))
		case msg.Outcome == sync.OK:
			cmds = append(cmds, m.setStatus(msg.Action+": "+msg.Name, false))
		}
		return m, tea.Batch(cmds...)

	case NoticeMsg:
		text := msg.Title
		if msg.Detail != "" {
			text += ": " + msg.Detail
		}
		return m, tea.Batch(m.setStatus(text, true), m.waitForNotice())

	case ClearStatusMsg:
		if msg.Seq == m.statusSeq {
			m.Status = ""
			m.StatusIsErr = false
		}
		return m, nil

	case version.UpdateAvailableMsg:
		m.UpdateAvailable = &msg
		return m, nil
	}

	return m, nil
}

// setStatus shows a message in the status bar and clears it later
func (m *Model) setStatus(text string, isErr bool) tea.Cmd {
	m.statusSeq++
	m.Status = text
	m.StatusIsErr = isErr
	seq := m.statusSeq
	return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
		return ClearStatusMsg{Seq: seq}
	})
}

func (m Model) scheduleTick() tea.Cmd {
	return tea.Tick(m.Interval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m Model) waitForNotice() tea.Cmd {
	notices := m.notices
	return func() tea.Msg {
		return <-notices
	}
}
