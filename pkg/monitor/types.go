package monitor

import (
	"time"

	"github.com/marcus/checkin/internal/models"
	"github.com/marcus/checkin/internal/sync"
)

// Minimum dimensions for the monitor
const (
	MinWidth  = 40
	MinHeight = 10
)

// Mode is what keystrokes currently go to
type Mode int

const (
	ModeList Mode = iota
	ModeScan
	ModeFilter
)

// TickMsg triggers a periodic sync
type TickMsg time.Time

// RefreshDataMsg carries the form and its participants read from the store
type RefreshDataMsg struct {
	Regform      *models.Regform
	Participants []models.Participant
	Timestamp    time.Time
	Err          error
}

// SyncDoneMsg is sent when a background sync of the form finished
type SyncDoneMsg struct {
	Result sync.Result
	Err    error
}

// ScanDoneMsg is sent when a scanned payload was ingested. Result is nil
// when the scan was rejected; the reason arrives as a NoticeMsg.
type ScanDoneMsg struct {
	Result *sync.ScanResult
	Err    error
}

// MutationDoneMsg is sent when a check-in or payment toggle finished
type MutationDoneMsg struct {
	Action  string
	Name    string
	Outcome sync.Outcome
	Err     error
}

// NoticeMsg carries a failure reported by the sync engine
type NoticeMsg struct {
	Title  string
	Detail string
}

// ClearStatusMsg clears the status bar if it still shows the same message
type ClearStatusMsg struct {
	Seq int
}
