package models

import (
	"fmt"
	"strings"
	"time"
)

// Kind identifies one of the locally mirrored entity kinds
type Kind string

const (
	KindServer      Kind = "servers"
	KindEvent       Kind = "events"
	KindRegform     Kind = "regforms"
	KindParticipant Kind = "participants"
)

// Table returns the store table holding entities of this kind
func (k Kind) Table() string {
	return string(k)
}

// ParticipantState is the registration state reported by the server
type ParticipantState string

const (
	StateComplete  ParticipantState = "complete"
	StatePending   ParticipantState = "pending"
	StateUnpaid    ParticipantState = "unpaid"
	StateRejected  ParticipantState = "rejected"
	StateWithdrawn ParticipantState = "withdrawn"
)

// ParticipantStates lists every known state in display order
var ParticipantStates = []ParticipantState{
	StateComplete,
	StatePending,
	StateUnpaid,
	StateRejected,
	StateWithdrawn,
}

// IsValid reports whether s is a known participant state
func (s ParticipantState) IsValid() bool {
	for _, known := range ParticipantStates {
		if s == known {
			return true
		}
	}
	return false
}

// Server is a registration server the device holds a token for.
// It has no remote id and is never synced.
type Server struct {
	ID        int64     `json:"id"`
	BaseURL   string    `json:"base_url"`
	ClientID  string    `json:"client_id"`
	Scope     string    `json:"scope"`
	AuthToken string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Event is a local mirror of a remote event
type Event struct {
	ID       int64  `json:"id"`
	RemoteID int64  `json:"remote_id"`
	ServerID int64  `json:"server_id"`
	BaseURL  string `json:"base_url"`
	Title    string `json:"title"`
	Date     string `json:"date"`
	Deleted  bool   `json:"deleted"`
}

// Regform is a local mirror of a remote registration form.
// The counters are remote-authoritative and only adjusted locally
// after a confirmed check-in.
type Regform struct {
	ID                int64  `json:"id"`
	RemoteID          int64  `json:"remote_id"`
	EventID           int64  `json:"event_id"`
	Title             string `json:"title"`
	IsOpen            bool   `json:"is_open"`
	RegistrationCount int    `json:"registration_count"`
	CheckedInCount    int    `json:"checked_in_count"`
	Deleted           bool   `json:"deleted"`
}

// Participant is a local mirror of a remote registration.
// Notes and the two loading flags are local only.
type Participant struct {
	ID               int64            `json:"id"`
	RemoteID         int64            `json:"remote_id"`
	RegformID        int64            `json:"regform_id"`
	FullName         string           `json:"full_name"`
	RegistrationDate string           `json:"registration_date"`
	RegistrationData RegistrationData `json:"registration_data"`
	State            ParticipantState `json:"state"`
	CheckinSecret    string           `json:"checkin_secret"`
	CheckedIn        bool             `json:"checked_in"`
	CheckedInDt      *time.Time       `json:"checked_in_dt,omitempty"`
	OccupiedSlots    int              `json:"occupied_slots"`
	Price            float64          `json:"price"`
	Currency         string           `json:"currency"`
	FormattedPrice   string           `json:"formatted_price"`
	IsPaid           bool             `json:"is_paid"`
	Notes            string           `json:"notes"`
	Deleted          bool             `json:"deleted"`
	CheckedInLoading bool             `json:"checked_in_loading"`
	IsPaidLoading    bool             `json:"is_paid_loading"`
}

// Path is the local navigation path of the participant
func (p *Participant) Path(eventID int64) string {
	return fmt.Sprintf("%s/%d", RegformPath(eventID, p.RegformID), p.ID)
}

// RegformPath is the local navigation path of a registration form
func RegformPath(eventID, regformID int64) string {
	return fmt.Sprintf("/event/%d/%d", eventID, regformID)
}

// NormalizeBaseURL trims whitespace and trailing slashes so server URLs
// compare equal regardless of how they were typed or encoded.
func NormalizeBaseURL(u string) string {
	return strings.TrimRight(strings.TrimSpace(u), "/")
}
