package sync

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/marcus/checkin/internal/db"
	"github.com/marcus/checkin/internal/models"
	"github.com/marcus/checkin/internal/syncclient"
)

// eventChanges returns the fields of a local event that differ from the remote copy
func eventChanges(local *models.Event, remote *syncclient.Event) db.Changes {
	changes := db.Changes{}
	if local.Title != remote.Title {
		changes["title"] = remote.Title
	}
	if local.Date != remote.StartDt {
		changes["date"] = remote.StartDt
	}
	return changes
}

// regformChanges returns the fields of a local form that differ from the remote copy
func regformChanges(local *models.Regform, remote *syncclient.Regform) db.Changes {
	changes := db.Changes{}
	if local.Title != remote.Title {
		changes["title"] = remote.Title
	}
	if local.IsOpen != remote.IsOpen {
		changes["is_open"] = remote.IsOpen
	}
	if local.RegistrationCount != remote.RegistrationCount {
		changes["registration_count"] = remote.RegistrationCount
	}
	if local.CheckedInCount != remote.CheckedInCount {
		changes["checked_in_count"] = remote.CheckedInCount
	}
	return changes
}

// participantChanges returns the remote-owned fields that differ. Notes,
// the loading flags and the deleted flag are never part of the result.
func participantChanges(local *models.Participant, remote *syncclient.Participant) db.Changes {
	changes := db.Changes{}
	if local.FullName != remote.FullName {
		changes["full_name"] = remote.FullName
	}
	if local.RegistrationDate != remote.RegistrationDate {
		changes["registration_date"] = remote.RegistrationDate
	}
	if !sameRegistrationData(local.RegistrationData, remote.RegistrationData) {
		changes["registration_data"] = remote.RegistrationData
	}
	if local.CheckinSecret != remote.CheckinSecret {
		changes["checkin_secret"] = remote.CheckinSecret
	}
	if local.CheckedIn != remote.CheckedIn {
		changes["checked_in"] = remote.CheckedIn
	}
	if !sameTime(local.CheckedInDt, remote.CheckedInDt) {
		changes["checked_in_dt"] = remote.CheckedInDt
	}
	if local.OccupiedSlots != remote.OccupiedSlots {
		changes["occupied_slots"] = remote.OccupiedSlots
	}
	for col, value := range paymentChanges(remote) {
		if paymentDiffers(local, remote, col) {
			changes[col] = value
		}
	}
	return changes
}

// paymentChanges returns the full payment field set of a remote registration.
// The server recomputes these together whenever payment status changes.
func paymentChanges(remote *syncclient.Participant) db.Changes {
	return db.Changes{
		"price":           remote.Price,
		"currency":        remote.Currency,
		"formatted_price": remote.FormattedPrice,
		"is_paid":         remote.IsPaid,
		"state":           remote.State,
	}
}

func paymentDiffers(local *models.Participant, remote *syncclient.Participant, col string) bool {
	switch col {
	case "price":
		return local.Price != remote.Price
	case "currency":
		return local.Currency != remote.Currency
	case "formatted_price":
		return local.FormattedPrice != remote.FormattedPrice
	case "is_paid":
		return local.IsPaid != remote.IsPaid
	default:
		return local.State != remote.State
	}
}

// newParticipant builds the local record for a participant first seen remotely
func newParticipant(regformID int64, remote *syncclient.Participant) *models.Participant {
	return &models.Participant{
		RemoteID:         remote.ID,
		RegformID:        regformID,
		FullName:         remote.FullName,
		RegistrationDate: remote.RegistrationDate,
		RegistrationData: remote.RegistrationData,
		State:            remote.State,
		CheckinSecret:    remote.CheckinSecret,
		CheckedIn:        remote.CheckedIn,
		CheckedInDt:      remote.CheckedInDt,
		OccupiedSlots:    remote.OccupiedSlots,
		Price:            remote.Price,
		Currency:         remote.Currency,
		FormattedPrice:   remote.FormattedPrice,
		IsPaid:           remote.IsPaid,
	}
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// sameRegistrationData compares the encoded forms, which is what the store keeps
func sameRegistrationData(a, b models.RegistrationData) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	ea, errA := json.Marshal(a)
	eb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ea, eb)
}
