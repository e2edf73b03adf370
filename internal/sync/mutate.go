package sync

import (
	"context"
	"log/slog"

	"github.com/marcus/checkin/internal/db"
	"github.com/marcus/checkin/internal/models"
	"github.com/marcus/checkin/internal/syncclient"
)

// Gateway performs user initiated changes on the server and mirrors the
// server's answer into the store. The store is never changed optimistically:
// only a loading flag is set while the request is in flight.
type Gateway struct {
	store *db.DB
	dial  Dialer
	notifier
}

// NewGateway creates a mutation gateway. report may be nil.
func NewGateway(store *db.DB, dial Dialer, report Reporter) *Gateway {
	return &Gateway{store: store, dial: dial, notifier: notifier{report: report}}
}

// mutation describes one remote change of a participant
type mutation struct {
	title   string
	loading string
	call    func(ctx context.Context, api API) (*syncclient.Participant, error)
	changes func(remote *syncclient.Participant) db.Changes
}

// SetCheckedIn checks a participant in or out. On success the form's
// checked-in count moves by the participant's occupied slots and onSound,
// if set, runs once for a check-in. On failure only the loading flag is
// cleared.
func (g *Gateway) SetCheckedIn(ctx context.Context, event *models.Event, regform *models.Regform, participant *models.Participant, checkedIn bool, onSound func()) (Outcome, error) {
	m := mutation{
		title:   "Could not update check-in status",
		loading: "checked_in_loading",
		call: func(ctx context.Context, api API) (*syncclient.Participant, error) {
			return api.CheckIn(ctx, event.RemoteID, regform.RemoteID, participant.RemoteID, checkedIn)
		},
		changes: func(remote *syncclient.Participant) db.Changes {
			return db.Changes{
				"checked_in":    remote.CheckedIn,
				"checked_in_dt": remote.CheckedInDt,
			}
		},
	}

	var transitioned bool
	outcome, err := g.run(ctx, event, participant, m, func(ctx context.Context, tx *db.Tx, fresh *models.Participant, remote *syncclient.Participant) error {
		if fresh.CheckedIn == remote.CheckedIn {
			return nil
		}
		transitioned = remote.CheckedIn
		delta := fresh.OccupiedSlots
		if !remote.CheckedIn {
			delta = -delta
		}
		return tx.AdjustCheckedInCount(ctx, fresh.RegformID, delta)
	})
	if err == nil && outcome == OK && transitioned && onSound != nil {
		onSound()
	}
	return outcome, err
}

// SetPaid marks a participant paid or unpaid. The server recomputes the
// registration state along with the payment fields, so all of them are
// taken from its answer.
func (g *Gateway) SetPaid(ctx context.Context, event *models.Event, regform *models.Regform, participant *models.Participant, paid bool) (Outcome, error) {
	m := mutation{
		title:   "Could not update payment status",
		loading: "is_paid_loading",
		call: func(ctx context.Context, api API) (*syncclient.Participant, error) {
			return api.SetPaid(ctx, event.RemoteID, regform.RemoteID, participant.RemoteID, paid)
		},
		changes: paymentChanges,
	}
	return g.run(ctx, event, participant, m, nil)
}

// run drives a mutation: set the loading flag, call the server, then apply
// the answer (or just clear the flag) in one transaction.
func (g *Gateway) run(ctx context.Context, event *models.Event, participant *models.Participant, m mutation,
	after func(ctx context.Context, tx *db.Tx, fresh *models.Participant, remote *syncclient.Participant) error) (Outcome, error) {

	if ctx.Err() != nil {
		return Aborted, nil
	}
	api, err := connect(ctx, g.store, g.dial, event.ServerID)
	if err != nil {
		return OtherFailure, err
	}

	err = g.store.Update(ctx, func(tx *db.Tx) error {
		return tx.BulkUpdate(ctx, models.KindParticipant, []db.Update{
			{ID: participant.ID, Changes: db.Changes{m.loading: true}},
		})
	})
	if err != nil {
		return OtherFailure, err
	}

	remote, callErr := m.call(ctx, api)
	outcome := Classify(callErr)

	err = apply(ctx, g.store, func(ctx context.Context, tx *db.Tx) error {
		changes := db.Changes{m.loading: false}

		fresh, err := tx.GetParticipant(ctx, participant.ID)
		if err != nil {
			return err
		}
		if fresh == nil {
			return nil
		}

		switch outcome {
		case OK:
			for col, v := range m.changes(remote) {
				changes[col] = v
			}
			if after != nil {
				if err := after(ctx, tx, fresh, remote); err != nil {
					return err
				}
			}
		case NotFound:
			changes["deleted"] = true
		}
		return tx.BulkUpdate(ctx, models.KindParticipant, []db.Update{{ID: fresh.ID, Changes: changes}})
	})
	if err != nil {
		return outcome, err
	}

	switch outcome {
	case OK:
		slog.Debug("participant updated", "participant", participant.ID, "field", m.loading)
	case NotFound:
		slog.Info("participant removed on server", "participant", participant.ID, "remote_id", participant.RemoteID)
	case Aborted:
	default:
		// Mutations are not queued, so an unreachable server is reported too
		slog.Error(m.title, "err", callErr)
		if g.report != nil {
			g.report.Report(m.title, detail(callErr))
		}
	}
	return outcome, nil
}

// SetNotes stores local notes for a participant. Notes never leave the
// device and no sync overwrites them.
func (g *Gateway) SetNotes(ctx context.Context, participantID int64, notes string) error {
	return g.store.Update(ctx, func(tx *db.Tx) error {
		return tx.SetParticipantNotes(ctx, participantID, notes)
	})
}
