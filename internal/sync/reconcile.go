// Package sync keeps the local store in step with a server's check-in API.
//
// Every operation follows the same shape: fetch remote state (cancellable,
// outside any transaction), then open one store transaction that reads a
// fresh local snapshot, diffs it against the remote state and applies the
// result. Expected remote failures are classified and reported; only store
// failures are returned as errors.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/marcus/checkin/internal/db"
	"github.com/marcus/checkin/internal/models"
	"github.com/marcus/checkin/internal/syncclient"
)

// API is the part of a server's check-in API the sync engine uses
type API interface {
	GetEvent(ctx context.Context, eventID int64) (*syncclient.Event, error)
	ListRegforms(ctx context.Context, eventID int64) ([]syncclient.Regform, error)
	GetRegform(ctx context.Context, eventID, regformID int64) (*syncclient.Regform, error)
	ListParticipants(ctx context.Context, eventID, regformID int64) ([]syncclient.Participant, error)
	GetParticipant(ctx context.Context, eventID, regformID, participantID int64) (*syncclient.Participant, error)
	CheckIn(ctx context.Context, eventID, regformID, participantID int64, checkedIn bool) (*syncclient.Participant, error)
	SetPaid(ctx context.Context, eventID, regformID, participantID int64, paid bool) (*syncclient.Participant, error)
	GetTicket(ctx context.Context, secret string) (*syncclient.Participant, error)
}

// Dialer returns an API client authenticated for a server
type Dialer func(server *models.Server) API

// HTTPDialer dials servers over HTTP with the given request timeout
func HTTPDialer(timeout time.Duration) Dialer {
	return func(server *models.Server) API {
		return syncclient.New(server.BaseURL, server.AuthToken, timeout)
	}
}

// Result summarizes one sync operation
type Result struct {
	Outcome  Outcome
	Inserted int
	Updated  int
	Deleted  int
}

// Add folds another result into r, keeping the first failure outcome
func (r *Result) Add(other Result) {
	r.Inserted += other.Inserted
	r.Updated += other.Updated
	r.Deleted += other.Deleted
	if r.Outcome == OK {
		r.Outcome = other.Outcome
	}
}

func (r Result) String() string {
	return fmt.Sprintf("%s: %d new, %d updated, %d deleted", r.Outcome, r.Inserted, r.Updated, r.Deleted)
}

// Reconciler pulls remote state into the store. Sync units are independent
// and may run concurrently.
type Reconciler struct {
	store *db.DB
	dial  Dialer
	notifier
}

// NewReconciler creates a reconciler. report may be nil.
func NewReconciler(store *db.DB, dial Dialer, report Reporter) *Reconciler {
	return &Reconciler{store: store, dial: dial, notifier: notifier{report: report}}
}

// connect returns an API client for the server owning an event
func (r *Reconciler) connect(ctx context.Context, serverID int64) (API, error) {
	return connect(ctx, r.store, r.dial, serverID)
}

func connect(ctx context.Context, store *db.DB, dial Dialer, serverID int64) (API, error) {
	server, err := store.GetServer(ctx, serverID)
	if err != nil {
		return nil, err
	}
	if server == nil {
		return nil, fmt.Errorf("server %d does not exist", serverID)
	}
	return dial(server), nil
}

// apply runs the write step of an operation. Once the fetch is done the
// write is not cancellable, so a cancelled caller never leaves a half
// applied diff behind.
func apply(ctx context.Context, store *db.DB, fn func(ctx context.Context, tx *db.Tx) error) error {
	ctx = context.WithoutCancel(ctx)
	return store.Update(ctx, func(tx *db.Tx) error {
		return fn(ctx, tx)
	})
}

// SyncEvent refreshes the event detail. A missing remote event soft-deletes
// the event and everything under it.
func (r *Reconciler) SyncEvent(ctx context.Context, event *models.Event) (Result, error) {
	api, err := r.connect(ctx, event.ServerID)
	if err != nil {
		return Result{}, err
	}

	remote, err := api.GetEvent(ctx, event.RemoteID)
	if err != nil {
		if Classify(err) == NotFound {
			return r.deleteEvent(ctx, event)
		}
		return Result{Outcome: r.settle("Could not sync the event", err)}, nil
	}

	var res Result
	err = apply(ctx, r.store, func(ctx context.Context, tx *db.Tx) error {
		fresh, err := tx.GetEvent(ctx, event.ID)
		if err != nil || fresh == nil {
			return err
		}
		changes := eventChanges(fresh, remote)
		if len(changes) == 0 {
			return nil
		}
		res.Updated++
		return tx.BulkUpdate(ctx, models.KindEvent, []db.Update{{ID: fresh.ID, Changes: changes}})
	})
	return res, err
}

func (r *Reconciler) deleteEvent(ctx context.Context, event *models.Event) (Result, error) {
	res := Result{Outcome: NotFound}
	err := apply(ctx, r.store, func(ctx context.Context, tx *db.Tx) error {
		n, err := tx.CascadeSoftDeleteEvent(ctx, event.ID)
		res.Deleted = int(n)
		return err
	})
	if err == nil {
		slog.Info("event removed on server", "event", event.ID, "remote_id", event.RemoteID)
	}
	return res, err
}

func (r *Reconciler) deleteRegform(ctx context.Context, regform *models.Regform) (Result, error) {
	res := Result{Outcome: NotFound}
	err := apply(ctx, r.store, func(ctx context.Context, tx *db.Tx) error {
		n, err := tx.CascadeSoftDeleteRegform(ctx, regform.ID)
		res.Deleted = int(n)
		return err
	})
	if err == nil {
		slog.Info("registration form removed on server", "regform", regform.ID, "remote_id", regform.RemoteID)
	}
	return res, err
}

// SyncRegforms reconciles the event's registration forms. Forms missing
// remotely are soft-deleted and known forms are updated. Forms that only
// exist remotely are left alone: forms enter the store through a scanned
// event code, never through a list sync.
func (r *Reconciler) SyncRegforms(ctx context.Context, event *models.Event) (Result, error) {
	api, err := r.connect(ctx, event.ServerID)
	if err != nil {
		return Result{}, err
	}

	remote, err := api.ListRegforms(ctx, event.RemoteID)
	if err != nil {
		if Classify(err) == NotFound {
			return r.deleteEvent(ctx, event)
		}
		return Result{Outcome: r.settle("Could not sync the registration forms", err)}, nil
	}

	var res Result
	err = apply(ctx, r.store, func(ctx context.Context, tx *db.Tx) error {
		local, err := tx.ListRegforms(ctx, event.ID, true)
		if err != nil {
			return err
		}

		d := Split(local, remote,
			func(l models.Regform) int64 { return l.RemoteID },
			func(r syncclient.Regform) int64 { return r.ID })

		for _, l := range d.OnlyLocal {
			n, err := tx.CascadeSoftDeleteRegform(ctx, l.ID)
			if err != nil {
				return err
			}
			res.Deleted += int(n)
		}

		var updates []db.Update
		for _, p := range d.Paired {
			if changes := regformChanges(&p.Local, &p.Remote); len(changes) > 0 {
				updates = append(updates, db.Update{ID: p.Local.ID, Changes: changes})
			}
		}
		res.Updated = len(updates)

		if len(d.OnlyRemote) > 0 {
			slog.Debug("ignoring registration forms not introduced by a scan", "event", event.ID, "count", len(d.OnlyRemote))
		}
		return tx.BulkUpdate(ctx, models.KindRegform, updates)
	})
	return res, err
}

// SyncRegform refreshes a single registration form
func (r *Reconciler) SyncRegform(ctx context.Context, event *models.Event, regform *models.Regform) (Result, error) {
	api, err := r.connect(ctx, event.ServerID)
	if err != nil {
		return Result{}, err
	}

	remote, err := api.GetRegform(ctx, event.RemoteID, regform.RemoteID)
	if err != nil {
		if Classify(err) == NotFound {
			return r.deleteRegform(ctx, regform)
		}
		return Result{Outcome: r.settle("Could not sync the registration form", err)}, nil
	}

	var res Result
	err = apply(ctx, r.store, func(ctx context.Context, tx *db.Tx) error {
		fresh, err := tx.GetRegform(ctx, regform.ID)
		if err != nil || fresh == nil {
			return err
		}
		changes := regformChanges(fresh, remote)
		if len(changes) == 0 {
			return nil
		}
		res.Updated++
		return tx.BulkUpdate(ctx, models.KindRegform, []db.Update{{ID: fresh.ID, Changes: changes}})
	})
	return res, err
}

// SyncParticipants reconciles the participants of a registration form.
// Unlike forms, participants seen only remotely are inserted.
func (r *Reconciler) SyncParticipants(ctx context.Context, event *models.Event, regform *models.Regform) (Result, error) {
	api, err := r.connect(ctx, event.ServerID)
	if err != nil {
		return Result{}, err
	}

	remote, err := api.ListParticipants(ctx, event.RemoteID, regform.RemoteID)
	if err != nil {
		if Classify(err) == NotFound {
			return r.deleteRegform(ctx, regform)
		}
		return Result{Outcome: r.settle("Could not sync the participants", err)}, nil
	}

	var res Result
	err = apply(ctx, r.store, func(ctx context.Context, tx *db.Tx) error {
		// The form may have been deleted while the list was in flight
		parent, err := tx.GetRegform(ctx, regform.ID)
		if err != nil || parent == nil || parent.Deleted {
			return err
		}

		local, err := tx.ListParticipants(ctx, regform.ID, true)
		if err != nil {
			return err
		}

		d := Split(local, remote,
			func(l models.Participant) int64 { return l.RemoteID },
			func(r syncclient.Participant) int64 { return r.ID })

		var updates []db.Update
		for _, l := range d.OnlyLocal {
			if !l.Deleted {
				updates = append(updates, db.Update{ID: l.ID, Changes: db.Changes{"deleted": true}})
				res.Deleted++
			}
		}
		for _, p := range d.Paired {
			if changes := participantChanges(&p.Local, &p.Remote); len(changes) > 0 {
				updates = append(updates, db.Update{ID: p.Local.ID, Changes: changes})
				res.Updated++
			}
		}
		if err := tx.BulkUpdate(ctx, models.KindParticipant, updates); err != nil {
			return err
		}

		for i := range d.OnlyRemote {
			if _, err := tx.AddParticipant(ctx, newParticipant(regform.ID, &d.OnlyRemote[i])); err != nil {
				return err
			}
			res.Inserted++
		}
		return nil
	})
	return res, err
}

// SyncParticipant refreshes a single participant, keeping its notes
func (r *Reconciler) SyncParticipant(ctx context.Context, event *models.Event, regform *models.Regform, participant *models.Participant) (Result, error) {
	api, err := r.connect(ctx, event.ServerID)
	if err != nil {
		return Result{}, err
	}

	remote, err := api.GetParticipant(ctx, event.RemoteID, regform.RemoteID, participant.RemoteID)
	notFound := Classify(err) == NotFound
	if err != nil && !notFound {
		return Result{Outcome: r.settle("Could not sync the participant", err)}, nil
	}

	var res Result
	err = apply(ctx, r.store, func(ctx context.Context, tx *db.Tx) error {
		fresh, err := tx.GetParticipant(ctx, participant.ID)
		if err != nil || fresh == nil {
			return err
		}

		changes := db.Changes{}
		if notFound {
			res.Outcome = NotFound
			if fresh.Deleted {
				return nil
			}
			changes["deleted"] = true
			res.Deleted++
		} else {
			changes = participantChanges(fresh, remote)
			if len(changes) == 0 {
				return nil
			}
			res.Updated++
		}
		return tx.BulkUpdate(ctx, models.KindParticipant, []db.Update{{ID: fresh.ID, Changes: changes}})
	})
	return res, err
}

// SyncTree syncs an event and everything under it in the usual order:
// event, forms, then each live form's participants. It stops early when the
// event is gone or the server cannot be reached. Finished runs are added to
// the sync history; aborted ones are not.
func (r *Reconciler) SyncTree(ctx context.Context, event *models.Event) (Result, error) {
	total, err := r.syncTree(ctx, event)
	if err != nil || total.Outcome == Aborted {
		return total, err
	}
	err = apply(ctx, r.store, func(ctx context.Context, tx *db.Tx) error {
		return tx.RecordSyncHistory(ctx, &db.SyncHistoryEntry{
			EventID:  event.ID,
			Outcome:  total.Outcome.String(),
			Inserted: total.Inserted,
			Updated:  total.Updated,
			Deleted:  total.Deleted,
		})
	})
	return total, err
}

func (r *Reconciler) syncTree(ctx context.Context, event *models.Event) (Result, error) {
	total, err := r.SyncEvent(ctx, event)
	if err != nil || total.Outcome != OK {
		return total, err
	}

	res, err := r.SyncRegforms(ctx, event)
	total.Add(res)
	if err != nil || res.Outcome != OK {
		return total, err
	}

	regforms, err := r.store.ListRegforms(ctx, event.ID, false)
	if err != nil {
		return total, err
	}
	for i := range regforms {
		res, err := r.SyncParticipants(ctx, event, &regforms[i])
		total.Add(res)
		if err != nil {
			return total, err
		}
		if res.Outcome == Aborted || res.Outcome == NetworkFailure {
			break
		}
	}
	return total, nil
}
