package sync

import (
	"context"
	"errors"
	"log/slog"

	"github.com/marcus/checkin/internal/db"
	"github.com/marcus/checkin/internal/models"
	"github.com/marcus/checkin/internal/qrcode"
)

// ScanResult asks the caller to navigate to a scanned entity
type ScanResult struct {
	Path          string
	EventID       int64
	RegformID     int64
	ParticipantID int64
	// AutoCheckin is carried through from the scan so the participant view
	// can check the participant in on arrival.
	AutoCheckin bool
	// Offline is set when the participant came from the local cache because
	// the server was unreachable.
	Offline bool
}

// rejected reports a rejection returned from a transaction. It returns
// false for any other error.
func (n notifier) rejected(err error) bool {
	var r *Rejection
	if !errors.As(err, &r) {
		return false
	}
	n.reject(r)
	return true
}

// ScanEvent ingests an event QR code. The event and its form are created
// when new, and refreshed and undeleted when known: a rescan is the only
// way a soft-deleted event comes back. A nil result means the scan was
// rejected and reported.
func (g *Gateway) ScanEvent(ctx context.Context, payload *qrcode.EventPayload) (*ScanResult, error) {
	server, err := g.store.GetServerByURL(ctx, payload.Server.BaseURL)
	if err != nil {
		return nil, err
	}
	if server == nil || server.AuthToken == "" {
		g.reject(unauthorizedServer(models.NormalizeBaseURL(payload.Server.BaseURL)))
		return nil, nil
	}

	res := &ScanResult{}
	err = g.store.Update(ctx, func(tx *db.Tx) error {
		event, err := tx.GetEventByRemote(ctx, server.ID, payload.EventID)
		if err != nil {
			return err
		}
		if event == nil {
			res.EventID, err = tx.AddEvent(ctx, &models.Event{
				RemoteID: payload.EventID,
				ServerID: server.ID,
				BaseURL:  server.BaseURL,
				Title:    payload.Title,
				Date:     payload.Date,
			})
			if err != nil {
				return err
			}
		} else {
			res.EventID = event.ID
			err = tx.BulkUpdate(ctx, models.KindEvent, []db.Update{{ID: event.ID, Changes: db.Changes{
				"title":   payload.Title,
				"date":    payload.Date,
				"deleted": false,
			}}})
			if err != nil {
				return err
			}
		}

		regform, err := tx.GetRegformByRemote(ctx, res.EventID, payload.RegformID)
		if err != nil {
			return err
		}
		if regform == nil {
			res.RegformID, err = tx.AddRegform(ctx, &models.Regform{
				RemoteID: payload.RegformID,
				EventID:  res.EventID,
				Title:    payload.RegformTitle,
			})
			return err
		}
		res.RegformID = regform.ID
		return tx.BulkUpdate(ctx, models.KindRegform, []db.Update{{ID: regform.ID, Changes: db.Changes{
			"title":   payload.RegformTitle,
			"deleted": false,
		}}})
	})
	if err != nil {
		return nil, err
	}

	res.Path = models.RegformPath(res.EventID, res.RegformID)
	slog.Info("event scanned", "event", res.EventID, "regform", res.RegformID)
	return res, nil
}

// ScanParticipant ingests a participant QR code. The ticket is resolved on
// the server and the participant is created or refreshed under its known
// event and form. When the server is unreachable the scan falls back to
// the local cache. A nil result means the scan was rejected, aborted or
// failed and has already been reported.
func (g *Gateway) ScanParticipant(ctx context.Context, payload *qrcode.ParticipantPayload, autoCheckin bool) (*ScanResult, error) {
	server, err := g.store.GetServerByURL(ctx, payload.ServerURL)
	if err != nil {
		return nil, err
	}
	if server == nil {
		g.reject(ErrUnknownServer)
		return nil, nil
	}

	remote, err := g.dial(server).GetTicket(ctx, payload.CheckinSecret)
	switch Classify(err) {
	case OK:
	case NotFound:
		g.reject(ErrTicketNotFound)
		return nil, nil
	case NetworkFailure:
		slog.Debug("server unreachable, looking up ticket locally", "err", err)
		return g.scanOffline(ctx, server, payload.CheckinSecret, autoCheckin)
	default:
		g.settle("Could not look up the ticket", err)
		return nil, nil
	}

	res := &ScanResult{AutoCheckin: autoCheckin}
	err = apply(ctx, g.store, func(ctx context.Context, tx *db.Tx) error {
		event, err := tx.GetEventByRemote(ctx, server.ID, remote.EventID)
		if err != nil {
			return err
		}
		if event == nil || event.Deleted {
			return ErrOrphanedParticipant
		}
		regform, err := tx.GetRegformByRemote(ctx, event.ID, remote.RegformID)
		if err != nil {
			return err
		}
		if regform == nil || regform.Deleted {
			return ErrRegformMissing
		}
		res.EventID, res.RegformID = event.ID, regform.ID

		existing, err := tx.GetParticipantByRemote(ctx, regform.ID, remote.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			res.ParticipantID, err = tx.AddParticipant(ctx, newParticipant(regform.ID, remote))
			return err
		}

		res.ParticipantID = existing.ID
		changes := participantChanges(existing, remote)
		if existing.Deleted {
			changes["deleted"] = false
		}
		return tx.BulkUpdate(ctx, models.KindParticipant, []db.Update{{ID: existing.ID, Changes: changes}})
	})
	if err != nil {
		if g.rejected(err) {
			return nil, nil
		}
		return nil, err
	}

	scanned := models.Participant{ID: res.ParticipantID, RegformID: res.RegformID}
	res.Path = scanned.Path(res.EventID)
	slog.Info("participant scanned", "participant", res.ParticipantID, "auto_checkin", autoCheckin)
	return res, nil
}

// scanOffline resolves a ticket from the local cache, limited to live
// participants of the scanned server.
func (g *Gateway) scanOffline(ctx context.Context, server *models.Server, secret string, autoCheckin bool) (*ScanResult, error) {
	hits, err := g.store.FindParticipantsBySecret(ctx, secret)
	if err != nil {
		return nil, err
	}
	for i := range hits {
		p := &hits[i]
		regform, err := g.store.GetRegform(ctx, p.RegformID)
		if err != nil {
			return nil, err
		}
		if regform == nil || regform.Deleted {
			continue
		}
		event, err := g.store.GetEvent(ctx, regform.EventID)
		if err != nil {
			return nil, err
		}
		if event == nil || event.Deleted || event.ServerID != server.ID {
			continue
		}
		return &ScanResult{
			Path:          p.Path(event.ID),
			EventID:       event.ID,
			RegformID:     regform.ID,
			ParticipantID: p.ID,
			AutoCheckin:   autoCheckin,
			Offline:       true,
		}, nil
	}
	g.reject(ErrOfflineUnknown)
	return nil, nil
}

// CheckInScanned performs the automatic check-in a scan asked for. It does
// nothing unless the scan carried AutoCheckin and the participant is not
// checked in yet.
func (g *Gateway) CheckInScanned(ctx context.Context, res *ScanResult, onSound func()) (Outcome, error) {
	if res == nil || !res.AutoCheckin || res.ParticipantID == 0 {
		return OK, nil
	}
	p, err := g.store.GetParticipant(ctx, res.ParticipantID)
	if err != nil || p == nil || p.CheckedIn || p.Deleted {
		return OK, err
	}
	regform, err := g.store.GetRegform(ctx, p.RegformID)
	if err != nil || regform == nil {
		return OK, err
	}
	event, err := g.store.GetEvent(ctx, regform.EventID)
	if err != nil || event == nil {
		return OK, err
	}
	return g.SetCheckedIn(ctx, event, regform, p, true, onSound)
}
