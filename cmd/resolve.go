package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/marcus/checkin/internal/db"
	"github.com/marcus/checkin/internal/models"
)

// parseID accepts a local id with or without a leading '#'
func parseID(kind, arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(arg), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", kind, arg)
	}
	return id, nil
}

func resolveEvent(ctx context.Context, store *db.DB, arg string) (*models.Event, error) {
	id, err := parseID("event", arg)
	if err != nil {
		return nil, err
	}
	event, err := store.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, fmt.Errorf("event #%d not found", id)
	}
	return event, nil
}

// resolveRegform looks a form up by id and checks that it belongs to event
func resolveRegform(ctx context.Context, store *db.DB, event *models.Event, arg string) (*models.Regform, error) {
	id, err := parseID("registration form", arg)
	if err != nil {
		return nil, err
	}
	regform, err := store.GetRegform(ctx, id)
	if err != nil {
		return nil, err
	}
	if regform == nil || regform.EventID != event.ID {
		return nil, fmt.Errorf("registration form #%d not found in event #%d", id, event.ID)
	}
	return regform, nil
}

// resolveParticipant loads a participant together with its form and event
func resolveParticipant(ctx context.Context, store *db.DB, arg string) (*models.Event, *models.Regform, *models.Participant, error) {
	id, err := parseID("participant", arg)
	if err != nil {
		return nil, nil, nil, err
	}
	p, err := store.GetParticipant(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}
	if p == nil {
		return nil, nil, nil, fmt.Errorf("participant #%d not found", id)
	}
	regform, err := store.GetRegform(ctx, p.RegformID)
	if err != nil {
		return nil, nil, nil, err
	}
	if regform == nil {
		return nil, nil, nil, fmt.Errorf("registration form #%d of participant #%d not found", p.RegformID, id)
	}
	event, err := store.GetEvent(ctx, regform.EventID)
	if err != nil {
		return nil, nil, nil, err
	}
	if event == nil {
		return nil, nil, nil, fmt.Errorf("event #%d of participant #%d not found", regform.EventID, id)
	}
	return event, regform, p, nil
}
