package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/marcus/checkin/internal/syncclient"
)

// Outcome classifies how a remote operation ended
type Outcome int

const (
	OK Outcome = iota
	// Aborted means the caller cancelled; nothing is logged or changed.
	Aborted
	// NetworkFailure means the server was unreachable; cached data stays.
	NetworkFailure
	// NotFound means the remote entity is gone and the local copy is soft-deleted.
	NotFound
	// OtherFailure covers auth, server and decoding errors; it is reported.
	OtherFailure
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case Aborted:
		return "aborted"
	case NetworkFailure:
		return "network failure"
	case NotFound:
		return "not found"
	default:
		return "failure"
	}
}

// Classify maps an error returned by the remote API to an Outcome
func Classify(err error) Outcome {
	if err == nil {
		return OK
	}

	var re *syncclient.RequestError
	if errors.As(err, &re) {
		switch {
		case re.Aborted:
			return Aborted
		case re.Network:
			return NetworkFailure
		}
	}

	switch {
	case errors.Is(err, context.Canceled):
		return Aborted
	case errors.Is(err, context.DeadlineExceeded):
		return NetworkFailure
	case errors.Is(err, syncclient.ErrNotFound):
		return NotFound
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return NetworkFailure
	}
	return OtherFailure
}

// Reporter receives failures that the user has to see
type Reporter interface {
	Report(title, detail string)
}

// ReporterFunc adapts a function to Reporter
type ReporterFunc func(title, detail string)

// Report calls f(title, detail)
func (f ReporterFunc) Report(title, detail string) {
	f(title, detail)
}

// Rejection is an expected failure with a user facing title and detail.
// Rejections are reported, never returned.
type Rejection struct {
	Title  string
	Detail string
}

func (r *Rejection) Error() string {
	return r.Title
}

var (
	ErrUnknownServer = &Rejection{
		Title:  "The server of this participant does not exist",
		Detail: "Scan an event QR code first and try again.",
	}
	ErrOrphanedParticipant = &Rejection{
		Title:  "The event of this participant does not exist",
		Detail: "Scan an event QR code first and try again.",
	}
	ErrRegformMissing = &Rejection{
		Title:  "The registration form of this participant does not exist",
		Detail: "Scan an event QR code first and try again.",
	}
	ErrTicketNotFound = &Rejection{
		Title:  "Participant not found",
		Detail: "This ticket does not belong to any registration on the server.",
	}
	ErrOfflineUnknown = &Rejection{
		Title:  "Could not look up the ticket",
		Detail: "The server is unreachable and this participant is not cached on this device.",
	}
)

// unauthorizedServer builds the rejection for a scanned event whose server
// has no stored token.
func unauthorizedServer(baseURL string) *Rejection {
	return &Rejection{
		Title:  "Unknown server",
		Detail: fmt.Sprintf("Add a token for %s with 'checkin server add' and scan again.", baseURL),
	}
}

// notifier logs and reports failures
type notifier struct {
	report Reporter
}

func (n notifier) reject(r *Rejection) {
	slog.Warn(r.Title, "detail", r.Detail)
	if n.report != nil {
		n.report.Report(r.Title, r.Detail)
	}
}

// settle handles a remote failure that did not trigger a soft-delete.
// Only OtherFailure reaches the reporter.
func (n notifier) settle(title string, err error) Outcome {
	outcome := Classify(err)
	switch outcome {
	case Aborted:
	case NetworkFailure:
		slog.Debug("server unreachable, keeping cached data", "op", title, "err", err)
	default:
		slog.Error(title, "err", err)
		if n.report != nil {
			n.report.Report(title, detail(err))
		}
	}
	return outcome
}

// detail renders the reason part of a failure notification
func detail(err error) string {
	var re *syncclient.RequestError
	if errors.As(err, &re) && re.Status != 0 {
		if re.Message != "" {
			return fmt.Sprintf("%s (HTTP %d)", re.Message, re.Status)
		}
		return fmt.Sprintf("HTTP %d", re.Status)
	}
	return err.Error()
}
