package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/marcus/checkin/internal/models"
)

// Sentinel errors for common HTTP error classes.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
)

const apiPrefix = "/api/checkin/"

// Client is an HTTP client for a server's check-in API.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// New creates a new check-in API client.
func New(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL: models.NormalizeBaseURL(baseURL),
		Token:   token,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// --- Payload types ---

// Event is the event detail payload.
type Event struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	StartDt string `json:"start_dt"`
}

// Regform is the registration form payload.
type Regform struct {
	ID                int64  `json:"id"`
	Title             string `json:"title"`
	IsOpen            bool   `json:"is_open"`
	RegistrationCount int    `json:"registration_count"`
	CheckedInCount    int    `json:"checked_in_count"`
}

// Participant is the registration payload. EventID and RegformID are only
// filled by the ticket lookup.
type Participant struct {
	ID               int64                   `json:"id"`
	EventID          int64                   `json:"event_id,omitempty"`
	RegformID        int64                   `json:"regform_id,omitempty"`
	FullName         string                  `json:"full_name"`
	RegistrationDate string                  `json:"registration_date"`
	RegistrationData models.RegistrationData `json:"registration_data"`
	State            models.ParticipantState `json:"state"`
	CheckedIn        bool                    `json:"checked_in"`
	CheckedInDt      *time.Time              `json:"checked_in_dt"`
	OccupiedSlots    int                     `json:"occupied_slots"`
	Price            float64                 `json:"price"`
	Currency         string                  `json:"currency"`
	FormattedPrice   string                  `json:"formatted_price"`
	IsPaid           bool                    `json:"is_paid"`
	CheckinSecret    string                  `json:"checkin_secret"`
}

// --- API methods ---

// GetEvent fetches an event by its remote id.
func (c *Client) GetEvent(ctx context.Context, eventID int64) (*Event, error) {
	var resp Event
	if err := c.do(ctx, "GET", fmt.Sprintf("event/%d", eventID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListRegforms lists the registration forms of an event.
func (c *Client) ListRegforms(ctx context.Context, eventID int64) ([]Regform, error) {
	var resp []Regform
	if err := c.do(ctx, "GET", fmt.Sprintf("event/%d/registrations", eventID), nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetRegform fetches a single registration form.
func (c *Client) GetRegform(ctx context.Context, eventID, regformID int64) (*Regform, error) {
	var resp Regform
	if err := c.do(ctx, "GET", fmt.Sprintf("event/%d/registration/%d", eventID, regformID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListParticipants lists the registrations of a form.
func (c *Client) ListParticipants(ctx context.Context, eventID, regformID int64) ([]Participant, error) {
	var resp []Participant
	path := fmt.Sprintf("event/%d/registration/%d/registrations", eventID, regformID)
	if err := c.do(ctx, "GET", path, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetParticipant fetches a single registration.
func (c *Client) GetParticipant(ctx context.Context, eventID, regformID, participantID int64) (*Participant, error) {
	var resp Participant
	path := fmt.Sprintf("event/%d/registration/%d/%d", eventID, regformID, participantID)
	if err := c.do(ctx, "GET", path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CheckIn sets the checked-in state of a registration and returns the
// updated registration.
func (c *Client) CheckIn(ctx context.Context, eventID, regformID, participantID int64, checkedIn bool) (*Participant, error) {
	var resp Participant
	path := fmt.Sprintf("event/%d/registration/%d/%d", eventID, regformID, participantID)
	body := map[string]bool{"checked_in": checkedIn}
	if err := c.do(ctx, "PATCH", path, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetPaid marks a registration as paid or unpaid and returns the updated
// registration including its recomputed price fields.
func (c *Client) SetPaid(ctx context.Context, eventID, regformID, participantID int64, paid bool) (*Participant, error) {
	var resp Participant
	path := fmt.Sprintf("event/%d/registration/%d/%d/payment", eventID, regformID, participantID)
	body := map[string]bool{"is_paid": paid}
	if err := c.do(ctx, "PATCH", path, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetTicket looks a registration up by the secret encoded in its ticket.
func (c *Client) GetTicket(ctx context.Context, secret string) (*Participant, error) {
	var resp Participant
	if err := c.do(ctx, "GET", "ticket/"+url.PathEscape(secret), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- HTTP helpers ---

// Response is the outcome of one API call. Exactly one of OK, Network,
// Aborted or a non-zero Status describes what happened.
type Response struct {
	OK      bool
	Status  int
	Data    json.RawMessage
	Err     error
	Network bool
	Aborted bool
}

// RequestError describes a failed API call.
type RequestError struct {
	Method  string
	Path    string
	Status  int
	Message string
	Network bool
	Aborted bool
	Err     error
}

func (e *RequestError) Error() string {
	switch {
	case e.Aborted:
		return fmt.Sprintf("%s %s: aborted", e.Method, e.Path)
	case e.Network:
		return fmt.Sprintf("%s %s: network error: %v", e.Method, e.Path, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.Status, e.Message)
	default:
		return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.Path, e.Status)
	}
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// apiError is the error body returned by the server.
type apiError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// do executes a request and decodes a successful body into result.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	resp := c.Do(ctx, method, path, body)
	if !resp.OK {
		return resp.Err
	}
	if result == nil {
		return nil
	}
	if data := bytes.TrimSpace(resp.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return &RequestError{Method: method, Path: path, Status: resp.Status, Message: "empty response"}
	}
	if err := json.Unmarshal(resp.Data, result); err != nil {
		return fmt.Errorf("%s %s: unmarshal response: %w", method, path, err)
	}
	return nil
}

// Do executes an authenticated request and wraps the outcome in a Response.
func (c *Client) Do(ctx context.Context, method, path string, body any) Response {
	fail := func(re *RequestError) Response {
		re.Method, re.Path = method, path
		return Response{Status: re.Status, Err: re, Network: re.Network, Aborted: re.Aborted}
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fail(&RequestError{Err: fmt.Errorf("marshal request: %w", err)})
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+apiPrefix+strings.TrimPrefix(path, "/"), bodyReader)
	if err != nil {
		return fail(&RequestError{Err: fmt.Errorf("create request: %w", err)})
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return fail(&RequestError{Aborted: true, Err: context.Canceled})
		}
		slog.Debug("checkin api unreachable", "method", method, "path", path, "request_id", requestID, "err", err)
		return fail(&RequestError{Network: true, Err: err})
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return fail(&RequestError{Aborted: true, Err: context.Canceled})
		}
		return fail(&RequestError{Network: true, Err: fmt.Errorf("read response: %w", err)})
	}

	slog.Debug("checkin api", "method", method, "path", path, "status", resp.StatusCode,
		"request_id", requestID, "elapsed", time.Since(start))

	if resp.StatusCode >= 400 {
		re := &RequestError{Status: resp.StatusCode, Message: errorMessage(respBody)}
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			re.Err = ErrUnauthorized
		case http.StatusForbidden:
			re.Err = ErrForbidden
		case http.StatusNotFound:
			re.Err = ErrNotFound
		}
		return fail(re)
	}

	return Response{OK: true, Status: resp.StatusCode, Data: respBody}
}

// errorMessage extracts a human readable message from an error body
func errorMessage(body []byte) string {
	var apiErr apiError
	if json.Unmarshal(body, &apiErr) == nil {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		if apiErr.Error != "" {
			return apiErr.Error
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
