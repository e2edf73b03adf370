// Package qrcode decodes the text payloads of check-in QR codes.
//
// Decoding the image itself happens elsewhere; this package receives the
// scanned text and turns it into a validated event or participant payload.
package qrcode

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator"
)

var validate = newValidator()

// ErrUnrecognized is returned for text that is not a check-in QR code
var ErrUnrecognized = errors.New("not a check-in QR code")

// Server describes the server an event QR code points at
type Server struct {
	BaseURL  string `json:"base_url" validate:"required,baseurl"`
	ClientID string `json:"client_id"`
	Scope    string `json:"scope"`
}

// EventPayload introduces an event and one of its registration forms
type EventPayload struct {
	EventID      int64  `json:"event_id" validate:"gt=0"`
	Title        string `json:"title" validate:"required,max=512"`
	Date         string `json:"date"`
	RegformID    int64  `json:"regform_id" validate:"gt=0"`
	RegformTitle string `json:"regform_title" validate:"required,max=512"`
	Server       Server `json:"server"`
}

// ParticipantPayload identifies a registration by its ticket secret
type ParticipantPayload struct {
	CheckinSecret string `json:"checkin_secret" validate:"required,max=256"`
	ServerURL     string `json:"server_url" validate:"required,baseurl"`
}

// Payload is either *EventPayload or *ParticipantPayload
type Payload interface {
	payload()
}

func (*EventPayload) payload()       {}
func (*ParticipantPayload) payload() {}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("baseurl", validateBaseURL); err != nil {
		panic(fmt.Sprintf("qrcode: register baseurl validation: %v", err))
	}
	return v
}

// validateBaseURL accepts absolute http(s) URLs with a host
func validateBaseURL(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Parse decodes scanned text into an event or participant payload
func Parse(text string) (Payload, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &keys); err != nil {
		return nil, ErrUnrecognized
	}

	var p Payload
	switch {
	case keys["checkin_secret"] != nil:
		p = &ParticipantPayload{}
	case keys["event_id"] != nil:
		p = &EventPayload{}
	default:
		return nil, ErrUnrecognized
	}

	if err := json.Unmarshal([]byte(text), p); err != nil {
		return nil, fmt.Errorf("decode QR code: %w", err)
	}
	if err := Validate(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks a payload and reports the first invalid field
func Validate(p Payload) error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	fe := verrs[0]
	var msg string
	switch fe.Tag() {
	case "required":
		msg = "field is required"
	case "gt":
		msg = "must be a positive id"
	case "max":
		msg = "field is too long"
	case "baseurl":
		msg = "must be an http(s) URL"
	default:
		msg = "invalid value"
	}
	return fmt.Errorf("invalid QR code: %s: %s", fe.Namespace(), msg)
}

// ValidateServerURL checks a server base URL typed by the user
func ValidateServerURL(s string) error {
	if err := validate.Var(s, "required,baseurl"); err != nil {
		return fmt.Errorf("invalid server URL %q: must be an http(s) URL", s)
	}
	return nil
}
