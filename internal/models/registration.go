package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// FieldKind is the input type of a registration form field
type FieldKind string

const (
	FieldText                FieldKind = "text"
	FieldTextarea            FieldKind = "textarea"
	FieldNumber              FieldKind = "number"
	FieldEmail               FieldKind = "email"
	FieldPhone               FieldKind = "phone"
	FieldDate                FieldKind = "date"
	FieldCountry             FieldKind = "country"
	FieldBool                FieldKind = "bool"
	FieldCheckbox            FieldKind = "checkbox"
	FieldSingleChoice        FieldKind = "single_choice"
	FieldMultiChoice         FieldKind = "multi_choice"
	FieldAccommodation       FieldKind = "accommodation"
	FieldAccompanyingPersons FieldKind = "accompanying_persons"
	FieldFile                FieldKind = "file"
	FieldPicture             FieldKind = "picture"
	FieldUnknown             FieldKind = "unknown"
)

var knownFieldKinds = map[FieldKind]bool{
	FieldText: true, FieldTextarea: true, FieldNumber: true, FieldEmail: true,
	FieldPhone: true, FieldDate: true, FieldCountry: true, FieldBool: true,
	FieldCheckbox: true, FieldSingleChoice: true, FieldMultiChoice: true,
	FieldAccommodation: true, FieldAccompanyingPersons: true, FieldFile: true,
	FieldPicture: true,
}

// UnmarshalText maps input types this client cannot render to FieldUnknown
func (k *FieldKind) UnmarshalText(text []byte) error {
	kind := FieldKind(text)
	if !knownFieldKinds[kind] {
		kind = FieldUnknown
	}
	*k = kind
	return nil
}

// Choice is one option of a choice or accommodation field
type Choice struct {
	ID      string `json:"id"`
	Caption string `json:"caption"`
}

// Field is a single answered form field. Data holds the raw answer whose
// shape depends on Kind.
type Field struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Kind        FieldKind       `json:"input_type"`
	Data        json.RawMessage `json:"data,omitempty"`
	Choices     []Choice        `json:"choices,omitempty"`
}

// Section groups fields the way the registration form presents them
type Section struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Fields      []Field `json:"fields"`
}

// RegistrationData is the ordered list of form sections of a registration.
// It is stored as a JSON text column.
type RegistrationData []Section

// Value implements driver.Valuer
func (d RegistrationData) Value() (driver.Value, error) {
	if d == nil {
		return "[]", nil
	}
	data, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (d *RegistrationData) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*d = nil
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("registration data: unsupported type %T", src)
	}
	if len(data) == 0 {
		*d = nil
		return nil
	}
	if err := json.Unmarshal(data, d); err != nil {
		return err
	}
	// Normalize an empty list so stored and fresh values compare equal
	if len(*d) == 0 {
		*d = nil
	}
	return nil
}

// Display renders the answer as a single line of text
func (f Field) Display() string {
	if len(f.Data) == 0 || string(f.Data) == "null" {
		return ""
	}
	switch f.Kind {
	case FieldText, FieldTextarea, FieldEmail, FieldPhone, FieldDate, FieldCountry, FieldNumber:
		return scalar(f.Data)
	case FieldBool, FieldCheckbox:
		var b bool
		if json.Unmarshal(f.Data, &b) != nil {
			return scalar(f.Data)
		}
		if b {
			return "Yes"
		}
		return "No"
	case FieldSingleChoice, FieldMultiChoice:
		return f.displayChoices()
	case FieldAccommodation:
		return f.displayAccommodation()
	case FieldAccompanyingPersons:
		var persons []struct {
			FirstName string `json:"firstName"`
			LastName  string `json:"lastName"`
		}
		if json.Unmarshal(f.Data, &persons) != nil {
			return ""
		}
		names := make([]string, 0, len(persons))
		for _, p := range persons {
			names = append(names, strings.TrimSpace(p.FirstName+" "+p.LastName))
		}
		return strings.Join(names, ", ")
	case FieldFile, FieldPicture:
		var file struct {
			Filename string `json:"filename"`
		}
		if json.Unmarshal(f.Data, &file) == nil && file.Filename != "" {
			return file.Filename
		}
		return scalar(f.Data)
	default:
		return scalar(f.Data)
	}
}

// displayChoices renders selected choices in form order with their slot count
func (f Field) displayChoices() string {
	var selected map[string]int
	if json.Unmarshal(f.Data, &selected) != nil {
		return ""
	}
	var parts []string
	seen := make(map[string]bool)
	for _, c := range f.Choices {
		slots, ok := selected[c.ID]
		if !ok || slots == 0 {
			continue
		}
		seen[c.ID] = true
		parts = append(parts, withSlots(c.Caption, slots))
	}
	// Choices no longer on the form still show up by id
	var orphans []string
	for id, slots := range selected {
		if !seen[id] && slots > 0 {
			orphans = append(orphans, withSlots(id, slots))
		}
	}
	sort.Strings(orphans)
	return strings.Join(append(parts, orphans...), ", ")
}

func (f Field) displayAccommodation() string {
	var acc struct {
		Choice            string `json:"choice"`
		IsNoAccommodation bool   `json:"isNoAccommodation"`
		ArrivalDate       string `json:"arrivalDate"`
		DepartureDate     string `json:"departureDate"`
	}
	if json.Unmarshal(f.Data, &acc) != nil {
		return ""
	}
	if acc.IsNoAccommodation {
		return "No accommodation"
	}
	caption := acc.Choice
	for _, c := range f.Choices {
		if c.ID == acc.Choice {
			caption = c.Caption
			break
		}
	}
	if acc.ArrivalDate == "" && acc.DepartureDate == "" {
		return caption
	}
	return fmt.Sprintf("%s (%s to %s)", caption, acc.ArrivalDate, acc.DepartureDate)
}

func withSlots(caption string, slots int) string {
	if slots > 1 {
		return caption + " (" + strconv.Itoa(slots) + ")"
	}
	return caption
}

// scalar renders a JSON scalar without quotes
func scalar(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
