package models

import (
	"encoding/json"
	"testing"
)

func TestFieldDisplay(t *testing.T) {
	tests := []struct {
		name  string
		field Field
		want  string
	}{
		{"text", Field{Kind: FieldText, Data: json.RawMessage(`"Guinea"`)}, "Guinea"},
		{"number", Field{Kind: FieldNumber, Data: json.RawMessage(`42`)}, "42"},
		{"empty", Field{Kind: FieldText}, ""},
		{"null", Field{Kind: FieldEmail, Data: json.RawMessage(`null`)}, ""},
		{"bool true", Field{Kind: FieldBool, Data: json.RawMessage(`true`)}, "Yes"},
		{"checkbox false", Field{Kind: FieldCheckbox, Data: json.RawMessage(`false`)}, "No"},
		{
			"single choice",
			Field{
				Kind:    FieldSingleChoice,
				Data:    json.RawMessage(`{"b": 1}`),
				Choices: []Choice{{ID: "a", Caption: "Veggie"}, {ID: "b", Caption: "Vegan"}},
			},
			"Vegan",
		},
		{
			"multi choice keeps form order and slots",
			Field{
				Kind:    FieldMultiChoice,
				Data:    json.RawMessage(`{"b": 2, "a": 1, "gone": 1}`),
				Choices: []Choice{{ID: "a", Caption: "Lunch"}, {ID: "b", Caption: "Dinner"}},
			},
			"Lunch, Dinner (2), gone",
		},
		{
			"accommodation",
			Field{
				Kind:    FieldAccommodation,
				Data:    json.RawMessage(`{"choice": "h1", "arrivalDate": "2024-05-01", "departureDate": "2024-05-03"}`),
				Choices: []Choice{{ID: "h1", Caption: "Hotel"}},
			},
			"Hotel (2024-05-01 to 2024-05-03)",
		},
		{
			"no accommodation",
			Field{Kind: FieldAccommodation, Data: json.RawMessage(`{"isNoAccommodation": true}`)},
			"No accommodation",
		},
		{
			"accompanying persons",
			Field{Kind: FieldAccompanyingPersons, Data: json.RawMessage(`[{"firstName": "A", "lastName": "B"}, {"firstName": "C", "lastName": "D"}]`)},
			"A B, C D",
		},
		{"file", Field{Kind: FieldFile, Data: json.RawMessage(`{"filename": "cv.pdf"}`)}, "cv.pdf"},
		{"unknown", Field{Kind: FieldUnknown, Data: json.RawMessage(`"raw"`)}, "raw"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.field.Display(); got != tt.want {
				t.Errorf("Display() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFieldKindUnknownInputType(t *testing.T) {
	var f Field
	if err := json.Unmarshal([]byte(`{"id": 1, "input_type": "hologram"}`), &f); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if f.Kind != FieldUnknown {
		t.Errorf("Kind = %q, want %q", f.Kind, FieldUnknown)
	}
}

func TestRegistrationDataScanValue(t *testing.T) {
	data := RegistrationData{{ID: 1, Title: "Personal", Fields: []Field{{ID: 2, Title: "Name", Kind: FieldText, Data: json.RawMessage(`"X"`)}}}}
	v, err := data.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}

	var got RegistrationData
	if err := got.Scan(v); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(got) != 1 || got[0].Fields[0].Display() != "X" {
		t.Errorf("unexpected round trip: %+v", got)
	}

	var empty RegistrationData
	if err := empty.Scan(nil); err != nil || empty != nil {
		t.Errorf("Scan(nil) = %v, %v", empty, err)
	}

	var nilData RegistrationData
	if v, _ := nilData.Value(); v != "[]" {
		t.Errorf("nil Value() = %v, want []", v)
	}
}

func TestParticipantPath(t *testing.T) {
	p := Participant{ID: 3, RegformID: 2}
	if got := p.Path(1); got != "/event/1/2/3" {
		t.Errorf("Path() = %q", got)
	}
}

func TestParticipantStateIsValid(t *testing.T) {
	if !StateUnpaid.IsValid() {
		t.Error("unpaid should be valid")
	}
	if ParticipantState("bogus").IsValid() {
		t.Error("bogus should be invalid")
	}
}
