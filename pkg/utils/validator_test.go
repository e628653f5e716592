package utils

import (
	"testing"

	"github.com/google/uuid"
)

type sampleRequest struct {
	Title    string `json:"title" validate:"required,max=5"`
	Priority string `json:"priority" validate:"omitempty,oneof=low high"`
}

func TestGetValidationErrorsUsesJSONNames(t *testing.T) {
	err := ValidateStruct(&sampleRequest{Title: "", Priority: "meh"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	fields := GetValidationErrors(err)
	got := map[string]string{}
	for _, f := range fields {
		got[f.Field] = f.Tag
	}
	if got["title"] != "required" || got["priority"] != "oneof" {
		t.Errorf("fields = %+v", fields)
	}
}

func TestUserColorIsStable(t *testing.T) {
	id := uuid.New()
	first := UserColor(id)
	for i := 0; i < 5; i++ {
		if UserColor(id) != first {
			t.Fatal("colour changed between calls")
		}
	}
	found := false
	for _, c := range userPalette {
		if c == first {
			found = true
		}
	}
	if !found {
		t.Errorf("%s is not from the palette", first)
	}
}

func TestInitials(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Ada Lovelace", "AL"},
		{"grace", "G"},
		{"  Alan  Mathison Turing", "AM"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Initials(tt.name); got != tt.want {
				t.Errorf("Initials(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}
