package utils

import (
	"strings"
	"testing"
)

func TestGenerateID(t *testing.T) {
	id1 := GenerateID()
	id2 := GenerateID()

	if id1 == "" {
		t.Error("GenerateID returned empty string")
	}
	if id1 == id2 {
		t.Error("GenerateID should return unique IDs")
	}
	if !strings.Contains(id1, "-") {
		t.Errorf("GenerateID should contain hyphen: %s", id1)
	}
}

func TestGenerateRunID(t *testing.T) {
	id1 := GenerateRunID()
	id2 := GenerateRunID()

	if !strings.HasPrefix(id1, "sweep-") {
		t.Errorf("GenerateRunID should start with 'sweep-': %s", id1)
	}
	if id1 == id2 {
		t.Error("GenerateRunID should return unique IDs")
	}
	if err := ValidateRunID(id1); err != nil {
		t.Errorf("generated run id should be valid: %v", err)
	}
}

func TestValidateRunID(t *testing.T) {
	tests := []struct {
		id      string
		wantErr bool
	}{
		{"sweep-1", false},
		{"", true},
		{"a/b", true},
		{"a:stop", true},
		{"a?b", true},
	}
	for _, tt := range tests {
		err := ValidateRunID(tt.id)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateRunID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
		}
	}
}
