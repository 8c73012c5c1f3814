package utils

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestGenerateSessionID(t *testing.T) {
	id1 := GenerateSessionID()
	id2 := GenerateSessionID()

	if id1 == id2 {
		t.Error("expected unique session ids")
	}
	if _, err := uuid.Parse(id1); err != nil {
		t.Errorf("session id is not a valid UUID: %v", err)
	}
}

func TestGenerateRequestID(t *testing.T) {
	id := GenerateRequestID()
	if !strings.HasPrefix(id, "req_") {
		t.Errorf("expected req_ prefix, got %s", id)
	}
	if id == GenerateRequestID() {
		t.Error("expected unique request ids")
	}
}

func TestMaskSensitive(t *testing.T) {
	if got := MaskSensitive("fingerprint", 4); got != "fing*******" {
		t.Errorf("MaskSensitive() = %q", got)
	}
	if got := MaskSensitive("ab", 4); got != "**" {
		t.Errorf("MaskSensitive() = %q", got)
	}
}
