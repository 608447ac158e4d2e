package wire

import "testing"

func TestExtractType(t *testing.T) {
	env, err := ExtractType([]byte(`{"type":"history","id":"abc-123","events":[]}`))
	if err != nil {
		t.Fatalf("ExtractType failed: %v", err)
	}
	if env.Type != TypeHistory {
		t.Errorf("Type = %q, want %q", env.Type, TypeHistory)
	}
	if env.ID != "abc-123" {
		t.Errorf("ID = %q, want %q", env.ID, "abc-123")
	}
}

func TestExtractTypeWithoutID(t *testing.T) {
	env, err := ExtractType([]byte(`{"type":"event","data":{}}`))
	if err != nil {
		t.Fatalf("ExtractType failed: %v", err)
	}
	if env.Type != TypeEvent || env.ID != "" {
		t.Errorf("unexpected envelope: %+v", env)
	}
}

func TestExtractTypeMalformed(t *testing.T) {
	if _, err := ExtractType([]byte(`{`)); err == nil {
		t.Error("expected error for malformed message")
	}
}

func TestNewCallIDUnique(t *testing.T) {
	a, b := NewCallID(), NewCallID()
	if a == "" || a == b {
		t.Errorf("call ids not unique: %q, %q", a, b)
	}
}
