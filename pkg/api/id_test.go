package api

import (
	"testing"
)

func TestNewCompletionID(t *testing.T) {
	id := NewCompletionID()
	if !ValidateCompletionID(id) {
		t.Errorf("NewCompletionID() = %q, want valid completion ID", id)
	}
}

func TestValidateCompletionID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"valid", "cmpl-abcdefghijklmnopqrstuvwx", true},
		{"valid mixed case", "cmpl-AbCdEfGhIjKlMnOpQrStUvWx", true},
		{"valid digits", "cmpl-123456789012345678901234", true},
		{"chat prefix", "chatcmpl-abcdefghijklmnopqrstuvwx", false},
		{"no prefix", "abcdefghijklmnopqrstuvwxyz1234", false},
		{"too short", "cmpl-abc", false},
		{"too long", "cmpl-abcdefghijklmnopqrstuvwxy", false},
		{"special chars", "cmpl-abcdefghijklmnopqrstuv!@", false},
		{"empty", "", false},
		{"prefix only", "cmpl-", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateCompletionID(tt.id); got != tt.want {
				t.Errorf("ValidateCompletionID(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestIDUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewCompletionID()
		if seen[id] {
			t.Fatalf("duplicate ID after %d iterations: %s", i, id)
		}
		seen[id] = true
	}
}
