package util

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewIDIsUUID(t *testing.T) {
	id := NewID()
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("NewID() = %q, not a uuid: %v", id, err)
	}
	if NewID() == id {
		t.Fatal("expected distinct ids")
	}
}

func TestNewCode(t *testing.T) {
	code := NewCode(6)
	if len(code) != 6 {
		t.Fatalf("expected 6 characters, got %q", code)
	}
	for _, r := range code {
		if !strings.ContainsRune(codeAlphabet, r) {
			t.Fatalf("unexpected character %q in %q", r, code)
		}
	}
}

func TestNewTokenLength(t *testing.T) {
	if got := NewToken(16); len(got) != 32 {
		t.Fatalf("expected 32 hex characters, got %d", len(got))
	}
}

func TestManualClock(t *testing.T) {
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := NewManualClock(start)
	clock.Advance(90 * time.Minute)
	if want := start.Add(90 * time.Minute); !clock.Now().Equal(want) {
		t.Fatalf("Now() = %s, want %s", clock.Now(), want)
	}
}
