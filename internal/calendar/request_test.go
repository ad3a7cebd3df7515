package calendar

import (
	"strings"
	"testing"
	"time"
)

func TestNewRequestToken(t *testing.T) {
	start := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	req := NewRequest("Standup", start, start.Add(time.Hour))
	if len(req.RequestID) != 32 {
		t.Fatalf("request id length = %d, want 32", len(req.RequestID))
	}
	for _, r := range req.RequestID {
		if !strings.ContainsRune(alphanumeric, r) {
			t.Fatalf("request id %q contains non-alphanumeric %q", req.RequestID, r)
		}
	}
}

func TestNewRequestTokenIsFresh(t *testing.T) {
	start := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	a := NewRequest("a", start, start)
	b := NewRequest("a", start, start)
	if a.RequestID == b.RequestID {
		t.Fatalf("two requests share token %s", a.RequestID)
	}
}
