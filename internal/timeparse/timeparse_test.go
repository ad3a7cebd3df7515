package timeparse

import (
	"errors"
	"testing"
	"time"
)

func mustParse(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse %s: %v", value, err)
	}
	return parsed
}

func TestResolveSameDay(t *testing.T) {
	now := mustParse(t, "2023-04-01T10:00:00+08:00")
	iv, err := Resolve("12:00", "", now)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := mustParse(t, "2023-04-01T04:00:00Z")
	if !iv.Start.Equal(want) {
		t.Fatalf("start = %s, want %s", iv.Start, want)
	}
	if !iv.End.Equal(iv.Start) {
		t.Fatalf("no duration given, end = %s, want %s", iv.End, iv.Start)
	}
}

func TestResolveRollsToNextDay(t *testing.T) {
	now := mustParse(t, "2023-04-01T10:00:00+08:00")
	iv, err := Resolve("8:00", "", now)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := mustParse(t, "2023-04-02T00:00:00Z")
	if !iv.Start.Equal(want) {
		t.Fatalf("start = %s, want %s", iv.Start, want)
	}
}

func TestResolveEmptyTimeIsNow(t *testing.T) {
	now := time.Now().In(Local)
	iv, err := Resolve("", "", now)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !iv.Start.Equal(now) {
		t.Fatalf("start = %s, want %s", iv.Start, now)
	}
}

func TestResolveExplicitDate(t *testing.T) {
	now := time.Now().In(Local)
	iv, err := Resolve("08:00 01/06/2023", "", now)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := mustParse(t, "2023-06-01T08:00:00+08:00")
	if !iv.Start.Equal(want) {
		t.Fatalf("start = %s, want %s", iv.Start, want)
	}
}

func TestResolveWithDuration(t *testing.T) {
	now := mustParse(t, "2023-06-01T08:00:00Z")
	iv, err := Resolve("16:00 01/06/2023", "2h", now)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !iv.Start.Equal(now) {
		t.Fatalf("start = %s, want %s", iv.Start, now)
	}
	if iv.Duration() != 2*time.Hour {
		t.Fatalf("duration = %s, want 2h", iv.Duration())
	}
}

func TestResolveRejectsBadInput(t *testing.T) {
	now := mustParse(t, "2023-04-01T10:00:00+08:00")
	cases := []struct {
		name         string
		timeText     string
		durationText string
	}{
		{"out of range date", "05:12 1/20/1111", ""},
		{"day out of range for month", "10:00 31/04/2023", ""},
		{"garbage clock", "25:99", ""},
		{"non numeric clock", "noon", ""},
		{"garbage duration", "12:00", "soon"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Resolve(tc.timeText, tc.durationText, now)
			if err == nil {
				t.Fatalf("resolve(%q, %q) succeeded, want error", tc.timeText, tc.durationText)
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("error %v is not a ParseError", err)
			}
		})
	}
}

func TestResolveNegativeDuration(t *testing.T) {
	now := mustParse(t, "2023-04-01T10:00:00+08:00")
	_, err := Resolve("12:00", "-30m", now)
	if !errors.Is(err, ErrNegativeDuration) {
		t.Fatalf("err = %v, want ErrNegativeDuration", err)
	}
}

func TestResolveDurationLaw(t *testing.T) {
	now := mustParse(t, "2023-04-01T10:00:00+08:00")
	for _, d := range []string{"0s", "15m", "1h", "26h"} {
		iv, err := Resolve("12:00", d, now)
		if err != nil {
			t.Fatalf("resolve with %q: %v", d, err)
		}
		want, _ := time.ParseDuration(d)
		if iv.Duration() != want {
			t.Fatalf("duration = %s, want %s", iv.Duration(), want)
		}
	}
}

func TestResolveEqualClockStaysToday(t *testing.T) {
	now := mustParse(t, "2023-04-01T10:00:00+08:00")
	iv, err := Resolve("10:00", "", now)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !iv.Start.Equal(now) {
		t.Fatalf("start = %s, want %s", iv.Start, now)
	}
}

func TestResolvePastDateIsUsedVerbatim(t *testing.T) {
	now := mustParse(t, "2023-04-01T10:00:00+08:00")
	iv, err := Resolve("09:00 01/01/2020", "", now)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := mustParse(t, "2020-01-01T09:00:00+08:00")
	if !iv.Start.Equal(want) {
		t.Fatalf("start = %s, want %s", iv.Start, want)
	}
}
