package timeparse

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Local is the fixed offset every user-supplied clock time and date is
// interpreted in. No daylight saving, no timezone database.
var Local = time.FixedZone("UTC+8", 8*3600)

const (
	clockLayout = "15:04"
	dateLayout  = "02/01/2006"
)

// ErrNegativeDuration rejects commands like "Standup | 12:00 | -1h".
var ErrNegativeDuration = errors.New("duration must be non-negative")

// ParseError wraps a malformed clock-time, date or duration token. A token
// that is present but unparsable is always fatal; only an absent token falls
// back to the reference clock.
type ParseError struct {
	Field string
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Input, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Interval is a resolved meeting window. Both instants are UTC and
// End is never before Start.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Duration returns the window length.
func (iv Interval) Duration() time.Duration { return iv.End.Sub(iv.Start) }

// Resolve turns terse time text into a UTC interval.
//
// timeText is whitespace separated: an optional "HH:MM" clock time followed
// by an optional "DD/MM/YYYY" date. A missing clock time means now's
// time-of-day. A missing date picks today, or tomorrow when the requested
// clock time has already passed today (the user means the next occurrence).
// An explicit date is used verbatim and bypasses the rollover.
//
// durationText is anything time.ParseDuration accepts ("2h", "90m"); empty
// means a zero-length window.
func Resolve(timeText, durationText string, now time.Time) (Interval, error) {
	local := now.In(Local)
	tokens := strings.Fields(timeText)

	hour, minute, sec := local.Clock()
	nsec := local.Nanosecond()
	if len(tokens) > 0 {
		clock, err := time.Parse(clockLayout, tokens[0])
		if err != nil {
			return Interval{}, &ParseError{Field: "clock time", Input: tokens[0], Err: err}
		}
		hour, minute = clock.Hour(), clock.Minute()
		sec, nsec = 0, 0
	}

	var year int
	var month time.Month
	var day int
	if len(tokens) > 1 {
		date, err := time.Parse(dateLayout, tokens[1])
		if err != nil {
			return Interval{}, &ParseError{Field: "date", Input: tokens[1], Err: err}
		}
		year, month, day = date.Date()
	} else {
		anchor := local
		if beforeClock(hour, minute, sec, nsec, local) {
			anchor = local.AddDate(0, 0, 1)
		}
		year, month, day = anchor.Date()
	}

	var length time.Duration
	if text := strings.TrimSpace(durationText); text != "" {
		parsed, err := time.ParseDuration(text)
		if err != nil {
			return Interval{}, &ParseError{Field: "duration", Input: text, Err: err}
		}
		length = parsed
	}
	if length < 0 {
		return Interval{}, ErrNegativeDuration
	}

	start := time.Date(year, month, day, hour, minute, sec, nsec, Local).UTC()
	return Interval{Start: start, End: start.Add(length)}, nil
}

// beforeClock reports whether the requested time-of-day is strictly earlier
// than ref's.
func beforeClock(hour, minute, sec, nsec int, ref time.Time) bool {
	rh, rm, rs := ref.Clock()
	a := int64((hour*60+minute)*60+sec)*1e9 + int64(nsec)
	b := int64(((rh*60+rm)*60+rs))*1e9 + int64(ref.Nanosecond())
	return a < b
}
