// Package schedule turns relative timetable rows into absolute-time events
// and collapses artificially fragmented slots. The timetable pages carry no
// dates at all, only weekday names and week numbers counted from the term's
// week-0 Monday, so every instant here is derived from that single anchor.
package schedule

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"lectical/internal/model"
)

// clockTime is a wall-clock time of day parsed from one half of a
// time-range field.
type clockTime struct {
	hour   int
	minute int
}

// Reconstruct converts raw rows for one course into absolute events.
//
// Rows whose term differs from requested are dropped before any parsing:
// practicals list slots for several terms on the same page. The remaining
// rows are resolved against anchor (the week-0 Monday, in the civil
// timezone the events should carry) and emitted in row order, which the
// merger depends on. Any malformed row fails the whole course; a silently
// incomplete calendar is worse than an explicit error naming the bad input.
func Reconstruct(subject, url string, rows []model.RawEntry, requested model.Term, anchor time.Time) ([]model.Event, error) {
	events := make([]model.Event, 0, len(rows))

	for _, row := range rows {
		if row.Term != string(requested) {
			continue
		}

		startClock, endClock, err := parseTimeRange(row.TimeRange)
		if err != nil {
			return nil, &TimeParseError{Subject: subject, Row: row, Reason: err.Error()}
		}

		// Resolve the calendar day first, then attach the clock via
		// time.Date so a DST transition inside the term cannot skew
		// the wall-clock times.
		day := anchor.AddDate(0, 0, row.Week*7+int(row.Weekday))
		start := time.Date(day.Year(), day.Month(), day.Day(), startClock.hour, startClock.minute, 0, 0, anchor.Location())
		end := time.Date(day.Year(), day.Month(), day.Day(), endClock.hour, endClock.minute, 0, 0, anchor.Location())

		if !end.After(start) {
			return nil, &InvalidIntervalError{Subject: subject, Row: row, Start: start, End: end}
		}

		events = append(events, model.Event{
			Subject:  subject,
			Start:    start,
			End:      end,
			Location: row.Location,
			URL:      url,
		})
	}

	return events, nil
}

// parseTimeRange splits a "HH.MM-HH.MM" field into its two clock times.
// The upstream cells are contaminated with stray \r, \n, \t and spaces
// around the hyphen, so all whitespace and control characters are stripped
// before splitting.
func parseTimeRange(raw string) (clockTime, clockTime, error) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return -1
		}
		return r
	}, raw)

	parts := strings.Split(cleaned, "-")
	if len(parts) != 2 {
		return clockTime{}, clockTime{}, errTimeRangeShape(len(parts))
	}

	start, err := parseClock(parts[0])
	if err != nil {
		return clockTime{}, clockTime{}, err
	}
	end, err := parseClock(parts[1])
	if err != nil {
		return clockTime{}, clockTime{}, err
	}
	return start, end, nil
}

type errTimeRangeShape int

func (e errTimeRangeShape) Error() string {
	return "expected two hyphen-separated times, got " + strconv.Itoa(int(e)) + " part(s)"
}

// parseClock parses one "HH.MM" token.
func parseClock(s string) (clockTime, error) {
	hh, mm, ok := strings.Cut(s, ".")
	if !ok {
		return clockTime{}, &clockError{s, "missing '.' separator"}
	}
	hour, err := strconv.Atoi(hh)
	if err != nil {
		return clockTime{}, &clockError{s, "bad hour"}
	}
	minute, err := strconv.Atoi(mm)
	if err != nil {
		return clockTime{}, &clockError{s, "bad minute"}
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return clockTime{}, &clockError{s, "out of range"}
	}
	return clockTime{hour: hour, minute: minute}, nil
}

type clockError struct {
	token  string
	reason string
}

func (e *clockError) Error() string {
	return "clock time " + strconv.Quote(e.token) + ": " + e.reason
}
