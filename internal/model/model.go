package model

import (
	"fmt"
	"time"
)

// Term is one of the three recognized academic terms.
type Term string

const (
	Michaelmas Term = "Michaelmas"
	Hilary     Term = "Hilary"
	Trinity    Term = "Trinity"
)

// Terms lists the recognized terms in academic-year order.
var Terms = []Term{Michaelmas, Hilary, Trinity}

// Valid reports whether t is one of the three recognized terms.
func (t Term) Valid() bool {
	switch t {
	case Michaelmas, Hilary, Trinity:
		return true
	}
	return false
}

func (t Term) String() string { return string(t) }

// CalendarYear returns the calendar year in which the term falls for the
// given academic year. Hilary and Trinity occur in the calendar year after
// the academic year starts; Michaelmas occurs in the same year.
func (t Term) CalendarYear(academicYear int) int {
	if t == Hilary || t == Trinity {
		return academicYear + 1
	}
	return academicYear
}

// Weekday is a teaching weekday, Monday through Friday.
// Its numeric value is the offset in days from Monday.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
)

var weekdayNames = map[string]Weekday{
	"Monday":    Monday,
	"Tuesday":   Tuesday,
	"Wednesday": Wednesday,
	"Thursday":  Thursday,
	"Friday":    Friday,
}

// ParseWeekday maps the English weekday name used by the timetable pages
// to its offset from Monday.
func ParseWeekday(name string) (Weekday, error) {
	d, ok := weekdayNames[name]
	if !ok {
		return 0, fmt.Errorf("unknown weekday %q", name)
	}
	return d, nil
}

func (d Weekday) String() string {
	switch d {
	case Monday:
		return "Monday"
	case Tuesday:
		return "Tuesday"
	case Wednesday:
		return "Wednesday"
	case Thursday:
		return "Thursday"
	case Friday:
		return "Friday"
	}
	return fmt.Sprintf("Weekday(%d)", int(d))
}

// RawEntry is one table row from a course schedule page, before any
// date/time resolution. Week numbers are relative to the term's
// week-0 Monday anchor.
type RawEntry struct {
	Weekday   Weekday
	Week      int
	Term      string
	TimeRange string // e.g. "10.00-11.00", possibly contaminated with \r\n\t
	Location  string
}

// CourseLink is one entry from the term overview page: a course label and
// the URL of its schedule page.
type CourseLink struct {
	Subject string
	URL     string
}

// Event is a single absolute-time lecture occurrence. The merger may widen
// Start to an earlier chain member while End stays the last member's end;
// Subject and Location are constant across the represented interval.
type Event struct {
	Subject  string
	Start    time.Time
	End      time.Time
	Location string
	URL      string
}
