// Package ical assembles merged events into an RFC 5545 calendar document
// and parses ICS payloads (the term-dates feed, and our own output when
// verifying it).
package ical

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	appLog "lectical/internal/log"
	"lectical/internal/model"
)

// Metadata identifies the calendar being emitted. It only feeds the PRODID
// and the output filename; RFC 5545 requires nothing else at document level.
type Metadata struct {
	Prefix     string
	Term       model.Term
	Year       int
	CohortYear int
}

// Emitter serializes events into a calendar document. Now is the clock used
// for DTSTAMP; tests pin it.
type Emitter struct {
	Now func() time.Time
}

// Emit builds the calendar and returns its serialized bytes. Each event
// gets a fresh random UID (uniqueness within one document is all that is
// needed) and a DTSTAMP at emission time in UTC, which RFC 5545 mandates.
func (e *Emitter) Emit(events []model.Event, meta Metadata) ([]byte, error) {
	now := time.Now
	if e != nil && e.Now != nil {
		now = e.Now
	}
	stamp := now().UTC()

	cal := ics.NewCalendar()
	cal.SetProductId(fmt.Sprintf("-//%s Year %d %s %d//EN", meta.Prefix, meta.CohortYear, meta.Term, meta.Year))
	cal.SetVersion("2.0")

	for _, ev := range events {
		if !ev.End.After(ev.Start) {
			return nil, fmt.Errorf("ical: event %q has end %s not after start %s",
				ev.Subject, ev.End.Format(time.RFC3339), ev.Start.Format(time.RFC3339))
		}

		ve := cal.AddEvent(uuid.NewString())
		ve.SetSummary(ev.Subject)
		ve.SetStartAt(ev.Start)
		ve.SetEndAt(ev.End)
		ve.SetDtStampTime(stamp)
		if ev.Location != "" {
			ve.SetLocation(ev.Location)
		}
		if ev.URL != "" {
			ve.SetURL(ev.URL)
		}
	}

	appLog.Info("calendar assembled", "events", len(events), "term", meta.Term, "year", meta.Year)
	// RFC 5545 content lines are CRLF-delimited; the library's default is
	// the platform newline, which would emit bare LF on Unix.
	return []byte(cal.Serialize(ics.WithNewLineWindows)), nil
}

// Filename returns the conventional output filename,
// e.g. OxfPhysTimetable_Year3_Michaelmas2023.ics.
func Filename(prefix string, cohort int, term model.Term, year int) string {
	return fmt.Sprintf("%s_Year%d_%s%d.ics", prefix, cohort, term, year)
}

// Parse reads an ICS payload back into events. UIDs and DTSTAMPs are
// deliberately not surfaced; callers compare on the
// (subject, start, end, location) tuple.
func Parse(body []byte) ([]model.Event, error) {
	if len(body) == 0 {
		return nil, errors.New("ical: empty payload")
	}

	cal, err := ics.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	events := make([]model.Event, 0, len(cal.Events()))
	for _, ve := range cal.Events() {
		start, err := ve.GetStartAt()
		if err != nil {
			return nil, fmt.Errorf("ical: event missing DTSTART: %w", err)
		}
		end, err := ve.GetEndAt()
		if err != nil {
			return nil, fmt.Errorf("ical: event missing DTEND: %w", err)
		}

		ev := model.Event{Start: start, End: end}
		if p := ve.GetProperty(ics.ComponentPropertySummary); p != nil {
			ev.Subject = unescapeText(p.Value)
		}
		if p := ve.GetProperty(ics.ComponentPropertyLocation); p != nil {
			ev.Location = unescapeText(p.Value)
		}
		if p := ve.GetProperty(ics.ComponentPropertyUrl); p != nil {
			ev.URL = p.Value
		}
		events = append(events, ev)
	}

	return events, nil
}

// unescapeText undoes RFC 5545 TEXT escaping on parsed property values.
func unescapeText(s string) string {
	return textUnescaper.Replace(s)
}

var textUnescaper = strings.NewReplacer(`\,`, ",", `\;`, ";", `\n`, "\n", `\N`, "\n", `\\`, `\`)

