// Package term resolves the week-0 Monday anchor date for an academic
// term. Every relative timetable entry is counted from this one date, so
// getting it wrong shifts the entire calendar; the resolver therefore
// refuses to guess when no matching record exists.
package term

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"lectical/internal/fetch"
	appLog "lectical/internal/log"
	"lectical/internal/model"
)

var (
	// ErrInvalidTerm means the requested term is not one of the three
	// recognized values. Raised before any network work.
	ErrInvalidTerm = errors.New("term: not one of Michaelmas, Hilary, Trinity")

	// ErrAnchorNotFound means no week-0 record matched the requested
	// term and year.
	ErrAnchorNotFound = errors.New("term: no week-0 anchor entry found")
)

// AnchorSource yields the week-0 Monday for a term whose calendar year has
// already been adjusted (Hilary/Trinity fall in the year after the academic
// year starts).
type AnchorSource interface {
	Anchor(ctx context.Context, calendarYear int, t model.Term) (time.Time, error)
}

// Resolve validates the term, applies the academic-to-calendar year
// adjustment and delegates to src.
func Resolve(ctx context.Context, src AnchorSource, academicYear int, t model.Term) (time.Time, error) {
	if !t.Valid() {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTerm, string(t))
	}
	return src.Anchor(ctx, t.CalendarYear(academicYear), t)
}

// LiteralSource returns a caller-supplied Monday as-is. Unlike the feed,
// the caller supplies the Monday itself, so no date adjustment happens.
type LiteralSource struct {
	Date time.Time
}

func (s LiteralSource) Anchor(_ context.Context, _ int, _ model.Term) (time.Time, error) {
	if s.Date.IsZero() {
		return time.Time{}, errors.New("term: literal anchor date is zero")
	}
	return s.Date, nil
}

// FeedSource scans a published term-dates ICS feed for the entry whose
// summary begins "0th Week, <term> Term" and whose date falls in the
// requested calendar year. The feed lists each week starting on the
// preceding Sunday, so one day is added to reach the Monday.
type FeedSource struct {
	Session  *fetch.Session
	URL      string
	Location *time.Location // civil timezone the anchor is expressed in
}

func (s *FeedSource) Anchor(ctx context.Context, calendarYear int, t model.Term) (time.Time, error) {
	res, err := s.Session.Get(ctx, s.URL)
	if err != nil {
		return time.Time{}, fmt.Errorf("term: fetching term-dates feed: %w", err)
	}

	anchor, err := ScanFeed(res.Body, calendarYear, t, s.Location)
	if err != nil {
		return time.Time{}, err
	}
	appLog.Info("term anchor resolved", "term", t, "calendar_year", calendarYear,
		"monday", anchor.Format("2006-01-02"), "from_cache", res.FromCache)
	return anchor, nil
}

// ScanFeed searches an ICS payload for the week-0 entry of the given term
// and calendar year and returns the Monday (feed date + 1 day) at midnight
// in loc.
//
// Feeds are free to publish the yearly markers as recurring events, so an
// entry carrying an RRULE is expanded and each occurrence tested against
// the requested year.
func ScanFeed(body []byte, calendarYear int, t model.Term, loc *time.Location) (time.Time, error) {
	cal, err := ics.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return time.Time{}, fmt.Errorf("term: parsing term-dates feed: %w", err)
	}

	wanted := fmt.Sprintf("0th Week, %s Term", t)

	for _, ve := range cal.Events() {
		sum := ve.GetProperty(ics.ComponentPropertySummary)
		// Commas in SUMMARY arrive backslash-escaped per RFC 5545.
		if sum == nil || !strings.HasPrefix(strings.ReplaceAll(sum.Value, "\\,", ","), wanted) {
			continue
		}

		start, err := ve.GetStartAt()
		if err != nil {
			// Some feeds use date-only DTSTART which GetStartAt
			// rejects; fall back to the all-day accessor.
			start, err = ve.GetAllDayStartAt()
			if err != nil {
				continue
			}
		}

		if rr := ve.GetProperty(ics.ComponentPropertyRrule); rr != nil {
			occ, ok := occurrenceInYear(rr.Value, start, calendarYear)
			if !ok {
				continue
			}
			start = occ
		} else if start.Year() != calendarYear {
			continue
		}

		// The feed entry begins on the Sunday before; step to Monday.
		monday := start.AddDate(0, 0, 1)
		return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, loc), nil
	}

	return time.Time{}, fmt.Errorf("%w: %s %d", ErrAnchorNotFound, t, calendarYear)
}

// occurrenceInYear expands rawRRule from dtstart and returns the occurrence
// falling in the given year, if any.
func occurrenceInYear(rawRRule string, dtstart time.Time, year int) (time.Time, bool) {
	r, err := rrule.StrToRRule(rawRRule)
	if err != nil {
		appLog.Warn("term feed entry has unparsable RRULE", "rrule", rawRRule, "err", err)
		return time.Time{}, false
	}
	r.DTStart(dtstart)

	windowStart := time.Date(year, time.January, 1, 0, 0, 0, 0, dtstart.Location())
	windowEnd := time.Date(year, time.December, 31, 23, 59, 59, 0, dtstart.Location())

	for _, occ := range r.Between(windowStart, windowEnd, true) {
		if occ.Year() == year {
			return occ, true
		}
	}
	return time.Time{}, false
}
