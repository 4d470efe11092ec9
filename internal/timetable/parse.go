// Package timetable extracts raw schedule rows from the department's HTML
// pages. Extraction is purely positional: the five columns are read by
// index per the configured order and nothing about the surrounding markup
// is validated.
package timetable

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"lectical/internal/model"
)

// ColumnOrder names the five table columns in on-page order. The layout
// has shifted between academic years, so the order is data, not code.
type ColumnOrder []string

// DefaultColumnOrder matches the layout in use since 2023.
var DefaultColumnOrder = ColumnOrder{"weekday", "week", "term", "time", "location"}

func (o ColumnOrder) validate() error {
	if len(o) != 5 {
		return fmt.Errorf("timetable: column order needs 5 names, got %d", len(o))
	}
	seen := map[string]bool{}
	for _, name := range o {
		switch name {
		case "weekday", "week", "term", "time", "location":
			if seen[name] {
				return fmt.Errorf("timetable: duplicate column %q", name)
			}
			seen[name] = true
		default:
			return fmt.Errorf("timetable: unknown column %q", name)
		}
	}
	return nil
}

// ListCourses pulls the unique course links out of the term overview page.
// Each link's text is the course label and its href (resolved against
// baseURL) is the course schedule page. First occurrence wins on
// duplicates; the overview lists morning and afternoon segments that link
// to the same page.
func ListCourses(body []byte, baseURL string) ([]model.CourseLink, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("timetable: parsing overview page: %w", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("timetable: overview page has no table")
	}

	links := make([]model.CourseLink, 0)
	seen := map[string]bool{}
	table.Find("a").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || href == "" || seen[href] {
			return
		}
		seen[href] = true
		links = append(links, model.CourseLink{
			Subject: strings.TrimSpace(a.Text()),
			URL:     strings.TrimRight(baseURL, "/") + "/" + href,
		})
	})

	if len(links) == 0 {
		return nil, fmt.Errorf("timetable: overview table has no course links")
	}
	return links, nil
}

// ParseRows extracts the raw schedule rows from one course page. The first
// table row holds column titles and is skipped; every following row must
// carry at least five cells, read positionally per order.
func ParseRows(body []byte, order ColumnOrder) ([]model.RawEntry, error) {
	if err := order.validate(); err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("timetable: parsing course page: %w", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("timetable: course page has no table")
	}

	var entries []model.RawEntry
	var rowErr error

	table.Find("tr").Each(func(i int, tr *goquery.Selection) {
		if i == 0 || rowErr != nil {
			return
		}
		cells := tr.Find("td")
		if cells.Length() < len(order) {
			rowErr = fmt.Errorf("timetable: row %d has %d cells, want %d", i, cells.Length(), len(order))
			return
		}

		entry, err := entryFromCells(cells, order)
		if err != nil {
			rowErr = fmt.Errorf("timetable: row %d: %w", i, err)
			return
		}
		entries = append(entries, entry)
	})

	if rowErr != nil {
		return nil, rowErr
	}
	return entries, nil
}

func entryFromCells(cells *goquery.Selection, order ColumnOrder) (model.RawEntry, error) {
	var entry model.RawEntry

	for idx, name := range order {
		text := strings.TrimSpace(cells.Eq(idx).Text())
		switch name {
		case "weekday":
			day, err := model.ParseWeekday(text)
			if err != nil {
				return entry, err
			}
			entry.Weekday = day
		case "week":
			week, err := strconv.Atoi(text)
			if err != nil {
				return entry, fmt.Errorf("bad week number %q", text)
			}
			if week < 0 {
				return entry, fmt.Errorf("negative week number %d", week)
			}
			entry.Week = week
		case "term":
			entry.Term = text
		case "time":
			// Left raw: the reconstructor owns time parsing and its
			// whitespace tolerance.
			entry.TimeRange = text
		case "location":
			entry.Location = text
		}
	}

	return entry, nil
}
