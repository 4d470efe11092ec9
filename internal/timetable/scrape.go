package timetable

import (
	"context"
	"fmt"
	"net/url"

	"golang.org/x/sync/errgroup"

	"lectical/internal/fetch"
	appLog "lectical/internal/log"
	"lectical/internal/model"
)

const defaultConcurrency = 4

// CourseRows pairs a course link with its raw rows, in on-page order.
type CourseRows struct {
	Link model.CourseLink
	Rows []model.RawEntry
}

// Scraper retrieves and parses the timetable pages for one query.
type Scraper struct {
	Session *fetch.Session
	Host    string
	Order   ColumnOrder

	// Concurrency bounds parallel course-page fetches. Zero means a
	// small default; rows within one course always stay in page order
	// regardless.
	Concurrency int
}

// OverviewURL builds the term overview query URL for a cohort.
func (s *Scraper) OverviewURL(t model.Term, academicYear, cohortYear int) string {
	params := url.Values{}
	params.Set("term", string(t))
	params.Set("year", fmt.Sprint(academicYear))
	params.Set("course", fmt.Sprintf("%dphysics", cohortYear))
	return fmt.Sprintf("%s/timetable.aspx?%s", s.Host, params.Encode())
}

// ListCourses fetches the overview page and returns its course links.
func (s *Scraper) ListCourses(ctx context.Context, t model.Term, academicYear, cohortYear int) ([]model.CourseLink, error) {
	res, err := s.Session.Get(ctx, s.OverviewURL(t, academicYear, cohortYear))
	if err != nil {
		return nil, fmt.Errorf("timetable: fetching overview: %w", err)
	}
	links, err := ListCourses(res.Body, s.Host)
	if err != nil {
		return nil, err
	}
	appLog.Info("course links found", "count", len(links), "term", t, "year", academicYear, "cohort", cohortYear)
	return links, nil
}

// FetchAll fetches every course page concurrently and parses its rows. The
// result slice is aligned with links, so cross-course ordering is stable
// even though fetches race; within one course the rows keep their on-page
// order, which the reconstruction and merge steps rely on.
func (s *Scraper) FetchAll(ctx context.Context, links []model.CourseLink) ([]CourseRows, error) {
	out := make([]CourseRows, len(links))

	limit := s.Concurrency
	if limit <= 0 {
		limit = defaultConcurrency
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, link := range links {
		g.Go(func() error {
			res, err := s.Session.Get(ctx, link.URL)
			if err != nil {
				return fmt.Errorf("timetable: fetching %q: %w", link.Subject, err)
			}
			rows, err := ParseRows(res.Body, s.Order)
			if err != nil {
				return fmt.Errorf("timetable: course %q: %w", link.Subject, err)
			}
			out[i] = CourseRows{Link: link, Rows: rows}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
