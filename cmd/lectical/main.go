package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"lectical/internal/config"
	"lectical/internal/fetch"
	"lectical/internal/ical"
	appLog "lectical/internal/log"
	"lectical/internal/model"
	"lectical/internal/prompt"
	"lectical/internal/schedule"
	"lectical/internal/term"
	"lectical/internal/timetable"
)

type flagConfig struct {
	configPath string
	term       string
	year       int
	cohort     int
	anchor     string // literal week-0 Monday, YYYY-MM-DD; bypasses the feed
	out        string
	refresh    string // cron spec; keeps regenerating until interrupted
	yes        bool   // non-interactive: keep every course
	verbose    bool
}

func main() {
	flags := parseFlags()

	if flags.verbose {
		appLog.SetLevel(appLog.LevelDebug)
	}
	appLog.Info("lectical starting", "version", "0.1.0")

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.refresh == "" {
		flags.refresh = conf.RefreshCron
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	a, err := newApp(ctx, conf, flags)
	if err != nil {
		appLog.Error("setup failed", err)
		os.Exit(1)
	}

	if flags.refresh == "" {
		if err := a.run(ctx); err != nil {
			appLog.Error("run failed", err)
			os.Exit(1)
		}
		return
	}

	// Refresh mode: run once now, then on the cron schedule until a
	// signal arrives. Interactive answers are gathered up front or on
	// the first run, so scheduled runs never block on a prompt.
	if err := a.run(ctx); err != nil {
		appLog.Error("initial run failed", err)
		os.Exit(1)
	}

	c := cron.New()
	_, err = c.AddFunc(flags.refresh, func() {
		if err := a.run(ctx); err != nil {
			appLog.Error("scheduled run failed", err)
		}
	})
	if err != nil {
		appLog.Error("bad refresh cron spec", err, "spec", flags.refresh)
		os.Exit(1)
	}
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	appLog.Info("lectical exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", defaultConfigPath(), "Path to config file")
	flag.StringVar(&cfg.term, "term", "", "Academic term (Michaelmas, Hilary or Trinity)")
	flag.IntVar(&cfg.year, "year", 0, "Academic year, e.g. 2023 for 2023-2024")
	flag.IntVar(&cfg.cohort, "cohort", 0, "Year group (1-4)")
	flag.StringVar(&cfg.anchor, "anchor", "", "Week-0 Monday as YYYY-MM-DD (skips the term-dates feed)")
	flag.StringVar(&cfg.out, "out", "", "Output path (default: conventional filename in the working directory)")
	flag.StringVar(&cfg.refresh, "refresh", "", "Cron spec to keep regenerating the calendar (overrides config)")
	flag.BoolVar(&cfg.yes, "yes", false, "Skip the course-selection prompt and keep all courses")
	flag.BoolVar(&cfg.verbose, "verbose", false, "Enable debug logging")

	flag.Parse()

	return cfg
}

func defaultConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "lectical", "config.yaml")
	}
	return "lectical.yaml"
}

// app holds everything a pipeline run needs, with all interactive input
// already resolved.
type app struct {
	conf    *config.Config
	flags   flagConfig
	loc     *time.Location
	session *fetch.Session
	term    model.Term
	year    int
	cohort  int
	exclude map[string]bool // subjects dropped before emission; nil keeps all
}

func newApp(ctx context.Context, conf *config.Config, flags flagConfig) (*app, error) {
	loc, err := time.LoadLocation(conf.Timezone)
	if err != nil {
		return nil, fmt.Errorf("bad timezone %q: %w", conf.Timezone, err)
	}

	a := &app{conf: conf, flags: flags, loc: loc}

	if flags.term == "" {
		t, err := prompt.Term()
		if err != nil {
			return nil, err
		}
		a.term = t
	} else {
		a.term = model.Term(flags.term)
	}
	// Fail on a bad -term value before any network work.
	if !a.term.Valid() {
		return nil, fmt.Errorf("%w: %q", term.ErrInvalidTerm, flags.term)
	}

	a.year = flags.year
	if a.year == 0 {
		if a.year, err = prompt.AcademicYear(); err != nil {
			return nil, err
		}
	}

	a.cohort = flags.cohort
	if a.cohort == 0 {
		if a.cohort, err = prompt.CohortYear(); err != nil {
			return nil, err
		}
	}
	if a.cohort < 1 || a.cohort > 4 {
		return nil, fmt.Errorf("cohort year %d out of range 1-4", a.cohort)
	}

	var auth *fetch.BasicAuth
	if conf.BasicAuth != nil {
		auth = &fetch.BasicAuth{Username: conf.BasicAuth.Username, Password: conf.BasicAuth.Password}
	}
	a.session = fetch.NewSession(conf.CacheDir, auth)

	// The host only challenges off-network; probe once and prompt for
	// credentials if needed and none are configured.
	if auth == nil {
		needed, err := a.session.NeedsAuth(ctx, conf.Host)
		if err != nil {
			return nil, fmt.Errorf("probing %s: %w", fetch.RedactURL(conf.Host), err)
		}
		if needed {
			user, pass, err := prompt.Credentials()
			if err != nil {
				return nil, err
			}
			a.session.SetAuth(&fetch.BasicAuth{Username: user, Password: pass})
		}
	}

	return a, nil
}

// run executes one full scrape-reconstruct-merge-emit pass.
func (a *app) run(ctx context.Context) error {
	anchor, err := a.resolveAnchor(ctx)
	if err != nil {
		return err
	}

	scraper := &timetable.Scraper{
		Session: a.session,
		Host:    a.conf.Host,
		Order:   timetable.ColumnOrder(a.conf.ColumnOrder),
	}

	links, err := scraper.ListCourses(ctx, a.term, a.year, a.cohort)
	if err != nil {
		return err
	}

	if err := a.selectCourses(links); err != nil {
		return err
	}
	kept := links[:0:0]
	for _, link := range links {
		if !a.exclude[link.Subject] {
			kept = append(kept, link)
		}
	}

	courses, err := scraper.FetchAll(ctx, kept)
	if err != nil {
		return err
	}

	var events []model.Event
	for _, course := range courses {
		reconstructed, err := schedule.Reconstruct(course.Link.Subject, course.Link.URL, course.Rows, a.term, anchor)
		if err != nil {
			return err
		}
		events = append(events, schedule.Merge(reconstructed)...)
	}

	emitter := &ical.Emitter{}
	data, err := emitter.Emit(events, ical.Metadata{
		Prefix:     a.conf.FilePrefix,
		Term:       a.term,
		Year:       a.year,
		CohortYear: a.cohort,
	})
	if err != nil {
		return err
	}

	out := a.flags.out
	if out == "" {
		out = ical.Filename(a.conf.FilePrefix, a.cohort, a.term, a.year)
	}
	if err := writeFileAtomic(out, data); err != nil {
		return err
	}

	appLog.Info("calendar written", "path", out, "events", len(events))
	return nil
}

func (a *app) resolveAnchor(ctx context.Context) (time.Time, error) {
	var src term.AnchorSource
	if a.flags.anchor != "" {
		date, err := time.ParseInLocation("2006-01-02", a.flags.anchor, a.loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("bad -anchor date: %w", err)
		}
		src = term.LiteralSource{Date: date}
	} else {
		src = &term.FeedSource{Session: a.session, URL: a.conf.TermDatesURL, Location: a.loc}
	}
	return term.Resolve(ctx, src, a.year, a.term)
}

// selectCourses fills a.exclude from the interactive multi-select on the
// first run; later refresh runs reuse the same answer.
func (a *app) selectCourses(links []model.CourseLink) error {
	if a.exclude != nil || a.flags.yes {
		return nil
	}
	subjects := make([]string, 0, len(links))
	for _, link := range links {
		subjects = append(subjects, link.Subject)
	}

	selected, err := prompt.Courses(subjects)
	if err != nil {
		return err
	}
	keep := make(map[string]bool, len(selected))
	for _, s := range selected {
		keep[s] = true
	}

	a.exclude = make(map[string]bool)
	for _, s := range subjects {
		if !keep[s] {
			a.exclude[s] = true
		}
	}
	return nil
}

// writeFileAtomic writes the whole document via a temp file and rename so
// a calendar client watching the path never sees a partial file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".lectical-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
