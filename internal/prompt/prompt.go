// Package prompt holds the interactive questions asked when the CLI flags
// leave term, year, cohort or course selection unspecified.
package prompt

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"

	"lectical/internal/model"
)

// Term asks which academic term to query.
func Term() (model.Term, error) {
	var t model.Term
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[model.Term]().
				Title("Which term of the academic year should I look at?").
				Options(
					huh.NewOption("Michaelmas", model.Michaelmas),
					huh.NewOption("Hilary", model.Hilary),
					huh.NewOption("Trinity", model.Trinity),
				).
				Value(&t),
		),
	).Run()
	return t, err
}

// AcademicYear asks for the starting year of the academic year,
// e.g. 2023 for 2023-2024.
func AcademicYear() (int, error) {
	return askInt("What academic year is it? e.g. 2023 for 2023-2024", 1900, 2999)
}

// CohortYear asks which year group to query.
func CohortYear() (int, error) {
	return askInt("Which year group should I look at?", 1, 4)
}

func askInt(title string, min, max int) (int, error) {
	var raw string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(title).
				Validate(func(s string) error {
					n, err := strconv.Atoi(s)
					if err != nil {
						return fmt.Errorf("enter a number")
					}
					if n < min || n > max {
						return fmt.Errorf("enter a number between %d and %d", min, max)
					}
					return nil
				}).
				Value(&raw),
		),
	).Run()
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(raw)
}

// Credentials asks for the department credentials (not SSO) when the
// timetable host answers 401 from outside the university network.
func Credentials() (username, password string, err error) {
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Authentication required! Physics department username (NOT SSO)").
				Value(&username),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&password),
		),
	).Run()
	return username, password, err
}

// Courses asks which of the scraped courses to keep in the calendar. All
// courses start selected; deselecting one excludes it before emission.
func Courses(subjects []string) ([]string, error) {
	opts := make([]huh.Option[string], 0, len(subjects))
	for _, s := range subjects {
		opts = append(opts, huh.NewOption(s, s).Selected(true))
	}

	var selected []string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Select the courses to be placed in the calendar").
				Options(opts...).
				Value(&selected),
		),
	).Run()
	return selected, err
}
