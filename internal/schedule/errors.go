package schedule

import (
	"fmt"
	"time"

	"lectical/internal/model"
)

// TimeParseError reports a malformed time-range field on a specific row.
// It carries the subject and the raw row so a page-layout change upstream
// can be diagnosed from the error alone.
type TimeParseError struct {
	Subject string
	Row     model.RawEntry
	Reason  string
}

func (e *TimeParseError) Error() string {
	return fmt.Sprintf("schedule: bad time range %q for %q (%s week %d, %s): %s",
		e.Row.TimeRange, e.Subject, e.Row.Weekday, e.Row.Week, e.Row.Term, e.Reason)
}

// InvalidIntervalError reports a row whose computed end instant is not
// strictly after its start. Events crossing midnight are unsupported, so
// this always indicates malformed upstream data.
type InvalidIntervalError struct {
	Subject string
	Row     model.RawEntry
	Start   time.Time
	End     time.Time
}

func (e *InvalidIntervalError) Error() string {
	return fmt.Sprintf("schedule: end %s not after start %s for %q (time range %q)",
		e.End.Format("15:04"), e.Start.Format("15:04"), e.Subject, e.Row.TimeRange)
}
