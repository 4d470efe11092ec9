package schedule

import (
	"time"

	"lectical/internal/model"
)

// chainState tracks an in-progress adjacency chain during a merge pass.
// The zero value means no chain is pending.
type chainState struct {
	pending bool
	start   time.Time
}

// Merge collapses maximal runs of adjacent events into single spanning
// events, in one forward pass over events (which must be in on-page row
// order, as Reconstruct emits them).
//
// Two consecutive events chain iff the next one starts exactly when the
// current one ends and both subject and location match. Identical slots
// separated by a gap never merge; the timetable fragments hour-long slots,
// it does not omit them. A run of length 1 passes through unchanged, so
// merging is idempotent: a merged event's neighbor can never start at its
// end without having been merged already.
func Merge(events []model.Event) []model.Event {
	merged := make([]model.Event, 0, len(events))
	var chain chainState

	for i, ev := range events {
		if i+1 < len(events) {
			next := events[i+1]
			if next.Start.Equal(ev.End) && next.Subject == ev.Subject && next.Location == ev.Location {
				if !chain.pending {
					chain = chainState{pending: true, start: ev.Start}
				}
				continue
			}
		}

		out := ev
		if chain.pending {
			out.Start = chain.start
			chain = chainState{}
		}
		merged = append(merged, out)
	}

	return merged
}
