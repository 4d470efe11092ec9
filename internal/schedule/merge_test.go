package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lectical/internal/model"
)

func slot(subject, location string, startHour, endHour int) model.Event {
	day := time.Date(2023, time.October, 5, 0, 0, 0, 0, time.UTC)
	return model.Event{
		Subject:  subject,
		Location: location,
		Start:    day.Add(time.Duration(startHour) * time.Hour),
		End:      day.Add(time.Duration(endHour) * time.Hour),
	}
}

func TestMergeCollapsesAdjacentChain(t *testing.T) {
	events := []model.Event{
		slot("Quantum Mechanics", "Lecture Room A", 10, 11),
		slot("Quantum Mechanics", "Lecture Room A", 11, 12),
		slot("Quantum Mechanics", "Lecture Room A", 12, 13),
	}

	merged := Merge(events)
	require.Len(t, merged, 1)
	assert.Equal(t, events[0].Start, merged[0].Start)
	assert.Equal(t, events[2].End, merged[0].End)
	assert.Equal(t, "Quantum Mechanics", merged[0].Subject)
	assert.Equal(t, "Lecture Room A", merged[0].Location)
}

func TestMergeLocationBreakSplitsChain(t *testing.T) {
	events := []model.Event{
		slot("Quantum Mechanics", "Lecture Room A", 10, 11),
		slot("Quantum Mechanics", "Lecture Room B", 11, 12),
		slot("Quantum Mechanics", "Lecture Room A", 12, 13),
	}

	merged := Merge(events)
	require.Len(t, merged, 3)
	assert.Equal(t, events[0], merged[0])
	assert.Equal(t, events[1], merged[1])
	assert.Equal(t, events[2], merged[2])
}

func TestMergeSubjectBreakSplitsChain(t *testing.T) {
	events := []model.Event{
		slot("Quantum Mechanics", "Lecture Room A", 10, 11),
		slot("Thermal Physics", "Lecture Room A", 11, 12),
	}

	merged := Merge(events)
	assert.Len(t, merged, 2)
}

func TestMergeGapNeverMerges(t *testing.T) {
	// Identical subject and location but an hour apart: never merged.
	events := []model.Event{
		slot("Quantum Mechanics", "Lecture Room A", 10, 11),
		slot("Quantum Mechanics", "Lecture Room A", 12, 13),
	}

	merged := Merge(events)
	assert.Len(t, merged, 2)
}

func TestMergePartialChains(t *testing.T) {
	events := []model.Event{
		slot("A", "r", 9, 10),
		slot("A", "r", 10, 11),
		slot("B", "r", 11, 12),
		slot("B", "r", 12, 13),
		slot("B", "r", 14, 15),
	}

	merged := Merge(events)
	require.Len(t, merged, 3)
	assert.Equal(t, events[0].Start, merged[0].Start)
	assert.Equal(t, events[1].End, merged[0].End)
	assert.Equal(t, events[2].Start, merged[1].Start)
	assert.Equal(t, events[3].End, merged[1].End)
	assert.Equal(t, events[4], merged[2])
}

func TestMergeIdempotent(t *testing.T) {
	events := []model.Event{
		slot("A", "r", 9, 10),
		slot("A", "r", 10, 11),
		slot("A", "r", 11, 12),
		slot("B", "r", 12, 13),
	}

	once := Merge(events)
	twice := Merge(once)
	assert.Equal(t, once, twice)
}

func TestMergeEmptyAndSingle(t *testing.T) {
	assert.Empty(t, Merge(nil))

	single := []model.Event{slot("A", "r", 9, 10)}
	assert.Equal(t, single, Merge(single))
}

func TestMergeDoesNotMutateInput(t *testing.T) {
	events := []model.Event{
		slot("A", "r", 9, 10),
		slot("A", "r", 10, 11),
	}
	orig := make([]model.Event, len(events))
	copy(orig, events)

	Merge(events)
	assert.Equal(t, orig, events)
}
