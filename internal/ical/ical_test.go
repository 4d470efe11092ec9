package ical

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lectical/internal/model"
)

var testMeta = Metadata{Prefix: "OxfPhysTimetable", Term: model.Michaelmas, Year: 2023, CohortYear: 3}

func testEvents() []model.Event {
	day := time.Date(2023, time.October, 9, 0, 0, 0, 0, time.UTC)
	return []model.Event{
		{
			Subject:  "Quantum Mechanics",
			Start:    day.Add(10 * time.Hour),
			End:      day.Add(13 * time.Hour),
			Location: "Lecture Room A",
			URL:      "https://example.org/lectures2/course.aspx?id=1",
		},
		{
			Subject: "Thermal Physics",
			Start:   day.Add(14 * time.Hour),
			End:     day.Add(15 * time.Hour),
		},
	}
}

func TestEmitRoundTrip(t *testing.T) {
	e := &Emitter{}
	data, err := e.Emit(testEvents(), testMeta)
	require.NoError(t, err)

	parsed, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, parsed, 2)

	for i, want := range testEvents() {
		assert.Equal(t, want.Subject, parsed[i].Subject)
		assert.True(t, want.Start.Equal(parsed[i].Start), "start: want %s got %s", want.Start, parsed[i].Start)
		assert.True(t, want.End.Equal(parsed[i].End), "end: want %s got %s", want.End, parsed[i].End)
		assert.Equal(t, want.Location, parsed[i].Location)
		assert.Equal(t, want.URL, parsed[i].URL)
	}
}

func TestEmitProductId(t *testing.T) {
	data, err := (&Emitter{}).Emit(nil, testMeta)
	require.NoError(t, err)
	assert.Contains(t, string(data), "-//OxfPhysTimetable Year 3 Michaelmas 2023//EN")
	assert.Contains(t, string(data), "VERSION:2.0")
}

func TestEmitDtStampIsUTCEmissionTime(t *testing.T) {
	loc := time.FixedZone("BST", 3600)
	fixed := time.Date(2023, time.September, 30, 13, 0, 0, 0, loc)

	e := &Emitter{Now: func() time.Time { return fixed }}
	data, err := e.Emit(testEvents(), testMeta)
	require.NoError(t, err)

	// 13:00 +0100 is 12:00 UTC.
	assert.Contains(t, string(data), "DTSTAMP:20230930T120000Z")
}

func TestEmitUsesCRLFLineEndings(t *testing.T) {
	data, err := (&Emitter{}).Emit(testEvents(), testMeta)
	require.NoError(t, err)

	s := string(data)
	assert.True(t, strings.HasPrefix(s, "BEGIN:VCALENDAR\r\n"))
	assert.True(t, strings.HasSuffix(s, "END:VCALENDAR\r\n"))
	// Every LF must be part of a CRLF pair, regardless of platform.
	assert.Equal(t, strings.Count(s, "\n"), strings.Count(s, "\r\n"))
}

func TestEmitUIDsUniquePerDocument(t *testing.T) {
	data, err := (&Emitter{}).Emit(testEvents(), testMeta)
	require.NoError(t, err)

	uids := map[string]bool{}
	for _, line := range strings.Split(string(data), "\r\n") {
		if uid, ok := strings.CutPrefix(line, "UID:"); ok {
			assert.False(t, uids[uid], "duplicate UID %s", uid)
			uids[uid] = true
		}
	}
	assert.Len(t, uids, 2)
}

func TestEmitRejectsInvalidInterval(t *testing.T) {
	bad := []model.Event{{
		Subject: "s",
		Start:   time.Date(2023, 10, 9, 11, 0, 0, 0, time.UTC),
		End:     time.Date(2023, 10, 9, 10, 0, 0, 0, time.UTC),
	}}
	_, err := (&Emitter{}).Emit(bad, testMeta)
	require.Error(t, err)
}

func TestParseEmpty(t *testing.T) {
	_, err := Parse(nil)
	assert.Error(t, err)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "OxfPhysTimetable_Year3_Michaelmas2023.ics",
		Filename("OxfPhysTimetable", 3, model.Michaelmas, 2023))
	assert.Equal(t, "OxfPhysTimetable_Year1_Hilary2024.ics",
		Filename("OxfPhysTimetable", 1, model.Hilary, 2024))
}
