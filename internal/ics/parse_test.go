package ics

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peoplepulse/internal/model"
)

const sampleICS = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//PeoplePulse//Test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:new-year\r\n" +
	"DTSTAMP:20240101T000000Z\r\n" +
	"DTSTART;VALUE=DATE:20240101\r\n" +
	"DTEND;VALUE=DATE:20240102\r\n" +
	"SUMMARY:New Year\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:standup\r\n" +
	"DTSTAMP:20240101T000000Z\r\n" +
	"DTSTART:20240102T090000Z\r\n" +
	"DTEND:20240102T091500Z\r\n" +
	"SUMMARY:Standup\r\n" +
	"RRULE:FREQ=WEEKLY\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:biweekly\r\n" +
	"DTSTAMP:20240101T000000Z\r\n" +
	"DTSTART:20240103T090000Z\r\n" +
	"SUMMARY:Sprint review\r\n" +
	"RRULE:FREQ=WEEKLY;INTERVAL=2\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:standup\r\n" +
	"DTSTAMP:20240101T000000Z\r\n" +
	"RECURRENCE-ID:20240109T090000Z\r\n" +
	"DTSTART:20240109T100000Z\r\n" +
	"SUMMARY:Standup (moved)\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestParseICS(t *testing.T) {
	src := Source{ID: "company", Name: "Company", Type: "Holiday", Color: "#0af"}

	events, err := ParseICS(src, []byte(sampleICS), time.UTC)
	require.NoError(t, err)
	require.Len(t, events, 3)

	newYear := events[0]
	assert.Equal(t, "company:new-year", newYear.ID)
	assert.Equal(t, "New Year", newYear.Title)
	assert.True(t, newYear.AllDay)
	assert.Equal(t, "Holiday", newYear.Type)
	assert.Equal(t, "#0af", newYear.Color)
	assert.Equal(t, "ics:company", newYear.Source)
	assert.Equal(t, model.RecurrenceNone, newYear.Recurrence)
	assert.True(t, newYear.ReadOnly)

	standup := events[1]
	assert.Equal(t, model.RecurrenceWeekly, standup.Recurrence)
	assert.True(t, time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC).Equal(standup.Start))
	require.NotNil(t, standup.End)
	assert.Equal(t, 15*time.Minute, standup.End.Sub(standup.Start))

	assert.Equal(t, model.RecurrenceNone, events[2].Recurrence)
}

func TestParseICSKeepsAllDayDateInDisplayZone(t *testing.T) {
	cases := []string{"America/New_York", "America/Los_Angeles", "Asia/Kolkata", "Pacific/Auckland"}
	for _, name := range cases {
		loc, err := time.LoadLocation(name)
		require.NoError(t, err)

		events, err := ParseICS(Source{ID: "company"}, []byte(sampleICS), loc)
		require.NoError(t, err, name)

		newYear := events[0]
		require.True(t, newYear.AllDay)
		assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, loc), newYear.Start, name)
		assert.Equal(t, loc, newYear.Start.Location(), name)
		require.NotNil(t, newYear.End)
		assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, loc), *newYear.End, name)

		// Timed events keep their instant.
		assert.True(t, time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC).Equal(events[1].Start), name)
	}
}

func TestParseICSRejectsEmptyBody(t *testing.T) {
	_, err := ParseICS(Source{ID: "x"}, nil, nil)
	assert.Error(t, err)
}

func TestRecurrenceFromRRule(t *testing.T) {
	cases := []struct {
		raw  string
		want model.Recurrence
		ok   bool
	}{
		{"FREQ=DAILY", model.RecurrenceDaily, true},
		{"FREQ=MONTHLY", model.RecurrenceMonthly, true},
		{"FREQ=WEEKLY;BYDAY=MO,WE", model.RecurrenceNone, false},
		{"FREQ=DAILY;COUNT=3", model.RecurrenceNone, false},
		{"FREQ=YEARLY", model.RecurrenceNone, false},
		{"garbage", model.RecurrenceNone, false},
	}
	for _, tc := range cases {
		got, ok := recurrenceFromRRule(tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
		assert.Equal(t, tc.ok, ok, tc.raw)
	}
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://example.com/...(redacted)", redactURL("https://example.com/private/cal.ics?token=abc"))
	assert.Equal(t, "ics://...(redacted)", redactURL("not a url"))
}
