package ics

import (
	"bytes"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/pkg/errors"
	"github.com/teambition/rrule-go"

	appLog "peoplepulse/internal/log"
	"peoplepulse/internal/model"
)

// SourceTag is the model.Event Source value for events loaded from src.
func SourceTag(src Source) string {
	return "ics:" + src.ID
}

// ParseICS converts the VEVENTs of an ICS payload into calendar events.
//
//   - All-day events are detected from the DTSTART value format.
//   - RRULEs with FREQ=DAILY/WEEKLY/MONTHLY and no interval or BY* parts map
//     onto the event's Recurrence. Anything richer is kept as a one-off
//     event and logged.
//   - Overrides (VEVENTs carrying RECURRENCE-ID) are skipped.
//
// The feed's Type and Color are applied to every event. All-day dates are
// placed at midnight in loc (nil means time.Local), keeping their calendar
// day.
func ParseICS(src Source, body []byte, loc *time.Location) ([]model.Event, error) {
	if loc == nil {
		loc = time.Local
	}
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "id", src.ID, "url", redactURL(src.URL))
		return nil, errors.Wrapf(err, "parse ics %s", src.ID)
	}

	events := make([]model.Event, 0)
	for _, comp := range cal.Events() {
		if comp.GetProperty(ical.ComponentPropertyRecurrenceId) != nil {
			continue
		}
		ev, perr := parseVEvent(src, comp, loc)
		if perr != nil {
			// Log and skip this event, but keep parsing others.
			appLog.Error("ics vevent parse failed", perr, "id", src.ID, "url", redactURL(src.URL))
			continue
		}
		events = append(events, ev)
	}

	appLog.Info("ics parse completed", "id", src.ID, "url", redactURL(src.URL), "event_count", len(events))
	return events, nil
}

func parseVEvent(src Source, ve *ical.VEvent, loc *time.Location) (model.Event, error) {
	ev := model.Event{
		Type:       src.Type,
		Color:      src.Color,
		Recurrence: model.RecurrenceNone,
		ReadOnly:   true,
		Source:     SourceTag(src),
	}

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return ev, errors.New("missing UID")
	}
	ev.ID = src.ID + ":" + uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		ev.Title = p.Value
	}
	if ev.Title == "" {
		ev.Title = src.Name
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		ev.Description = p.Value
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return ev, errors.Wrap(err, "DTSTART")
	}
	ev.Start = start
	if end, err := ve.GetEndAt(); err == nil && !end.Before(start) {
		ev.End = &end
	}

	if p := ve.GetProperty(ical.ComponentPropertyDtStart); p != nil {
		if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			ev.AllDay = true
		}
		if !strings.Contains(p.Value, "T") {
			ev.AllDay = true
		}
	}
	if ev.AllDay {
		ev.Start = dateIn(start, loc)
		if ev.End != nil {
			end := dateIn(*ev.End, loc)
			ev.End = &end
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil && p.Value != "" {
		rec, ok := recurrenceFromRRule(p.Value)
		if !ok {
			appLog.Warn("ics rrule not representable; keeping first occurrence only", "id", src.ID, "uid", uidProp.Value, "rrule", p.Value)
		}
		ev.Recurrence = rec
	}

	return ev, nil
}

// recurrenceFromRRule maps a plain DAILY/WEEKLY/MONTHLY rule onto a
// Recurrence. ok is false when the rule carries an interval, count, until
// or BY* parts the engine cannot honour.
func recurrenceFromRRule(raw string) (model.Recurrence, bool) {
	opt, err := rrule.StrToROption(raw)
	if err != nil {
		return model.RecurrenceNone, false
	}
	if opt.Interval > 1 || opt.Count > 0 || !opt.Until.IsZero() ||
		len(opt.Byweekday) > 0 || len(opt.Bymonthday) > 0 || len(opt.Bymonth) > 0 || len(opt.Bysetpos) > 0 {
		return model.RecurrenceNone, false
	}
	switch opt.Freq {
	case rrule.DAILY:
		return model.RecurrenceDaily, true
	case rrule.WEEKLY:
		return model.RecurrenceWeekly, true
	case rrule.MONTHLY:
		return model.RecurrenceMonthly, true
	default:
		return model.RecurrenceNone, false
	}
}

// dateIn keeps t's calendar date and moves it to midnight in loc. Date-only
// values decode as UTC midnight, so converting the instant would shift the
// day for zones west of UTC.
func dateIn(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
