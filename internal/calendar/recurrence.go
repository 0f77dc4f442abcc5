package calendar

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	appLog "peoplepulse/internal/log"
	"peoplepulse/internal/model"
)

// DefaultMaxOccurrences caps recurrence expansion per event and query.
const DefaultMaxOccurrences = 50

// Expand produces the occurrences of ev whose start is not after until, in
// increasing start order, at most max of them (DefaultMaxOccurrences when
// max <= 0).
//
// A non-recurring event yields exactly one occurrence, the event itself,
// regardless of until. Recurring occurrences get a deterministic ID of the
// form <base>#<index>@<YYYYMMDD> and keep the base event ID in BaseID.
//
// Monthly recurrence clamps to the last day of shorter months relative to
// the base start: Jan 31 repeats on Feb 29, Mar 31, Apr 30, ...
func Expand(ev model.Event, until time.Time, max int) []model.Occurrence {
	if max <= 0 {
		max = DefaultMaxOccurrences
	}
	if !ev.Recurrence.Repeats() {
		return []model.Occurrence{{Event: ev, BaseID: ev.ID}}
	}
	if until.Before(ev.Start) {
		return nil
	}

	rule, err := ruleFor(ev, until, max)
	if err != nil {
		appLog.Error("expand: invalid recurrence rule", err, "id", ev.ID, "recurrence", ev.Recurrence)
		return []model.Occurrence{{Event: ev, BaseID: ev.ID}}
	}

	starts := rule.All()
	if len(starts) > max {
		starts = starts[:max]
	}

	out := make([]model.Occurrence, 0, len(starts))
	for i, start := range starts {
		occ := occurrenceAt(ev, i, start)
		if occ.Start.After(until) {
			break
		}
		out = append(out, occ)
	}
	return out
}

// ExpandAll expands every event up to until.
func ExpandAll(events []model.Event, until time.Time, max int) []model.Occurrence {
	var out []model.Occurrence
	for _, ev := range events {
		out = append(out, Expand(ev, until, max)...)
	}
	return out
}

// OccurrenceID derives the stable identity of the index-th occurrence.
func OccurrenceID(baseID string, index int, start time.Time) string {
	return fmt.Sprintf("%s#%d@%s", baseID, index, start.Format("20060102"))
}

// occurrenceAt places the index-th occurrence on the calendar day of start,
// at the base event's wall-clock time (including sub-second precision,
// which the rule generator drops).
func occurrenceAt(ev model.Event, index int, day time.Time) model.Occurrence {
	start := atWallClock(day.In(ev.Start.Location()), ev.Start)
	clone := ev
	clone.ID = OccurrenceID(ev.ID, index, start)
	clone.Start = start
	if ev.End != nil {
		end := start.Add(ev.End.Sub(ev.Start))
		clone.End = &end
	}
	return model.Occurrence{Event: clone, BaseID: ev.ID, Index: index}
}

// atWallClock returns day's date at clock's hour, minute, second and
// nanosecond in clock's location. A wall time skipped by a daylight-saving
// transition moves forward by the size of the gap (02:30 becomes 03:30).
func atWallClock(day, clock time.Time) time.Time {
	loc := clock.Location()
	y, m, d := day.Date()
	t := time.Date(y, m, d, clock.Hour(), clock.Minute(), clock.Second(), clock.Nanosecond(), loc)
	if t.Hour() == clock.Hour() && t.Minute() == clock.Minute() {
		return t
	}
	_, before := t.Zone()
	_, after := t.Add(12 * time.Hour).Zone()
	return t.Add(time.Duration(after-before) * time.Second)
}

func ruleFor(ev model.Event, until time.Time, max int) (*rrule.RRule, error) {
	opt := rrule.ROption{
		Dtstart: ev.Start.Truncate(time.Second),
		Until:   until.In(ev.Start.Location()),
		Count:   max,
	}
	switch ev.Recurrence {
	case model.RecurrenceDaily:
		opt.Freq = rrule.DAILY
	case model.RecurrenceWeekly:
		opt.Freq = rrule.WEEKLY
	case model.RecurrenceMonthly:
		opt.Freq = rrule.MONTHLY
		// Plain MONTHLY skips months lacking the start day; pick the last of
		// 28..day in each month instead.
		if day := ev.Start.Day(); day > 28 {
			for d := 28; d <= day; d++ {
				opt.Bymonthday = append(opt.Bymonthday, d)
			}
			opt.Bysetpos = []int{-1}
		}
	default:
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidRecurrence, ev.Recurrence)
	}
	return rrule.NewRRule(opt)
}
