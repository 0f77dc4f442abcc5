package hr

import (
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"

	"peoplepulse/internal/model"
)

// Dataset is an export of HR records as served by the backend listings.
type Dataset struct {
	Timesheets []Timesheet `json:"timesheets" validate:"dive"`
	Holidays   []Holiday   `json:"holidays" validate:"dive"`
	Leaves     []Leave     `json:"leaves" validate:"dive"`
}

// LoadDataset reads and validates a JSON dataset file.
func LoadDataset(path string) (*Dataset, error) {
	if path == "" {
		return nil, errors.New("dataset path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read dataset")
	}

	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, errors.Wrapf(err, "decode dataset %s", path)
	}
	if err := model.Validator().Struct(&ds); err != nil {
		return nil, errors.Wrapf(err, "validate dataset %s", path)
	}
	return &ds, nil
}

// Events converts every record into calendar events. Record dates keep
// their calendar day and are placed at midnight in loc (nil keeps the
// decoded zone).
func (ds *Dataset) Events(viewerID string, loc *time.Location) []model.Event {
	var out []model.Event
	for _, h := range ds.Holidays {
		h.Date = onDay(h.Date, loc)
		out = append(out, HolidayEvent(h))
	}
	for _, l := range ds.Leaves {
		days := make([]LeaveDay, len(l.LeaveDays))
		for i, d := range l.LeaveDays {
			d.Date = onDay(d.Date, loc)
			days[i] = d
		}
		l.LeaveDays = days
		out = append(out, LeaveEvents(l)...)
	}
	for _, ts := range ds.Timesheets {
		ts.TimesheetDate = onDay(ts.TimesheetDate, loc)
		out = append(out, TimesheetEvent(ts, viewerID))
	}
	return out
}

func onDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = t.Location()
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
