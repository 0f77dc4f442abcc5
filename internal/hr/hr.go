// Package hr adapts HR backend records (timesheets, holidays, leaves) into
// calendar events.
package hr

import (
	"fmt"
	"strings"
	"time"

	"peoplepulse/internal/calendar"
	"peoplepulse/internal/model"
)

// Event types produced by this package.
const (
	TypeTimesheet = "Timesheet"
	TypeHoliday   = "Holiday"
	TypeLeave     = "Leave"
)

type TimesheetStatus string

const (
	TimesheetPending     TimesheetStatus = "pending"
	TimesheetApproved    TimesheetStatus = "approved"
	TimesheetRejected    TimesheetStatus = "rejected"
	TimesheetResubmitted TimesheetStatus = "resubmitted"
)

type Named struct {
	Name string `json:"name"`
}

// Timesheet is a day's logged work on a project.
type Timesheet struct {
	UUID          string          `json:"uuid" validate:"required"`
	CreatedBy     string          `json:"createdBy"`
	ProjectID     string          `json:"projectId"`
	TimesheetDate time.Time       `json:"timesheetDate" validate:"required"`
	TimeTaken     int             `json:"timeTaken"` // minutes
	Status        TimesheetStatus `json:"status" validate:"omitempty,oneof=pending approved rejected resubmitted"`
	Remark        string          `json:"remark,omitempty"`
	User          Named           `json:"user"`
	Project       Named           `json:"project"`
}

var timesheetColors = map[TimesheetStatus]string{
	TimesheetRejected: "#bd0505",
	TimesheetApproved: "#22bd05",
}

const timesheetDefaultColor = "#ffaa00"

// TimesheetEvent maps a timesheet onto an all-day event. Timesheets not
// created by viewerID are read-only.
func TimesheetEvent(ts Timesheet, viewerID string) model.Event {
	color, ok := timesheetColors[ts.Status]
	if !ok {
		color = timesheetDefaultColor
	}
	start := calendar.StartOfDay(ts.TimesheetDate)
	end := calendar.EndOfDay(start)

	return model.Event{
		ID:          ts.UUID,
		Title:       strings.TrimSpace(ts.User.Name),
		Description: fmt.Sprintf("%s - %s", ts.Project.Name, FormatMinutes(ts.TimeTaken)),
		Start:       start,
		End:         &end,
		AllDay:      true,
		Color:       color,
		Type:        TypeTimesheet,
		Recurrence:  model.RecurrenceNone,
		ReadOnly:    ts.CreatedBy != viewerID,
		Source:      model.SourceHR,
	}
}

// FormatMinutes renders a minute count as "2 hours, 5 minutes".
func FormatMinutes(n int) string {
	if n <= 0 {
		return "0 minutes"
	}
	hours, minutes := n/60, n%60

	var parts []string
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	return strings.Join(parts, ", ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

type HolidayType string

const (
	HolidayPublic     HolidayType = "Public"
	HolidayFestival   HolidayType = "Festival"
	HolidayGovernment HolidayType = "Government"
)

type Holiday struct {
	UUID        string      `json:"uuid" validate:"required"`
	Date        time.Time   `json:"date" validate:"required"`
	Name        string      `json:"name" validate:"required"`
	HolidayType HolidayType `json:"holidayType" validate:"oneof=Public Festival Government"`
}

var holidayColors = map[HolidayType]string{
	HolidayPublic:     "#1e88e5",
	HolidayFestival:   "#8e24aa",
	HolidayGovernment: "#00897b",
}

func HolidayEvent(h Holiday) model.Event {
	return model.Event{
		ID:          h.UUID,
		Title:       h.Name,
		Description: string(h.HolidayType) + " holiday",
		Start:       calendar.StartOfDay(h.Date),
		AllDay:      true,
		Color:       holidayColors[h.HolidayType],
		Type:        TypeHoliday,
		Recurrence:  model.RecurrenceNone,
		ReadOnly:    true,
		Source:      model.SourceHR,
	}
}

type LeaveStatus string

const (
	LeavePending  LeaveStatus = "pending"
	LeaveApproved LeaveStatus = "approved"
	LeaveRejected LeaveStatus = "rejected"
)

type LeaveKind string

const (
	LeaveHalfDay LeaveKind = "half_day"
	LeaveFullDay LeaveKind = "full_day"
)

type LeaveDay struct {
	Date      time.Time `json:"date" validate:"required"`
	LeaveType LeaveKind `json:"leaveType" validate:"oneof=half_day full_day"`
}

type Leave struct {
	UUID         string      `json:"uuid" validate:"required"`
	EmployeeID   string      `json:"employeeId"`
	EmployeeName string      `json:"employeeName"`
	Reason       string      `json:"reason"`
	Status       LeaveStatus `json:"status" validate:"oneof=pending approved rejected"`
	LeaveDays    []LeaveDay  `json:"leaveDays" validate:"dive"`
}

var leaveColors = map[LeaveStatus]string{
	LeavePending:  "#ffaa00",
	LeaveApproved: "#6d4c41",
}

// LeaveEvents produces one all-day event per leave day. Rejected leaves
// produce nothing.
func LeaveEvents(l Leave) []model.Event {
	if l.Status == LeaveRejected {
		return nil
	}
	out := make([]model.Event, 0, len(l.LeaveDays))
	for i, d := range l.LeaveDays {
		kind := "full day"
		if d.LeaveType == LeaveHalfDay {
			kind = "half day"
		}
		out = append(out, model.Event{
			ID:          fmt.Sprintf("%s-%d", l.UUID, i),
			Title:       fmt.Sprintf("%s (%s)", l.EmployeeName, kind),
			Description: l.Reason,
			Start:       calendar.StartOfDay(d.Date),
			AllDay:      true,
			Color:       leaveColors[l.Status],
			Type:        TypeLeave,
			Recurrence:  model.RecurrenceNone,
			ReadOnly:    true,
			Source:      model.SourceHR,
		})
	}
	return out
}
