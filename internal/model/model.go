package model

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// Recurrence describes how a base event repeats.
type Recurrence string

const (
	RecurrenceNone    Recurrence = "none"
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
)

// Event sources used by the loaders.
const (
	SourceManual = "manual"
	SourceHR     = "hr"
)

var ErrInvalidRecurrence = errors.New("invalid recurrence")

// ParseRecurrence maps user or loader input onto a Recurrence. Empty input
// means none; anything outside the four known values is rejected.
func ParseRecurrence(s string) (Recurrence, error) {
	switch Recurrence(strings.ToLower(strings.TrimSpace(s))) {
	case "", RecurrenceNone:
		return RecurrenceNone, nil
	case RecurrenceDaily:
		return RecurrenceDaily, nil
	case RecurrenceWeekly:
		return RecurrenceWeekly, nil
	case RecurrenceMonthly:
		return RecurrenceMonthly, nil
	default:
		return RecurrenceNone, fmt.Errorf("%w: %q", ErrInvalidRecurrence, s)
	}
}

// Repeats reports whether r generates more than one occurrence. Unknown
// values that slipped past ParseRecurrence count as none.
func (r Recurrence) Repeats() bool {
	switch r {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return true
	default:
		return false
	}
}

// Event is a canonical, stored calendar entry, possibly recurring.
type Event struct {
	ID          string     `json:"id" yaml:"id" validate:"required"`
	Title       string     `json:"title" yaml:"title" validate:"required"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Start       time.Time  `json:"start" yaml:"start" validate:"required"`
	End         *time.Time `json:"end,omitempty" yaml:"end,omitempty"`
	AllDay      bool       `json:"allDay" yaml:"all_day"`
	Color       string     `json:"color,omitempty" yaml:"color,omitempty"`
	Type        string     `json:"type,omitempty" yaml:"type,omitempty"`
	Recurrence  Recurrence `json:"recurrence,omitempty" yaml:"recurrence,omitempty" validate:"omitempty,oneof=none daily weekly monthly"`

	// ReadOnly marks events the current viewer may look at but not edit.
	ReadOnly bool `json:"readOnly,omitempty" yaml:"read_only,omitempty"`
	// Source tags which loader produced the event (manual, hr, ics:<id>).
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
}

// Occurrence is one concrete materialization of a base event. The embedded
// Event carries the occurrence's own ID and Start; BaseID points back to the
// canonical event for edit/delete actions.
type Occurrence struct {
	Event
	BaseID string `json:"baseId"`
	Index  int    `json:"index"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator instance.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks an inbound event before it reaches the store.
func Validate(ev Event) error {
	if err := Validator().Struct(ev); err != nil {
		return err
	}
	if ev.End != nil && ev.End.Before(ev.Start) {
		return errors.New("end is before start")
	}
	return nil
}
