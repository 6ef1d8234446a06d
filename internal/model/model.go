package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MaxDuration caps a single activation so an interval can never run into the
// next day's fire of the same timer.
const MaxDuration = 24 * time.Hour

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// TimeOfDay is a wall-clock time without a date, in the controller's
// configured time zone.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return TimeOfDay{}, &ValidationError{Field: "start_time", Reason: fmt.Sprintf("%q is not in HH:MM or HH:MM:SS format", s)}
	}

	var fields [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || len(p) != 2 {
			return TimeOfDay{}, &ValidationError{Field: "start_time", Reason: fmt.Sprintf("%q is not in HH:MM or HH:MM:SS format", s)}
		}
		fields[i] = n
	}

	tod := TimeOfDay{Hour: fields[0], Minute: fields[1], Second: fields[2]}
	if !tod.Valid() {
		return TimeOfDay{}, &ValidationError{Field: "start_time", Reason: fmt.Sprintf("%q is out of range", s)}
	}
	return tod, nil
}

func (t TimeOfDay) Valid() bool {
	return t.Hour >= 0 && t.Hour <= 23 &&
		t.Minute >= 0 && t.Minute <= 59 &&
		t.Second >= 0 && t.Second <= 59
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// Timer is a persisted activation rule: turn one output on at a time of day
// for a fixed duration.
type Timer struct {
	ID          string
	Name        string
	Description string
	OutputID    string
	StartTime   TimeOfDay
	Duration    time.Duration
	Enabled     bool
	Days        []string // lowercase weekday names; empty means every day
}

// TimerSpec carries every mutable Timer field. The ID is assigned by the
// scheduler at creation and never changes.
type TimerSpec struct {
	Name        string
	Description string
	OutputID    string
	StartTime   TimeOfDay
	Duration    time.Duration
	Enabled     bool
	Days        []string
}

// Validate checks the spec against a set of known output ids.
func (s TimerSpec) Validate(outputs map[string]bool) error {
	if s.OutputID == "" {
		return &ValidationError{Field: "output_id", Reason: "must not be empty"}
	}
	if outputs != nil && !outputs[s.OutputID] {
		return &ValidationError{Field: "output_id", Reason: fmt.Sprintf("unknown output %q", s.OutputID)}
	}
	if !s.StartTime.Valid() {
		return &ValidationError{Field: "start_time", Reason: s.StartTime.String() + " is out of range"}
	}
	if s.Duration < 0 {
		return &ValidationError{Field: "duration_seconds", Reason: "must not be negative"}
	}
	if s.Enabled && s.Duration == 0 {
		return &ValidationError{Field: "duration_seconds", Reason: "must be greater than zero for an enabled timer"}
	}
	if s.Duration > MaxDuration {
		return &ValidationError{Field: "duration_seconds", Reason: "must not exceed 24 hours"}
	}
	for _, d := range s.Days {
		if _, ok := weekdayNames[d]; !ok {
			return &ValidationError{Field: "days", Reason: fmt.Sprintf("unknown weekday %q", d)}
		}
	}
	return nil
}

// NewTimer builds a Timer from an id and a validated spec.
func NewTimer(id string, spec TimerSpec) Timer {
	return Timer{
		ID:          id,
		Name:        spec.Name,
		Description: spec.Description,
		OutputID:    spec.OutputID,
		StartTime:   spec.StartTime,
		Duration:    spec.Duration,
		Enabled:     spec.Enabled,
		Days:        spec.Days,
	}
}

// ActiveOn reports whether the timer fires on the given weekday.
func (t Timer) ActiveOn(day time.Weekday) bool {
	if len(t.Days) == 0 {
		return true
	}
	for _, d := range t.Days {
		if weekdayNames[d] == day {
			return true
		}
	}
	return false
}
