package scheduler

import (
	"time"

	"github.com/thatsimonsguy/sprinkler-controller/internal/model"
)

// searchDays bounds the next-fire scan. A weekly mask repeats within 7 days;
// the extra week absorbs occurrences lost to DST gaps.
const searchDays = 14

// nextFire computes the timer's next fire instant relative to now, in the
// scheduler's zone. With includeToday set, today's instant counts even when it
// has already passed (catch-up after a pause or restart: due exactly once).
// Otherwise the result is strictly after now.
//
// DST: a wall-clock instant erased by spring-forward is skipped for that day;
// an instant duplicated by fall-back fires at its first occurrence.
func (s *Scheduler) nextFire(t model.Timer, now time.Time, includeToday bool) time.Time {
	now = now.In(s.loc)
	for i := 0; i < searchDays; i++ {
		day := now.AddDate(0, 0, i)
		if !t.ActiveOn(day.Weekday()) {
			continue
		}
		at, ok := atTimeOfDay(day, t.StartTime, s.loc)
		if !ok {
			continue
		}
		if i == 0 && !includeToday && !at.After(now) {
			continue
		}
		return at
	}
	return time.Time{}
}

// atTimeOfDay combines a date with a wall-clock time. ok is false when the
// combination does not exist in the zone (spring-forward gap).
func atTimeOfDay(day time.Time, tod model.TimeOfDay, loc *time.Location) (time.Time, bool) {
	at := time.Date(day.Year(), day.Month(), day.Day(), tod.Hour, tod.Minute, tod.Second, 0, loc)
	if at.Hour() != tod.Hour || at.Minute() != tod.Minute {
		return time.Time{}, false
	}
	return at, true
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
