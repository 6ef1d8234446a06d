package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/sprinkler-controller/internal/datadog"
	"github.com/thatsimonsguy/sprinkler-controller/internal/model"
)

// Tick is one evaluation pass: close expired activations, fire due timers,
// retry failed deactivations. Timers at the same instant are handled in
// ascending id order.
func (s *Scheduler) Tick(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now = now.In(s.loc)
	ids := s.sortedTimerIDs()

	// Close before firing: intervals are half-open, so back-to-back timers on
	// one output produce an OFF and then a fresh ON rather than a merged run.
	for _, id := range ids {
		if act := s.active[id]; act != nil && !now.Before(act.endsAt) {
			s.closeActivation(act)
		}
	}

	for _, id := range ids {
		t := s.timers[id]
		if !t.Enabled {
			continue
		}
		due, ok := s.nextDue[id]
		if !ok || due.IsZero() {
			continue
		}
		if due.Before(startOfDay(now, s.loc)) {
			// The armed instant expired unfired before today (loop paused
			// across midnight). Only today's occurrence is still owed.
			due = s.nextFire(t, now, true)
			s.nextDue[id] = due
			if due.IsZero() {
				continue
			}
		}
		if due.After(now) {
			continue
		}

		// The instant is consumed whether or not the fire succeeds.
		s.nextDue[id] = s.nextFire(t, due, false)
		if _, open := s.active[id]; open {
			continue
		}
		s.fire(t, now)
	}

	s.retryFailedOffs()

	datadog.Gauge("activations.open", float64(len(s.active)))
}

func (s *Scheduler) fire(t model.Timer, now time.Time) {
	if s.refs[t.OutputID] == 0 {
		if err := s.drive(t.OutputID, true); err != nil {
			// No activation is created; the timer retries at its next fire
			// instant, not within the same day.
			s.faults[t.OutputID] = err.Error()
			datadog.Count("driver.errors", 1, "op:activate")
			log.Error().Err(err).
				Str("timer", t.ID).
				Str("output", t.OutputID).
				Msg("Activation failed, skipping this fire")
			return
		}
		delete(s.faults, t.OutputID)
		delete(s.retryOff, t.OutputID)
	}

	act := &activation{
		timerID:   t.ID,
		outputID:  t.OutputID,
		startedAt: now,
		endsAt:    now.Add(t.Duration),
	}
	s.active[t.ID] = act
	s.refs[t.OutputID]++

	datadog.Count("timer.fired", 1)
	log.Info().
		Str("timer", t.ID).
		Str("output", t.OutputID).
		Time("ends", act.endsAt).
		Msg("Timer fired")
}

// closeActivation releases the timer's hold on its output. The output is only
// driven OFF when no other activation still holds it.
func (s *Scheduler) closeActivation(act *activation) {
	delete(s.active, act.timerID)
	s.refs[act.outputID]--
	if s.refs[act.outputID] > 0 {
		log.Debug().Str("timer", act.timerID).Str("output", act.outputID).Msg("Activation closed, output held by another timer")
		return
	}
	delete(s.refs, act.outputID)

	if err := s.drive(act.outputID, false); err != nil {
		// A solenoid stuck open is a hazard: keep retrying every tick.
		s.faults[act.outputID] = err.Error()
		s.retryOff[act.outputID] = true
		datadog.Count("driver.errors", 1, "op:deactivate")
		log.Error().Err(err).Str("output", act.outputID).Msg("Deactivation failed, output may be stuck on")
		return
	}
	delete(s.faults, act.outputID)
	log.Info().Str("timer", act.timerID).Str("output", act.outputID).Msg("Activation closed")
}

func (s *Scheduler) retryFailedOffs() {
	for out := range s.retryOff {
		if s.refs[out] > 0 {
			// A newer activation legitimately holds the output on.
			delete(s.retryOff, out)
			continue
		}
		if err := s.drive(out, false); err != nil {
			s.faults[out] = err.Error()
			continue
		}
		delete(s.retryOff, out)
		delete(s.faults, out)
		log.Info().Str("output", out).Msg("Deactivation retry succeeded")
	}
}

// drive issues one driver call under the hard timeout.
func (s *Scheduler) drive(output string, on bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.driverTimeout)
	defer cancel()

	err := s.driver.Set(ctx, output, on)
	if err == nil {
		return nil
	}
	var de *model.DriverError
	if errors.As(err, &de) {
		return err
	}
	return &model.DriverError{Output: output, Err: err}
}
