package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// maxWait caps the timed wait so zone data changes and large clock steps are
// picked up within a bounded interval even with no timer armed.
const maxWait = time.Minute

// Run is the timing loop. It blocks on a timed wait for the next wake-up
// instant, recomputed after every mutation; any Add/Update/Delete interrupts
// the wait so a timer scheduled sooner than the current target is not missed.
// Cancelling the context stops the loop after forcing all open activations
// closed.
func (s *Scheduler) Run(ctx context.Context) {
	log.Info().Msg("Scheduler loop started")
	for {
		timer := time.NewTimer(s.nextWakeIn())
		select {
		case <-ctx.Done():
			timer.Stop()
			s.Shutdown()
			log.Info().Msg("Scheduler loop stopped")
			return
		case <-s.wake:
			timer.Stop()
		case <-timer.C:
		}
		s.Tick(s.clk.Now())
	}
}

func (s *Scheduler) nextWakeIn() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clk.Now().In(s.loc)
	wait := maxWait
	for _, due := range s.nextDue {
		if due.IsZero() {
			continue
		}
		if d := due.Sub(now); d < wait {
			wait = d
		}
	}
	for _, act := range s.active {
		if d := act.endsAt.Sub(now); d < wait {
			wait = d
		}
	}
	if len(s.retryOff) > 0 && s.pollInterval < wait {
		wait = s.pollInterval
	}
	if wait < 0 {
		wait = 0
	}
	return wait
}

// Shutdown force-closes every open activation so no output is left on.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.sortedTimerIDs() {
		if act := s.active[id]; act != nil {
			s.closeActivation(act)
		}
	}
}
