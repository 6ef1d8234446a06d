// Package scheduler owns the live timer set and drives the relay outputs.
// Every mutation and every tick runs under one lock, so management calls never
// observe a partially applied tick and vice versa.
package scheduler

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/sprinkler-controller/internal/clock"
	"github.com/thatsimonsguy/sprinkler-controller/internal/gpio"
	"github.com/thatsimonsguy/sprinkler-controller/internal/model"
)

// Store is the narrow persistence contract the scheduler consumes.
type Store interface {
	LoadAll() ([]model.Timer, error)
	Save(model.Timer) error
	Delete(id string) error
}

// activation is a currently open ON interval. Its end is fixed when it opens;
// later updates to the timer never shorten it.
type activation struct {
	timerID   string
	outputID  string
	startedAt time.Time
	endsAt    time.Time
}

type Options struct {
	Location      *time.Location
	DriverTimeout time.Duration
	PollInterval  time.Duration
	Outputs       map[string]bool
}

type Scheduler struct {
	mu     sync.Mutex
	store  Store
	driver gpio.Driver
	clk    clock.Clock

	loc           *time.Location
	driverTimeout time.Duration
	pollInterval  time.Duration
	outputs       map[string]bool

	timers   map[string]model.Timer
	nextDue  map[string]time.Time
	active   map[string]*activation // keyed by timer id
	refs     map[string]int         // output id -> open activation count
	retryOff map[string]bool        // outputs whose OFF failed and must be retried
	faults   map[string]string      // output id -> last driver fault

	wake chan struct{}
}

// New seeds the scheduler from the store. A load failure is returned as-is;
// the process must not start without a known base state.
func New(store Store, driver gpio.Driver, clk clock.Clock, opts Options) (*Scheduler, error) {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.DriverTimeout == 0 {
		opts.DriverTimeout = 2 * time.Second
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = time.Second
	}

	timers, err := store.LoadAll()
	if err != nil {
		return nil, err
	}

	s := &Scheduler{
		store:         store,
		driver:        driver,
		clk:           clk,
		loc:           opts.Location,
		driverTimeout: opts.DriverTimeout,
		pollInterval:  opts.PollInterval,
		outputs:       opts.Outputs,
		timers:        make(map[string]model.Timer, len(timers)),
		nextDue:       make(map[string]time.Time),
		active:        make(map[string]*activation),
		refs:          make(map[string]int),
		retryOff:      make(map[string]bool),
		faults:        make(map[string]string),
		wake:          make(chan struct{}, 1),
	}

	now := clk.Now().In(s.loc)
	for _, t := range timers {
		s.timers[t.ID] = t
		if t.Enabled {
			// Today's already-passed instant is still due once after a
			// restart, same as after a loop pause.
			s.nextDue[t.ID] = s.nextFire(t, now, true)
		}
	}

	log.Info().Int("timers", len(timers)).Str("tz", s.loc.String()).Msg("Scheduler seeded from store")
	return s, nil
}

// Add validates the spec, persists it, and inserts it into the live set.
func (s *Scheduler) Add(spec model.TimerSpec) (model.Timer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := spec.Validate(s.outputs); err != nil {
		return model.Timer{}, err
	}

	t := model.NewTimer(uuid.NewString(), spec)
	if err := s.store.Save(t); err != nil {
		return model.Timer{}, &model.StoreError{Op: "save", Err: err}
	}

	s.timers[t.ID] = t
	if t.Enabled {
		now := s.clk.Now().In(s.loc)
		s.nextDue[t.ID] = s.nextFire(t, now, false)
	}

	log.Info().Str("timer", t.ID).Str("output", t.OutputID).Str("at", t.StartTime.String()).Msg("Timer added")
	s.wakeLoop()
	return t, nil
}

// Update atomically replaces every mutable field. If the timer has an open
// activation and the update disables it or moves it to another output, the old
// output is released immediately.
func (s *Scheduler) Update(id string, spec model.TimerSpec) (model.Timer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.timers[id]
	if !ok {
		return model.Timer{}, &model.NotFoundError{ID: id}
	}
	if err := spec.Validate(s.outputs); err != nil {
		return model.Timer{}, err
	}

	updated := model.NewTimer(id, spec)
	if err := s.store.Save(updated); err != nil {
		return model.Timer{}, &model.StoreError{Op: "save", Err: err}
	}

	if act, open := s.active[id]; open && (!updated.Enabled || updated.OutputID != cur.OutputID) {
		s.closeActivation(act)
	}

	s.timers[id] = updated
	if updated.Enabled {
		now := s.clk.Now().In(s.loc)
		s.nextDue[id] = s.nextFire(updated, now, false)
	} else {
		delete(s.nextDue, id)
	}

	log.Info().Str("timer", id).Str("output", updated.OutputID).Msg("Timer updated")
	s.wakeLoop()
	return updated, nil
}

// Delete removes the timer from the live set and the store, forcing an
// immediate deactivate if it is mid-activation.
func (s *Scheduler) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.timers[id]; !ok {
		return &model.NotFoundError{ID: id}
	}
	if err := s.store.Delete(id); err != nil {
		return &model.StoreError{Op: "delete", Err: err}
	}

	if act, open := s.active[id]; open {
		s.closeActivation(act)
	}
	delete(s.timers, id)
	delete(s.nextDue, id)

	log.Info().Str("timer", id).Msg("Timer deleted")
	s.wakeLoop()
	return nil
}

// List returns a snapshot of all timers, ordered by id ascending.
func (s *Scheduler) List() []model.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Timer, 0, len(s.timers))
	for _, t := range s.timers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// OutputStates reports which outputs this engine currently holds on, derived
// from the open activation reference counts.
func (s *Scheduler) OutputStates() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	states := make(map[string]bool, len(s.outputs))
	for out := range s.outputs {
		states[out] = s.refs[out] > 0
	}
	return states
}

// DriverFaults reports the last driver fault per output. Faults clear when a
// subsequent driver call on the output succeeds.
func (s *Scheduler) DriverFaults() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	faults := make(map[string]string, len(s.faults))
	for out, msg := range s.faults {
		faults[out] = msg
	}
	return faults
}

func (s *Scheduler) wakeLoop() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) sortedTimerIDs() []string {
	ids := make([]string, 0, len(s.timers))
	for id := range s.timers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
