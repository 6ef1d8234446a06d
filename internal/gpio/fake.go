package gpio

import (
	"context"
	"sync"
)

// Transition is a single commanded state change observed by the fake driver.
type Transition struct {
	Output string
	On     bool
}

// Fake is a recording driver for tests. It logs every transition, tracks the
// last commanded state per output, and can be scripted to fail per output.
type Fake struct {
	mu          sync.Mutex
	transitions []Transition
	states      map[string]bool
	failures    map[string]error
}

func NewFake() *Fake {
	return &Fake{
		states:   make(map[string]bool),
		failures: make(map[string]error),
	}
}

func (f *Fake) Set(ctx context.Context, output string, on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.failures[output]; err != nil {
		return err
	}
	f.transitions = append(f.transitions, Transition{Output: output, On: on})
	f.states[output] = on
	return nil
}

// Fail makes every subsequent Set on the output return err. Pass nil to clear.
func (f *Fake) Fail(output string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failures, output)
		return
	}
	f.failures[output] = err
}

// Transitions returns a copy of the commanded transition log.
func (f *Fake) Transitions() []Transition {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Transition, len(f.transitions))
	copy(out, f.transitions)
	return out
}

// State returns the last commanded state of an output.
func (f *Fake) State(output string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.states[output]
}
