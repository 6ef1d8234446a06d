// Package gpio abstracts the relay outputs behind a narrow driver capability.
// Production wires pinctrl shell-outs or the Linux GPIO character device;
// tests substitute a recording fake.
package gpio

import (
	"context"
	"errors"
	"fmt"

	"github.com/thatsimonsguy/sprinkler-controller/internal/config"
	"github.com/thatsimonsguy/sprinkler-controller/internal/pinctrl"
)

var errUnknownOutput = errors.New("output not configured")

// Driver sets a named output on or off. Calls must be idempotent: setting an
// output to a state it is already in is harmless. The context carries the hard
// per-call timeout enforced by the scheduler.
type Driver interface {
	Set(ctx context.Context, output string, on bool) error
}

var safeMode bool

// SetSafeMode disables all physical writes system-wide. Reads still work.
func SetSafeMode(enabled bool) {
	safeMode = enabled
}

// ReadLevel is overridable for tests.
var ReadLevel = pinctrl.ReadLevel

// ValidateStartupPins refuses startup if any configured output pin reads
// active. A relay already energized before the scheduler owns it means an
// unclean shutdown or a wiring fault, and no timer state can explain it.
func ValidateStartupPins(cfg *config.Config) error {
	for name, out := range cfg.Outputs {
		level, err := ReadLevel(out.Pin)
		if err != nil {
			return fmt.Errorf("failed to read pin level for %s (GPIO %d): %w", name, out.Pin, err)
		}
		isActive := out.ActiveHigh == level
		if isActive {
			return fmt.Errorf("output %s (GPIO %d) is active at startup", name, out.Pin)
		}
	}
	return nil
}
