//go:build linux

package gpio

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/warthog618/go-gpiocdev"

	"github.com/thatsimonsguy/sprinkler-controller/internal/config"
	"github.com/thatsimonsguy/sprinkler-controller/internal/model"
)

// ChipDriver drives outputs through the Linux GPIO character device. Lines
// are requested once at construction and held for the life of the process.
type ChipDriver struct {
	chip  *gpiocdev.Chip
	lines map[string]*chipLine
}

type chipLine struct {
	line       *gpiocdev.Line
	activeHigh bool
}

func NewChipDriver(cfg *config.Config) (*ChipDriver, error) {
	chip, err := gpiocdev.NewChip(cfg.GPIOChip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", cfg.GPIOChip, err)
	}

	d := &ChipDriver{chip: chip, lines: make(map[string]*chipLine)}
	for name, out := range cfg.Outputs {
		// Request as output at the inactive level.
		initial := 0
		if !out.ActiveHigh {
			initial = 1
		}
		line, err := chip.RequestLine(out.Pin, gpiocdev.AsOutput(initial))
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("request pin %d for output %s: %w", out.Pin, name, err)
		}
		d.lines[name] = &chipLine{line: line, activeHigh: out.ActiveHigh}
	}
	return d, nil
}

func (d *ChipDriver) Set(ctx context.Context, output string, on bool) error {
	cl, ok := d.lines[output]
	if !ok {
		return &model.DriverError{Output: output, Err: errUnknownOutput}
	}
	if err := ctx.Err(); err != nil {
		return &model.DriverError{Output: output, Err: err}
	}

	if safeMode {
		log.Debug().Str("output", output).Bool("on", on).Msg("Safe mode: skipping gpiochip write")
		return nil
	}

	value := 0
	if cl.activeHigh == on {
		value = 1
	}
	if err := cl.line.SetValue(value); err != nil {
		return &model.DriverError{Output: output, Err: err}
	}
	return nil
}

// Close drives every line inactive, releases them, and closes the chip.
func (d *ChipDriver) Close() error {
	var firstErr error
	for name, cl := range d.lines {
		value := 1
		if cl.activeHigh {
			value = 0
		}
		if err := cl.line.SetValue(value); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("deactivate output %s: %w", name, err)
		}
		if err := cl.line.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close output %s: %w", name, err)
		}
	}
	if d.chip != nil {
		if err := d.chip.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close chip: %w", err)
		}
	}
	return firstErr
}
