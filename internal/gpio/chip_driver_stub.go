//go:build !linux

package gpio

import (
	"context"
	"errors"

	"github.com/thatsimonsguy/sprinkler-controller/internal/config"
)

// ChipDriver is only available on Linux; this stub keeps non-Linux builds
// (development hosts) compiling.
type ChipDriver struct{}

func NewChipDriver(cfg *config.Config) (*ChipDriver, error) {
	return nil, errors.New("gpiochip backend requires linux")
}

func (d *ChipDriver) Set(ctx context.Context, output string, on bool) error {
	return errors.New("gpiochip backend requires linux")
}

func (d *ChipDriver) Close() error { return nil }
