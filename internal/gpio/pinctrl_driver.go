package gpio

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/sprinkler-controller/internal/config"
	"github.com/thatsimonsguy/sprinkler-controller/internal/model"
	"github.com/thatsimonsguy/sprinkler-controller/internal/pinctrl"
)

// PinctrlDriver drives outputs through the Raspberry Pi `pinctrl` utility.
type PinctrlDriver struct {
	outputs map[string]config.OutputPin
}

func NewPinctrlDriver(cfg *config.Config) *PinctrlDriver {
	return &PinctrlDriver{outputs: cfg.Outputs}
}

func (d *PinctrlDriver) Set(ctx context.Context, output string, on bool) error {
	pin, ok := d.outputs[output]
	if !ok {
		return &model.DriverError{Output: output, Err: errUnknownOutput}
	}

	if safeMode {
		log.Debug().Str("output", output).Bool("on", on).Msg("Safe mode: skipping pinctrl write")
		return nil
	}

	drive := "dl"
	if pin.ActiveHigh == on {
		drive = "dh"
	}
	if err := pinctrl.SetPin(ctx, pin.Pin, "op", "pn", drive); err != nil {
		return &model.DriverError{Output: output, Err: err}
	}
	return nil
}
