package shutdown

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/sprinkler-controller/internal/config"
	"github.com/thatsimonsguy/sprinkler-controller/internal/gpio"
)

// AllOff drives every configured output to its inactive level. Used as the
// final step of any exit path so no valve is left open.
func AllOff(cfg *config.Config, driver gpio.Driver) {
	for name := range cfg.Outputs {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := driver.Set(ctx, name, false); err != nil {
			log.Error().Err(err).Str("output", name).Msg("Failed to deactivate output during shutdown")
		}
		cancel()
	}
	log.Info().Msg("All outputs deactivated")
}

// WithError logs a fatal fault, forces every output off, and exits.
func WithError(cfg *config.Config, driver gpio.Driver, err error, msg string) {
	log.Error().Err(err).Msg(msg)
	AllOff(cfg, driver)
	os.Exit(1)
}
