package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/sprinkler-controller/db"
	"github.com/thatsimonsguy/sprinkler-controller/internal/api"
	"github.com/thatsimonsguy/sprinkler-controller/internal/clock"
	"github.com/thatsimonsguy/sprinkler-controller/internal/config"
	"github.com/thatsimonsguy/sprinkler-controller/internal/datadog"
	"github.com/thatsimonsguy/sprinkler-controller/internal/gpio"
	"github.com/thatsimonsguy/sprinkler-controller/internal/logging"
	"github.com/thatsimonsguy/sprinkler-controller/internal/scheduler"
	"github.com/thatsimonsguy/sprinkler-controller/system/shutdown"
	"github.com/thatsimonsguy/sprinkler-controller/system/startup"
)

func main() {
	cfg := config.Load()
	logging.Init(cfg.LogLevel, cfg.LogFile)

	log.Info().
		Str("db", cfg.DBPath).
		Str("backend", cfg.GPIOBackend).
		Int("outputs", len(cfg.Outputs)).
		Msg("Starting sprinkler controller")

	if cfg.InstallBoot {
		if err := startup.WriteBootScript(cfg); err != nil {
			log.Fatal().Err(err).Msg("Failed to write boot script")
		}
		if err := startup.InstallBootService(cfg); err != nil {
			log.Fatal().Err(err).Msg("Failed to install boot service")
		}
		if err := startup.RunBootScript(cfg); err != nil {
			log.Fatal().Err(err).Msg("Failed to run boot script")
		}
		log.Info().Str("script", cfg.BootScriptFilePath).Msg("Boot script installed")
		return
	}

	gpio.SetSafeMode(cfg.SafeMode)
	if cfg.SafeMode {
		log.Warn().Msg("SAFE MODE ENABLED — GPIO writes are disabled system-wide")
	}

	datadog.InitMetrics(cfg)

	var driver gpio.Driver
	switch cfg.GPIOBackend {
	case config.BackendPinctrl:
		if !cfg.SafeMode {
			if err := gpio.ValidateStartupPins(cfg); err != nil {
				log.Fatal().Err(err).Msg("Refusing to start with outputs in an unsafe state")
			}
		}
		driver = gpio.NewPinctrlDriver(cfg)
	case config.BackendGPIOChip:
		chipDriver, err := gpio.NewChipDriver(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open GPIO chip")
		}
		defer chipDriver.Close()
		driver = chipDriver
	}

	dbConn, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer dbConn.Close()

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to resolve timezone")
	}

	// No timer can run safely without a known base state: a load failure is
	// fatal rather than starting with a silently empty set.
	sched, err := scheduler.New(db.NewTimerStore(dbConn), driver, clock.System{}, scheduler.Options{
		Location:      loc,
		DriverTimeout: cfg.DriverTimeout(),
		PollInterval:  cfg.PollInterval(),
		Outputs:       cfg.OutputIDs(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load timers from store")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	loopDone := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(loopDone)
	}()

	server := api.NewServer(sched)
	go func() {
		if err := server.Start(cfg.ListenPort); err != nil {
			shutdown.WithError(cfg, driver, err, "API server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	<-loopDone
	shutdown.AllOff(cfg, driver)
}
