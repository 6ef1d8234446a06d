package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	BackendPinctrl  = "pinctrl"
	BackendGPIOChip = "gpiochip"
)

// OutputPin maps a named output to a GPIO pin on the relay board.
type OutputPin struct {
	Pin        int  `json:"pin"`
	ActiveHigh bool `json:"active_high"`
}

type Config struct {
	DBPath      string
	ConfigFile  string
	LogLevel    zerolog.Level
	InstallBoot bool

	LogFile             string `json:"log_file"`
	ListenPort          int    `json:"listen_port"`
	Timezone            string `json:"timezone"`
	PollIntervalSeconds int    `json:"poll_interval_seconds"`
	DriverTimeoutMS     int    `json:"driver_timeout_ms"`
	SafeMode            bool   `json:"safe_mode"`
	GPIOBackend         string `json:"gpio_backend"`
	GPIOChip            string `json:"gpio_chip"`

	BootScriptFilePath string `json:"boot_script_path"`
	OSServicePath      string `json:"os_service_path"`

	EnableDatadog bool     `json:"enable_datadog"`
	DDAgentAddr   string   `json:"dd_agent_addr"`
	DDNamespace   string   `json:"dd_namespace"`
	DDTags        []string `json:"dd_tags"`

	Outputs map[string]OutputPin `json:"outputs"`
}

func Load() *Config {
	var cfg Config
	var logLevel string

	flag.StringVar(&cfg.DBPath, "db", "data/sprinkler.db", "Path to the SQLite database file")
	flag.StringVar(&cfg.ConfigFile, "config-file", "config.json", "Path to controller config file")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.BoolVar(&cfg.InstallBoot, "install-boot-script", false, "Write and install the GPIO boot script, then exit")
	flag.Parse()

	cfg.LogLevel = parseLogLevel(logLevel)

	file, err := os.Open(cfg.ConfigFile)
	if err != nil {
		panic("Failed to load config file: " + err.Error())
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		panic("Failed to parse config file: " + err.Error())
	}

	cfg.applyDefaults()
	cfg.validate()
	return &cfg
}

func parseLogLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (cfg *Config) applyDefaults() {
	if cfg.ListenPort == 0 {
		cfg.ListenPort = 8080
	}
	if cfg.PollIntervalSeconds == 0 {
		cfg.PollIntervalSeconds = 1
	}
	if cfg.DriverTimeoutMS == 0 {
		cfg.DriverTimeoutMS = 2000
	}
	if cfg.GPIOBackend == "" {
		cfg.GPIOBackend = BackendPinctrl
	}
	if cfg.GPIOChip == "" {
		cfg.GPIOChip = "gpiochip0"
	}
	if cfg.BootScriptFilePath == "" {
		cfg.BootScriptFilePath = "/usr/local/bin/sprinkler-gpio-init.sh"
	}
	if cfg.OSServicePath == "" {
		cfg.OSServicePath = "/etc/systemd/system/sprinkler-gpio-init.service"
	}
}

func (cfg *Config) validate() {
	if len(cfg.Outputs) == 0 {
		panic("Config must declare at least one output under outputs")
	}

	var conflicts []string
	usedPins := map[int]string{}
	for name, out := range cfg.Outputs {
		if out.Pin <= 0 {
			panic(fmt.Sprintf("Output %q has invalid pin %d", name, out.Pin))
		}
		if other, exists := usedPins[out.Pin]; exists {
			conflicts = append(conflicts, fmt.Sprintf("outputs.%s and outputs.%s both use pin %d", name, other, out.Pin))
		} else {
			usedPins[out.Pin] = name
		}
	}
	if len(conflicts) > 0 {
		panic("Conflicting GPIO pins: " + strings.Join(conflicts, ", "))
	}

	if cfg.GPIOBackend != BackendPinctrl && cfg.GPIOBackend != BackendGPIOChip {
		panic(fmt.Sprintf("Unknown gpio_backend %q (expected %s or %s)", cfg.GPIOBackend, BackendPinctrl, BackendGPIOChip))
	}

	if _, err := cfg.Location(); err != nil {
		panic("Invalid timezone: " + err.Error())
	}
}

// Location resolves the configured IANA time zone; empty means the system's
// local zone. DST behavior of timer fire instants follows this zone.
func (cfg *Config) Location() (*time.Location, error) {
	if cfg.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(cfg.Timezone)
}

// DriverTimeout is the hard per-call budget for output driver writes.
func (cfg *Config) DriverTimeout() time.Duration {
	return time.Duration(cfg.DriverTimeoutMS) * time.Millisecond
}

// PollInterval is the cadence for failed-deactivation retries and the upper
// bound on the scheduler's wait when an OFF retry is pending.
func (cfg *Config) PollInterval() time.Duration {
	return time.Duration(cfg.PollIntervalSeconds) * time.Second
}

// OutputIDs returns the set of configured output names.
func (cfg *Config) OutputIDs() map[string]bool {
	ids := make(map[string]bool, len(cfg.Outputs))
	for name := range cfg.Outputs {
		ids[name] = true
	}
	return ids
}
