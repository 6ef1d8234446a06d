package startup

import (
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/thatsimonsguy/sprinkler-controller/internal/config"
)

// WriteBootScript writes a pinctrl script that drives every configured output
// to its inactive level. Installed as a oneshot service so relays come up safe
// at boot, before the controller starts.
func WriteBootScript(cfg *config.Config) error {
	var lines []string
	lines = append(lines, "#!/bin/bash", "", "# Sprinkler GPIO pin configuration at boot", "")

	names := make([]string, 0, len(cfg.Outputs))
	for name := range cfg.Outputs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		out := cfg.Outputs[name]
		drive := "dh"
		if out.ActiveHigh {
			drive = "dl"
		}
		lines = append(lines, fmt.Sprintf("# %s", name))
		lines = append(lines, fmt.Sprintf("pinctrl set %d op pn %s", out.Pin, drive))
		lines = append(lines, "")
	}

	contents := strings.Join(lines, "\n") + "\n"
	return os.WriteFile(cfg.BootScriptFilePath, []byte(contents), 0755)
}

// InstallBootService writes a systemd unit that runs the boot script.
func InstallBootService(cfg *config.Config) error {
	unitContents := fmt.Sprintf(`[Unit]
Description=Configure sprinkler GPIO pins at boot
After=network.target

[Service]
Type=oneshot
Environment=PATH=/usr/local/bin:/usr/bin:/bin
ExecStart=%s
RemainAfterExit=true

[Install]
WantedBy=multi-user.target
`, cfg.BootScriptFilePath)

	return os.WriteFile(cfg.OSServicePath, []byte(unitContents), 0644)
}

// RunBootScript executes the boot script directly, for first-run setups where
// the service has not rebooted yet.
func RunBootScript(cfg *config.Config) error {
	cmd := exec.Command("/bin/bash", cfg.BootScriptFilePath)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
