package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/thatsimonsguy/sprinkler-controller/db"
	"github.com/thatsimonsguy/sprinkler-controller/internal/pinctrl"
)

func main() {
	DebugCLI()
}

func DebugCLI() {
	var dbPath, command, timerID string
	var pin int
	flag.StringVar(&dbPath, "db", "data/sprinkler.db", "Path to the SQLite database file")
	flag.StringVar(&command, "cmd", "", "Command to run: list-timers, enable-timer, disable-timer, read-pin")
	flag.StringVar(&timerID, "timer", "", "Timer ID for timer commands")
	flag.IntVar(&pin, "pin", -1, "GPIO pin number for read-pin")
	help := flag.Bool("help", false, "Show help")
	flag.Parse()

	if *help || command == "" {
		fmt.Println("\nUsage of sprinkler-debug:")
		fmt.Println("  -db string\tPath to the SQLite database file (default 'data/sprinkler.db')")
		fmt.Println("  -cmd string\tCommand to run: list-timers, enable-timer, disable-timer, read-pin")
		fmt.Println("  -timer string\tTimer ID for timer commands")
		fmt.Println("  -pin int\tGPIO pin number for read-pin")
		fmt.Println("  -help\tShow this help message")
		os.Exit(0)
	}

	var err error
	switch command {
	case "list-timers":
		err = db.ListTimersCLI(dbPath)
	case "enable-timer":
		if timerID == "" {
			fmt.Println("Error: timer ID is required")
			os.Exit(1)
		}
		err = db.SetTimerEnabledCLI(dbPath, timerID, true)
	case "disable-timer":
		if timerID == "" {
			fmt.Println("Error: timer ID is required")
			os.Exit(1)
		}
		err = db.SetTimerEnabledCLI(dbPath, timerID, false)
	case "read-pin":
		if pin < 0 {
			fmt.Println("Error: pin number is required")
			os.Exit(1)
		}
		var level bool
		level, err = pinctrl.ReadLevel(pin)
		if err == nil {
			fmt.Printf("GPIO %d level: %v\n", pin, level)
		}
	default:
		fmt.Println("Invalid command")
		os.Exit(1)
	}

	if err != nil {
		fmt.Printf("Command %s failed: %v\n", command, err)
		os.Exit(1)
	}
}
