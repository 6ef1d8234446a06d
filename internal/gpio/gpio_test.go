package gpio

import (
	"context"
	"errors"
	"testing"

	"github.com/thatsimonsguy/sprinkler-controller/internal/config"
)

func TestValidateStartupPins_Valid(t *testing.T) {
	orig := ReadLevel
	defer func() { ReadLevel = orig }()

	fakeLevels := map[int]bool{17: false, 23: true}
	ReadLevel = func(pin int) (bool, error) { return fakeLevels[pin], nil }

	cfg := &config.Config{
		Outputs: map[string]config.OutputPin{
			"valve1": {Pin: 17, ActiveHigh: true},  // level low = inactive
			"valve2": {Pin: 23, ActiveHigh: false}, // level high = inactive
		},
	}

	if err := ValidateStartupPins(cfg); err != nil {
		t.Fatalf("expected valid state, got error: %v", err)
	}
}

func TestValidateStartupPins_ActivePin(t *testing.T) {
	orig := ReadLevel
	defer func() { ReadLevel = orig }()

	ReadLevel = func(pin int) (bool, error) { return true, nil }

	cfg := &config.Config{
		Outputs: map[string]config.OutputPin{
			"valve1": {Pin: 17, ActiveHigh: true}, // level high = active
		},
	}

	if err := ValidateStartupPins(cfg); err == nil {
		t.Fatal("expected error for active pin at startup, got nil")
	}
}

func TestValidateStartupPins_ReadFailure(t *testing.T) {
	orig := ReadLevel
	defer func() { ReadLevel = orig }()

	ReadLevel = func(pin int) (bool, error) { return false, errors.New("no pinctrl") }

	cfg := &config.Config{
		Outputs: map[string]config.OutputPin{
			"valve1": {Pin: 17, ActiveHigh: true},
		},
	}

	if err := ValidateStartupPins(cfg); err == nil {
		t.Fatal("expected error when pin level cannot be read, got nil")
	}
}

func TestFakeRecordsTransitions(t *testing.T) {
	f := NewFake()
	ctx := context.Background()

	if err := f.Set(ctx, "valve1", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.Set(ctx, "valve1", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := f.Transitions()
	if len(got) != 2 {
		t.Fatalf("expected 2 transitions, got %d", len(got))
	}
	if !got[0].On || got[1].On {
		t.Errorf("unexpected transition order: %+v", got)
	}
	if f.State("valve1") {
		t.Error("expected valve1 to end commanded off")
	}
}

func TestFakeScriptedFailure(t *testing.T) {
	f := NewFake()
	ctx := context.Background()

	boom := errors.New("relay board unplugged")
	f.Fail("valve1", boom)

	if err := f.Set(ctx, "valve1", true); !errors.Is(err, boom) {
		t.Fatalf("expected scripted failure, got %v", err)
	}
	if len(f.Transitions()) != 0 {
		t.Error("failed Set must not record a transition")
	}

	f.Fail("valve1", nil)
	if err := f.Set(ctx, "valve1", true); err != nil {
		t.Fatalf("expected success after clearing failure, got %v", err)
	}
}
