package main

import (
	"testing"
	"time"

	"github.com/eiannone/keyboard"

	"go-lift-controller/pkg/lift"
	"go-lift-controller/pkg/simulator"
)

func TestHandleKey(t *testing.T) {
	car, err := simulator.New(simulator.Config{
		ID:           "term-test",
		Controller:   lift.Config{PreferredVelocity: 1, FloorLeeway: 0.01, VelocityEpsilon: 0.01},
		MinFloor:     -1,
		MaxFloor:     5,
		TickInterval: 100 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if handleKey(car, 2, '3', 0) {
		t.Error("Digit should not quit")
	}
	if floors := car.Floors(); len(floors) != 1 || floors[0] != 2 {
		t.Errorf("Expected floor 2 (lowest floor -1 plus 3), got %v", floors)
	}

	handleKey(car, 2, '9', 0) // out of range, rejected
	if floors := car.Floors(); len(floors) != 1 {
		t.Errorf("Expected out-of-range floor to be rejected, got %v", floors)
	}

	handleKey(car, 2, 'e', 0)
	if state, _ := car.Snapshot(); !state.EmergencyStop {
		t.Error("Expected emergency stop engaged")
	}
	handleKey(car, 2, 'e', 0)
	if state, _ := car.Snapshot(); state.EmergencyStop {
		t.Error("Expected emergency stop released")
	}

	handleKey(car, 2, 'r', 0)
	if floors := car.Floors(); len(floors) != 0 {
		t.Errorf("Expected reset to clear floors, got %v", floors)
	}

	if !handleKey(car, 0, 'q', 0) || !handleKey(car, 0, 0, keyboard.KeyCtrlC) || !handleKey(car, 0, 0, keyboard.KeyEsc) {
		t.Error("Expected q, Ctrl-C and Esc to quit")
	}
}
