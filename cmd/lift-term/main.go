// Command lift-term runs a simulated car driven from the keyboard.
//
//	0-9  request a floor (relative to the lowest floor)
//	e    toggle the emergency stop
//	r    reset requests and emergency stop
//	t    estimate arrival at the highest floor
//	q    quit (Ctrl-C and Esc work too)
package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/eiannone/keyboard"

	"go-lift-controller/pkg/config"
	"go-lift-controller/pkg/simulator"
)

func main() {
	if err := config.LoadEnv(); err != nil {
		log.Fatal(err)
	}
	cfg, err := config.Load("")
	if err != nil {
		log.Fatal(err)
	}
	simCfg, err := cfg.SimulatorConfig()
	if err != nil {
		log.Fatal(err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	car, err := simulator.New(simCfg)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go logEvents(ctx, car)
	go func() {
		if err := car.Run(ctx); err != nil && err != context.Canceled {
			slog.Error("Car run error", "error", err)
		}
	}()

	slog.Info("Keys: 0-9 floor, e emergency, r reset, t estimate, q quit")
	for {
		char, key, err := keyboard.GetSingleKey()
		if err != nil {
			slog.Error("Failed to read key", "error", err)
			return
		}
		if handleKey(car, cfg.Simulator.AverageStop, char, key) {
			slog.Info("Exit")
			return
		}
	}
}

// handleKey applies one key press to the car and reports whether to quit.
func handleKey(car *simulator.Car, averageStop float64, char rune, key keyboard.Key) bool {
	switch key {
	case keyboard.KeyCtrlC, keyboard.KeyEsc:
		return true
	}

	switch {
	case char >= '0' && char <= '9':
		floor := car.Config.MinFloor + int(char-'0')
		if err := car.StopAtFloor(floor); err != nil {
			slog.Warn("Floor rejected", "floor", floor, "error", err)
		}
	case char == 'e':
		state, err := car.Snapshot()
		if err != nil {
			slog.Error("Failed to snapshot car", "error", err)
			return false
		}
		car.SetEmergencyStop(!state.EmergencyStop)
	case char == 'r':
		car.Reset()
	case char == 't':
		floor := car.Config.MaxFloor
		if seconds, ok := car.TimeToFloor(floor, averageStop); ok {
			slog.Info("Estimated arrival", "floor", floor, "seconds", seconds)
		} else {
			slog.Info("No estimate while idle", "floor", floor)
		}
	case char == 'q':
		return true
	}
	return false
}

func logEvents(ctx context.Context, car *simulator.Car) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-car.Events():
			switch ev.Type {
			case simulator.EventArrived, simulator.EventEmergencyChange, simulator.EventDirectionChange:
				slog.Info(string(ev.Type), "payload", ev.Payload)
			default:
				slog.Debug(string(ev.Type), "payload", ev.Payload)
			}
		}
	}
}
