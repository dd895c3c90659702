// Command lift-can drives a car over SocketCAN.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go-lift-controller/pkg/canbus"
	"go-lift-controller/pkg/config"
)

func main() {
	if err := config.LoadEnv(); err != nil {
		log.Fatal(err)
	}
	cfg, err := config.Load("")
	if err != nil {
		log.Fatal(err)
	}
	linkCfg, err := cfg.LinkConfig()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus, err := canbus.DialSocketCAN(ctx, cfg.CAN.Interface)
	if err != nil {
		log.Fatal(err)
	}
	defer bus.Close()

	link, err := canbus.NewLink(linkCfg, bus, bus)
	if err != nil {
		log.Fatal(err)
	}

	slog.Info("Driving car over CAN", "interface", cfg.CAN.Interface, "floor_offset", cfg.CAN.FloorOffset)

	err = link.Run(ctx)
	// Unblock the receiver before exiting.
	_ = bus.Close()
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("CAN link stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("CAN link stopped")
}
