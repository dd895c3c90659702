// Package config loads the settings shared by the lift binaries.
// 설정 파일(YAML)과 환경 변수(.env 포함)에서 실행 설정을 읽어옵니다.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-yaml/yaml"
	"github.com/joho/godotenv"

	"go-lift-controller/pkg/canbus"
	"go-lift-controller/pkg/lift"
	"go-lift-controller/pkg/simulator"
)

// Environment variables recognised by Load.
const (
	EnvConfigPath   = "LIFT_CONFIG"
	EnvPort         = "PORT"
	EnvCANInterface = "LIFT_CAN_INTERFACE"
)

type ControllerConfig struct {
	PreferredVelocity float64 `yaml:"preferred_velocity"` // floors/s
	FloorLeeway       float64 `yaml:"floor_leeway"`
	VelocityEpsilon   float64 `yaml:"velocity_epsilon"`
	Tick              string  `yaml:"tick"` // e.g. "100ms"
}

type SimulatorConfig struct {
	ID              string  `yaml:"id"`
	MinFloor        int     `yaml:"min_floor"`
	MaxFloor        int     `yaml:"max_floor"`
	InitialPosition float64 `yaml:"initial_position"`
	AverageStop     float64 `yaml:"average_stop"` // seconds spent per intermediate stop
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type CANConfig struct {
	Interface   string `yaml:"interface"`
	FloorOffset int    `yaml:"floor_offset"`
}

// Config is the full application configuration.
type Config struct {
	Controller ControllerConfig `yaml:"controller"`
	Simulator  SimulatorConfig  `yaml:"simulator"`
	Server     ServerConfig     `yaml:"server"`
	CAN        CANConfig        `yaml:"can"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Controller: ControllerConfig{
			PreferredVelocity: 1.0,
			FloorLeeway:       0.01,
			VelocityEpsilon:   0.01,
			Tick:              "100ms",
		},
		Simulator: SimulatorConfig{
			ID:          "lift-1",
			MinFloor:    0,
			MaxFloor:    10,
			AverageStop: 5,
		},
		Server: ServerConfig{Port: "8080"},
		CAN:    CANConfig{Interface: "vcan0"},
	}
}

// LoadEnv loads .env files into the process environment. Missing files are
// skipped and variables already set are kept.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load env %s: %w", f, err)
		}
	}
	return nil
}

// Load reads the YAML file at path on top of the defaults and applies
// environment overrides. An empty path falls back to $LIFT_CONFIG, and
// to the defaults alone when that is unset too.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if port := os.Getenv(EnvPort); port != "" {
		cfg.Server.Port = port
	}
	if iface := os.Getenv(EnvCANInterface); iface != "" {
		cfg.CAN.Interface = iface
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values no component can run with.
func (c *Config) Validate() error {
	if err := c.Lift().Validate(); err != nil {
		return err
	}
	if _, err := c.TickInterval(); err != nil {
		return err
	}
	if c.Simulator.MinFloor > c.Simulator.MaxFloor {
		return fmt.Errorf("invalid config: min_floor (%d) > max_floor (%d)", c.Simulator.MinFloor, c.Simulator.MaxFloor)
	}
	if c.Simulator.AverageStop < 0 {
		return fmt.Errorf("invalid config: average_stop must be >= 0, got %v", c.Simulator.AverageStop)
	}
	if c.Server.Port == "" {
		return errors.New("invalid config: server port is empty")
	}
	return nil
}

// Lift returns the controller configuration.
func (c *Config) Lift() lift.Config {
	return lift.Config{
		PreferredVelocity: c.Controller.PreferredVelocity,
		FloorLeeway:       c.Controller.FloorLeeway,
		VelocityEpsilon:   c.Controller.VelocityEpsilon,
	}
}

// TickInterval parses the controller tick.
func (c *Config) TickInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Controller.Tick)
	if err != nil {
		return 0, fmt.Errorf("invalid config: tick: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid config: tick must be positive, got %s", d)
	}
	return d, nil
}

// SimulatorConfig builds the configuration of a simulated car.
func (c *Config) SimulatorConfig() (simulator.Config, error) {
	tick, err := c.TickInterval()
	if err != nil {
		return simulator.Config{}, err
	}
	return simulator.Config{
		ID:              c.Simulator.ID,
		Controller:      c.Lift(),
		MinFloor:        c.Simulator.MinFloor,
		MaxFloor:        c.Simulator.MaxFloor,
		InitialPosition: c.Simulator.InitialPosition,
		TickInterval:    tick,
	}, nil
}

// LinkConfig builds the configuration of a CAN link.
func (c *Config) LinkConfig() (canbus.LinkConfig, error) {
	tick, err := c.TickInterval()
	if err != nil {
		return canbus.LinkConfig{}, err
	}
	return canbus.LinkConfig{
		ID:           c.Simulator.ID,
		Controller:   c.Lift(),
		TickInterval: tick,
		FloorOffset:  c.CAN.FloorOffset,
	}, nil
}
