// Package simulator runs a simulated lift car against the lift controller.
// 이 패키지는 스레드 안전(Thread-safe)한 시뮬레이션 엘리베이터 차량을 구현합니다.
// 모든 상태 변경은 Mutex로 보호되며, 변경 사항은 Event 채널로 전파됩니다.
package simulator

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/tiendc/go-deepcopy"

	"go-lift-controller/pkg/lift"
)

// EventType represents the category of a car event.
// EventType는 차량 이벤트의 카테고리를 나타냅니다.
type EventType string

const (
	EventFloorChange     EventType = "FloorChange"
	EventDirectionChange EventType = "DirectionChange"
	EventArrived         EventType = "Arrived"
	EventEmergencyChange EventType = "EmergencyChange"
	EventCallAdded       EventType = "CallAdded"
	EventCallRemoved     EventType = "CallRemoved"
)

// Event carries the state change information.
type Event struct {
	Type      EventType
	Payload   interface{}
	Timestamp time.Time
}

// ArrivedPayload carries detail for arrival events.
// ArrivedPayload는 도착 이벤트의 세부 정보를 담고 있습니다.
type ArrivedPayload struct {
	Floor    lift.Floor
	Position lift.Position
}

// Config holds immutable configuration parameters.
// Config는 시스템 시작 시 설정되며, 런타임 중에 변경되지 않습니다.
type Config struct {
	ID              string
	Controller      lift.Config
	MinFloor        lift.Floor    // 최저 층
	MaxFloor        lift.Floor    // 최고 층
	InitialPosition lift.Position // 초기 위치 (층 단위)
	TickInterval    time.Duration // 제어 주기
	EventBuffer     int           // 이벤트 채널 버퍼 크기
}

// State is the simulated physical state of the car.
// It implements lift.Sensors so the controller can read it directly.
type State struct {
	Position      lift.Position
	Velocity      lift.Velocity
	Floors        []lift.Floor
	EmergencyStop bool
	IsStopped     bool
	Floor         lift.Floor     // nearest floor
	Direction     lift.Direction // controller direction at the last step
}

func (s *State) CurrentPosition() lift.Position { return s.Position }
func (s *State) CurrentVelocity() lift.Velocity { return s.Velocity }
func (s *State) FloorsToStopAt() []lift.Floor   { return s.Floors }
func (s *State) IsEmergencyStopActivated() bool { return s.EmergencyStop }

// Result is returned by every simulation step.
type Result struct {
	Position  lift.Position
	Velocity  lift.Velocity
	IsStopped bool
}

// Car is a simulated lift car driven by a lift.Controller.
// Car는 lift.Controller에 의해 구동되는 시뮬레이션 차량입니다.
type Car struct {
	mu     sync.Mutex
	Config Config

	controller *lift.Controller
	state      State

	// --- Observability ---
	logger            *slog.Logger
	eventCh           chan Event
	droppedEventCount uint64
}

// New initializes a new Car instance with strict validation.
// 잘못된 설정이 감지되면 즉시 에러를 반환합니다 (Fail Fast).
func New(config Config) (*Car, error) {
	if config.MinFloor > config.MaxFloor {
		return nil, fmt.Errorf("invalid config: MinFloor (%d) > MaxFloor (%d)", config.MinFloor, config.MaxFloor)
	}
	if err := config.Controller.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if config.TickInterval <= 0 {
		return nil, fmt.Errorf("invalid config: TickInterval must be positive, got %s", config.TickInterval)
	}
	if config.InitialPosition < lift.Position(config.MinFloor) || config.InitialPosition > lift.Position(config.MaxFloor) {
		return nil, fmt.Errorf("invalid config: InitialPosition %.2f outside [%d, %d]",
			config.InitialPosition, config.MinFloor, config.MaxFloor)
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = 1000
	}

	c := &Car{
		Config:     config,
		controller: lift.New(config.Controller),
		state: State{
			Position:  config.InitialPosition,
			Floor:     lift.Floor(math.Round(config.InitialPosition)),
			Direction: lift.DirNeutral,
			IsStopped: true,
		},
		eventCh: make(chan Event, config.EventBuffer),
		logger:  slog.Default().With("id", config.ID),
	}

	c.logger.Info("Car initialized",
		"min", config.MinFloor,
		"max", config.MaxFloor,
		"position", config.InitialPosition,
		"tick", config.TickInterval,
	)

	return c, nil
}

// Events returns the read-only channel for state change notifications.
func (c *Car) Events() <-chan Event {
	return c.eventCh
}

// DroppedEventCount returns diagnostic metric for channel health.
func (c *Car) DroppedEventCount() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.droppedEventCount
}

// publishEvent sends an event to the channel without blocking the step.
// 채널이 가득 차면 이벤트를 버리고 메트릭을 증가시킵니다.
func (c *Car) publishEvent(eventType EventType, payload interface{}) {
	event := Event{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	select {
	case c.eventCh <- event:
	default:
		c.droppedEventCount++
		if c.droppedEventCount%100 == 1 {
			c.logger.Error("Event Channel Saturated", "dropped", c.droppedEventCount, "type", eventType)
		}
	}
}

// Snapshot returns a deep copy of the car state.
// Snapshot은 차량 상태의 깊은 복사본을 반환합니다.
func (c *Car) Snapshot() (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out State
	if err := deepcopy.Copy(&out, &c.state); err != nil {
		return State{}, fmt.Errorf("snapshot: %w", err)
	}
	return out, nil
}

// Floors returns a sorted list of pending floors.
func (c *Car) Floors() []lift.Floor {
	c.mu.Lock()
	defer c.mu.Unlock()
	floors := make([]lift.Floor, len(c.state.Floors))
	copy(floors, c.state.Floors)
	sort.Ints(floors)
	return floors
}

// StopAtFloor registers a floor the car must stop at.
// 범위를 벗어난 층은 거부되며, 이미 등록된 층은 무시됩니다.
func (c *Car) StopAtFloor(floor lift.Floor) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if floor < c.Config.MinFloor || floor > c.Config.MaxFloor {
		c.logger.Warn("StopAtFloor failed: floor out of range",
			"floor", floor, "min", c.Config.MinFloor, "max", c.Config.MaxFloor)
		return fmt.Errorf("floor %d out of range", floor)
	}

	if c.indexOf(floor) >= 0 {
		c.logger.Debug("Floor already requested", "floor", floor)
		return nil
	}

	c.state.Floors = append(c.state.Floors, floor)
	c.logger.Info("Floor requested", "floor", floor)
	c.publishEvent(EventCallAdded, floor)
	return nil
}

// RemoveFloor cancels a pending floor.
func (c *Car) RemoveFloor(floor lift.Floor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.removeFloor(floor) {
		c.logger.Debug("Floor removed", "floor", floor)
	}
}

// ClearFloors removes all pending floors.
func (c *Car) ClearFloors() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Floors = nil
	c.logger.Info("All floors cleared")
}

// SetEmergencyStop engages or releases the emergency stop.
// SetEmergencyStop은 비상 정지를 설정하거나 해제합니다.
func (c *Car) SetEmergencyStop(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.EmergencyStop == on {
		return
	}
	c.state.EmergencyStop = on
	if on {
		c.logger.Warn("Emergency Stop Activated", "position", c.state.Position)
	} else {
		c.logger.Info("Emergency Stop Released", "position", c.state.Position)
	}
	c.publishEvent(EventEmergencyChange, on)
}

// Reset clears the pending floors and the emergency stop. The car keeps its position.
func (c *Car) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger.Info("Resetting car state")
	c.state.Floors = nil
	if c.state.EmergencyStop {
		c.state.EmergencyStop = false
		c.publishEvent(EventEmergencyChange, false)
	}
}

// TimeToFloor estimates the seconds until the car reaches floor.
func (c *Car) TimeToFloor(floor lift.Floor, averageStop float64) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller.TimeToFloor(&c.state, floor, averageStop)
}

// Step advances the simulation by dt seconds.
// The lock is held for the whole tick so the controller sees one consistent snapshot.
// Step은 시뮬레이션을 dt초만큼 진행합니다.
func (c *Car) Step(dt float64) Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	action := c.controller.Poll(&c.state, dt)
	c.setDirection(c.controller.Direction())

	if action.IsStoppedAtCurrentFloor {
		c.state.Velocity = 0
		if !c.state.IsStopped {
			c.state.IsStopped = true
			c.logger.Debug("Stopped", "position", c.state.Position)
		}
		c.handleArrival(lift.Floor(math.Round(c.state.Position)))
		return c.result()
	}

	c.state.Position += action.TargetVelocity * dt
	c.state.Velocity = action.TargetVelocity
	c.state.IsStopped = false
	c.setFloor(lift.Floor(math.Round(c.state.Position)))

	return c.result()
}

// Run executes the main simulation loop until ctx is cancelled.
// Run은 컨텍스트가 취소될 때까지 시뮬레이션 루프를 실행합니다.
func (c *Car) Run(ctx context.Context) error {
	c.logger.Info("Simulation Started")

	ticker := time.NewTicker(c.Config.TickInterval)
	defer ticker.Stop()

	dt := c.Config.TickInterval.Seconds()
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Simulation Stopping (Context Cancelled)")
			return ctx.Err()
		case <-ticker.C:
			c.Step(dt)
		}
	}
}

// handleArrival clears the floor once the car is parked on it.
func (c *Car) handleArrival(floor lift.Floor) {
	if !c.removeFloor(floor) {
		return
	}
	c.logger.Info("Arrived at floor", "floor", floor)
	c.publishEvent(EventArrived, ArrivedPayload{
		Floor:    floor,
		Position: c.state.Position,
	})
}

func (c *Car) result() Result {
	return Result{
		Position:  c.state.Position,
		Velocity:  c.state.Velocity,
		IsStopped: c.state.IsStopped,
	}
}

// setFloor updates the nearest floor and publishes an event.
func (c *Car) setFloor(f lift.Floor) {
	if c.state.Floor != f {
		c.state.Floor = f
		c.publishEvent(EventFloorChange, f)
	}
}

// setDirection updates the direction and publishes an event.
func (c *Car) setDirection(d lift.Direction) {
	if c.state.Direction != d {
		c.logger.Info("🧭 Direction Changed", "from", c.state.Direction, "to", d)
		c.state.Direction = d
		c.publishEvent(EventDirectionChange, d)
	}
}

func (c *Car) indexOf(floor lift.Floor) int {
	for i, f := range c.state.Floors {
		if f == floor {
			return i
		}
	}
	return -1
}

func (c *Car) removeFloor(floor lift.Floor) bool {
	i := c.indexOf(floor)
	if i < 0 {
		return false
	}
	c.state.Floors = append(c.state.Floors[:i], c.state.Floors[i+1:]...)
	c.publishEvent(EventCallRemoved, floor)
	return true
}
