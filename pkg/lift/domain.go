package lift

import (
	"errors"
	"fmt"
	"math"
)

// --- Domain Entities & Value Objects ---

// Position is measured in floor units; floor k sits at exactly k.
// Position은 층 단위 거리입니다. k층은 정확히 k에 위치합니다.
type Position = float64

// Velocity is given in floors per second. The sign is the travel direction.
// Velocity는 초당 층 수이며 부호가 이동 방향입니다.
type Velocity = float64

// Floor is a discrete, signed floor number.
type Floor = int

// Direction is the persisted travel direction of the car.
// Direction은 엘리베이터의 유지되는 운행 방향입니다.
type Direction string

const (
	DirUp      Direction = "Up"
	DirDown    Direction = "Down"
	DirNeutral Direction = "Neutral"
)

// Sensors is the capability a host implements to feed the controller.
// Units must be normalised: distance in floors, time in seconds.
// Sensors는 호스트가 컨트롤러에 센서 값을 제공하기 위해 구현하는 인터페이스입니다.
type Sensors interface {
	// CurrentPosition is the sensor reading of the car position.
	CurrentPosition() Position

	// CurrentVelocity is the sensor reading of the car velocity.
	CurrentVelocity() Velocity

	// FloorsToStopAt lists the floors still requested. The controller never modifies it.
	FloorsToStopAt() []Floor

	// IsEmergencyStopActivated reports whether the emergency stop is engaged.
	IsEmergencyStopActivated() bool
}

// Action is the recommended command for one control tick.
// Action은 한 제어 주기의 권장 동작입니다.
type Action struct {
	// TargetVelocity is the velocity the car should drive toward.
	TargetVelocity Velocity

	// IsStoppedAtCurrentFloor is set when the car has reached one of its target
	// floors, or is parked at a floor because of the emergency stop.
	// Embarkment and door control become possible once it is true.
	IsStoppedAtCurrentFloor bool
}

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid lift config")

// Config holds the immutable controller parameters.
// Config는 생성 후 변경되지 않는 컨트롤러 설정입니다.
type Config struct {
	PreferredVelocity Velocity // 선호 주행 속도 (floors/s, > 0)
	FloorLeeway       Position // 층 도착 허용 오차
	VelocityEpsilon   Velocity // 정지로 간주하는 속도 오차
}

// Validate checks the configuration contract. The controller itself never
// calls it: a bad config degrades to zero commands rather than failing.
func (c Config) Validate() error {
	if !(c.PreferredVelocity > 0) || math.IsInf(c.PreferredVelocity, 0) {
		return fmt.Errorf("%w: preferred velocity must be positive, got %v", ErrInvalidConfig, c.PreferredVelocity)
	}
	if !(c.FloorLeeway >= 0) {
		return fmt.Errorf("%w: floor leeway must be >= 0, got %v", ErrInvalidConfig, c.FloorLeeway)
	}
	if !(c.VelocityEpsilon >= 0) {
		return fmt.Errorf("%w: velocity epsilon must be >= 0, got %v", ErrInvalidConfig, c.VelocityEpsilon)
	}
	return nil
}
