// Package lift implements the per-tick decision core of a single elevator car.
// 이 패키지는 단일 엘리베이터의 제어 주기별 의사결정 로직을 구현합니다.
// No mutex, No channel, No time, No allocation.
package lift

import "math"

// Controller turns sensor readings into an Action once per control tick.
// The only state carried between calls is the persisted travel direction.
// Controller는 매 주기 센서 값을 Action으로 변환합니다.
type Controller struct {
	config    Config
	direction Direction
}

// New creates a controller with a Neutral direction.
// The config is not validated here; see Config.Validate.
func New(config Config) *Controller {
	return &Controller{
		config:    config,
		direction: DirNeutral,
	}
}

// Config returns the controller configuration.
func (c *Controller) Config() Config {
	return c.config
}

// Direction returns the persisted travel direction.
// Direction은 현재 유지 중인 운행 방향을 반환합니다.
func (c *Controller) Direction() Direction {
	return c.direction
}

// Poll computes the next action from a snapshot of the sensors.
// tick is the duration of the control tick in seconds and must be positive.
// Poll은 센서 스냅샷으로부터 다음 동작을 계산합니다.
func (c *Controller) Poll(sensors Sensors, tick float64) Action {
	position := sensors.CurrentPosition()
	velocity := sensors.CurrentVelocity()
	floors := sensors.FloorsToStopAt()

	isStoppedAtCurrentFloor := c.isStopped(velocity) && c.canStopAt(position)

	// [Safety Guard] 비상 정지는 모든 로직보다 우선합니다.
	if sensors.IsEmergencyStopActivated() {
		return Action{
			TargetVelocity:          0,
			IsStoppedAtCurrentFloor: isStoppedAtCurrentFloor,
		}
	}

	direction, target, found := nextTarget(c.direction, position, c.config.FloorLeeway, floors)
	if !found {
		// 목표 층 없음: 현재 층에서 대기
		return Action{
			TargetVelocity:          0,
			IsStoppedAtCurrentFloor: true,
		}
	}

	// Without a usable tick the overshoot guard cannot be evaluated; hold still.
	if !(tick > 0) {
		return Action{
			TargetVelocity:          0,
			IsStoppedAtCurrentFloor: isStoppedAtCurrentFloor,
		}
	}

	// Neutral means "keep the direction already held".
	if direction != DirNeutral {
		c.direction = direction
	}

	return Action{
		TargetVelocity:          c.shapeVelocity(Position(target)-position, tick),
		IsStoppedAtCurrentFloor: false,
	}
}

// shapeVelocity caps the speed so the car cannot pass the target within one tick.
func (c *Controller) shapeVelocity(signedDistance Position, tick float64) Velocity {
	exact := math.Abs(signedDistance) / tick
	speed := math.Min(c.config.PreferredVelocity, exact)
	if !(speed > 0) {
		return 0
	}
	return math.Copysign(speed, signedDistance)
}

func (c *Controller) isStopped(v Velocity) bool {
	return math.Abs(v) < c.config.VelocityEpsilon
}

// canStopAt reports whether position lies within the leeway of its nearest floor.
func (c *Controller) canStopAt(position Position) bool {
	nearest := math.Round(position)
	return math.Abs(position-nearest) < c.config.FloorLeeway
}

// nextTarget selects the next floor to visit and the direction toward it.
//
// The held direction is searched first and the opposite one only when nothing
// is left ahead. This bounds the worst case: in a building with N floors the
// car makes at most N-1 stops before a waiting passenger is picked up, and at
// most N-1 stops before they are dropped off. Shortest-distance-first would
// break that bound.
func nextTarget(direction Direction, position Position, leeway Position, floors []Floor) (Direction, Floor, bool) {
	current := Floor(math.Round(position))

	var target Floor
	var found bool
	switch direction {
	case DirUp:
		if target, found = NearestAbove(current, floors); !found {
			target, found = NearestBelow(current, floors)
		}
	case DirDown:
		if target, found = NearestBelow(current, floors); !found {
			target, found = NearestAbove(current, floors)
		}
	default:
		target, found = NearestAny(current, floors)
	}

	// The host decides when a floor leaves the list, so the floor we are
	// already standing on may still be in it.
	if !found || math.Abs(Position(target)-position) <= leeway {
		return DirNeutral, 0, false
	}

	switch delta := target - current; {
	case delta > 0:
		return DirUp, target, true
	case delta < 0:
		return DirDown, target, true
	default:
		return DirNeutral, target, true
	}
}
