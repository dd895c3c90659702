package lift

import "math"

// TimeToFloor estimates the seconds until the car reaches floor.
// averageStop is the time spent at every intermediate stop on the way.
//
// No estimate is available while the car is stationary or has no held
// direction. Otherwise the path is the one the car will actually drive: straight
// to the floor when it lies ahead, or out to the furthest requested floor and
// back when it lies behind.
// TimeToFloor는 목표 층까지의 예상 도착 시간(초)을 계산합니다.
func (c *Controller) TimeToFloor(sensors Sensors, floor Floor, averageStop float64) (float64, bool) {
	position := sensors.CurrentPosition()
	speed := math.Abs(sensors.CurrentVelocity())
	if speed < c.config.VelocityEpsilon {
		return 0, false
	}

	floors := sensors.FloorsToStopAt()
	target := Position(floor)

	var stops int
	var distance Position

	switch c.direction {
	case DirUp:
		if target >= position {
			stops = countBetween(floors, position, target)
			distance = target - position
			break
		}
		turn := position
		if highest, ok := highestFloor(floors); ok && Position(highest) > position {
			turn = Position(highest)
			stops = countFloor(floors, highest)
		}
		stops += countBetween(floors, position, turn) + countBetween(floors, target, position)
		distance = (turn - position) + (turn - target)
	case DirDown:
		if target <= position {
			stops = countBetween(floors, target, position)
			distance = position - target
			break
		}
		turn := position
		if lowest, ok := lowestFloor(floors); ok && Position(lowest) < position {
			turn = Position(lowest)
			stops = countFloor(floors, lowest)
		}
		stops += countBetween(floors, turn, position) + countBetween(floors, position, target)
		distance = (position - turn) + (target - turn)
	default:
		return 0, false
	}

	return float64(stops)*averageStop + distance/speed, true
}

// countBetween counts requested floors strictly between lo and hi.
func countBetween(floors []Floor, lo, hi Position) int {
	n := 0
	for _, f := range floors {
		if p := Position(f); p > lo && p < hi {
			n++
		}
	}
	return n
}

// countFloor counts the requests for one floor; the turnaround floor is a stop too.
func countFloor(floors []Floor, floor Floor) int {
	n := 0
	for _, f := range floors {
		if f == floor {
			n++
		}
	}
	return n
}

func highestFloor(floors []Floor) (Floor, bool) {
	if len(floors) == 0 {
		return 0, false
	}
	highest := floors[0]
	for _, f := range floors[1:] {
		highest = max(highest, f)
	}
	return highest, true
}

func lowestFloor(floors []Floor) (Floor, bool) {
	if len(floors) == 0 {
		return 0, false
	}
	lowest := floors[0]
	for _, f := range floors[1:] {
		lowest = min(lowest, f)
	}
	return lowest, true
}
