// Package canbus connects the lift controller to a car over a CAN bus.
//
// The car publishes its sensors and its requested floors; the controller
// answers with a command frame every tick. All frames are classic 8-byte CAN
// frames with little-endian signals.
package canbus

import (
	"fmt"
	"math"

	"go.einride.tech/can"

	"go-lift-controller/pkg/lift"
)

// Frame IDs on the lift bus.
const (
	SensorFrameID  uint32 = 0x110
	RequestFrameID uint32 = 0x111
	CommandFrameID uint32 = 0x120
)

// Signal layout. Positions and velocities are scaled by 1e-4.
const (
	signalScale = 1e4

	positionStart   = 0
	positionLength  = 32
	velocityStart   = 32
	velocityLength  = 24
	emergencyBit    = 56
	commandVelStart = 0
	commandVelLen   = 32
	commandStopBit  = 32

	frameLength = 8

	// MaxRequestFloors is the number of floors one request frame can carry.
	MaxRequestFloors = 64
)

// SensorReading is the decoded content of a sensor frame.
type SensorReading struct {
	Position      lift.Position
	Velocity      lift.Velocity
	EmergencyStop bool
}

// EncodeSensors builds a sensor frame. Values beyond the signal range are clamped.
func EncodeSensors(r SensorReading) can.Frame {
	f := can.Frame{ID: SensorFrameID, Length: frameLength}
	f.Data.SetSignedBitsLittleEndian(positionStart, positionLength, scaleSigned(r.Position, positionLength))
	f.Data.SetSignedBitsLittleEndian(velocityStart, velocityLength, scaleSigned(r.Velocity, velocityLength))
	f.Data.SetBit(emergencyBit, r.EmergencyStop)
	return f
}

// DecodeSensors parses a sensor frame.
func DecodeSensors(f can.Frame) (SensorReading, error) {
	if err := checkFrame(f, SensorFrameID); err != nil {
		return SensorReading{}, err
	}
	return SensorReading{
		Position:      float64(f.Data.SignedBitsLittleEndian(positionStart, positionLength)) / signalScale,
		Velocity:      float64(f.Data.SignedBitsLittleEndian(velocityStart, velocityLength)) / signalScale,
		EmergencyStop: f.Data.Bit(emergencyBit),
	}, nil
}

// EncodeRequests builds a request frame; bit k stands for floor offset+k.
func EncodeRequests(floors []lift.Floor, offset lift.Floor) (can.Frame, error) {
	var mask uint64
	for _, floor := range floors {
		bit := floor - offset
		if bit < 0 || bit >= MaxRequestFloors {
			return can.Frame{}, fmt.Errorf("floor %d outside request range [%d, %d]", floor, offset, offset+MaxRequestFloors-1)
		}
		mask |= 1 << uint(bit)
	}
	f := can.Frame{ID: RequestFrameID, Length: frameLength}
	f.Data.UnpackLittleEndian(mask)
	return f, nil
}

// DecodeRequests parses a request frame into dst, reusing its storage.
// Floors come out in ascending order.
func DecodeRequests(f can.Frame, offset lift.Floor, dst []lift.Floor) ([]lift.Floor, error) {
	if err := checkFrame(f, RequestFrameID); err != nil {
		return dst[:0], err
	}
	mask := f.Data.PackLittleEndian()
	out := dst[:0]
	for bit := 0; bit < MaxRequestFloors; bit++ {
		if mask&(1<<uint(bit)) != 0 {
			out = append(out, offset+bit)
		}
	}
	return out, nil
}

// EncodeCommand builds a command frame from a controller action.
func EncodeCommand(a lift.Action) can.Frame {
	f := can.Frame{ID: CommandFrameID, Length: frameLength}
	f.Data.SetSignedBitsLittleEndian(commandVelStart, commandVelLen, scaleSigned(a.TargetVelocity, commandVelLen))
	f.Data.SetBit(commandStopBit, a.IsStoppedAtCurrentFloor)
	return f
}

// DecodeCommand parses a command frame.
func DecodeCommand(f can.Frame) (lift.Action, error) {
	if err := checkFrame(f, CommandFrameID); err != nil {
		return lift.Action{}, err
	}
	return lift.Action{
		TargetVelocity:          float64(f.Data.SignedBitsLittleEndian(commandVelStart, commandVelLen)) / signalScale,
		IsStoppedAtCurrentFloor: f.Data.Bit(commandStopBit),
	}, nil
}

func checkFrame(f can.Frame, id uint32) error {
	if f.ID != id {
		return fmt.Errorf("frame 0x%X: expected ID 0x%X", f.ID, id)
	}
	if f.Length < frameLength {
		return fmt.Errorf("frame 0x%X expects DLC %d, got %d", f.ID, frameLength, f.Length)
	}
	return nil
}

// scaleSigned converts a physical value to a raw signed integer that fits in bits.
func scaleSigned(v float64, bits uint8) int64 {
	hi := int64(1)<<(bits-1) - 1
	lo := -int64(1) << (bits - 1)
	if math.IsNaN(v) {
		return 0
	}
	raw := math.Round(v * signalScale)
	if raw > float64(hi) {
		return hi
	}
	if raw < float64(lo) {
		return lo
	}
	return int64(raw)
}
