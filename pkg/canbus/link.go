package canbus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.einride.tech/can"

	"go-lift-controller/pkg/lift"
)

// LinkConfig configures a Link.
type LinkConfig struct {
	ID           string
	Controller   lift.Config
	TickInterval time.Duration
	FloorOffset  lift.Floor // floor carried by bit 0 of the request frame
}

// busView is the latest decoded bus state. It implements lift.Sensors.
type busView struct {
	reading SensorReading
	floors  []lift.Floor
}

func (v *busView) CurrentPosition() lift.Position { return v.reading.Position }
func (v *busView) CurrentVelocity() lift.Velocity { return v.reading.Velocity }
func (v *busView) FloorsToStopAt() []lift.Floor   { return v.floors }
func (v *busView) IsEmergencyStopActivated() bool { return v.reading.EmergencyStop }

// Link drives a car over CAN: sensor and request frames in, command frames out.
type Link struct {
	mu     sync.Mutex
	config LinkConfig

	controller *lift.Controller
	reader     FrameReader
	writer     FrameWriter

	view         busView
	haveSensors  bool
	decodeErrors uint64

	logger *slog.Logger
}

// NewLink creates a link. The transport is owned by the caller.
func NewLink(config LinkConfig, reader FrameReader, writer FrameWriter) (*Link, error) {
	if err := config.Controller.Validate(); err != nil {
		return nil, fmt.Errorf("invalid link config: %w", err)
	}
	if config.TickInterval <= 0 {
		return nil, fmt.Errorf("invalid link config: TickInterval must be positive, got %s", config.TickInterval)
	}
	return &Link{
		config:     config,
		controller: lift.New(config.Controller),
		reader:     reader,
		writer:     writer,
		view:       busView{floors: make([]lift.Floor, 0, MaxRequestFloors)},
		logger:     slog.Default().With("id", config.ID),
	}, nil
}

// HandleFrame applies one received frame to the bus state.
// Frames with unknown IDs are ignored.
func (l *Link) HandleFrame(f can.Frame) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch f.ID {
	case SensorFrameID:
		reading, err := DecodeSensors(f)
		if err != nil {
			l.decodeErrors++
			return err
		}
		if reading.EmergencyStop != l.view.reading.EmergencyStop {
			l.logger.Warn("Emergency stop changed", "active", reading.EmergencyStop, "position", reading.Position)
		}
		l.view.reading = reading
		l.haveSensors = true
	case RequestFrameID:
		floors, err := DecodeRequests(f, l.config.FloorOffset, l.view.floors)
		if err != nil {
			l.decodeErrors++
			return err
		}
		l.view.floors = floors
	default:
		l.logger.Debug("Ignoring frame", "id", fmt.Sprintf("0x%X", f.ID))
	}
	return nil
}

// DecodeErrors returns the number of frames that failed to decode.
func (l *Link) DecodeErrors() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.decodeErrors
}

// Tick polls the controller once and transmits the command.
// Until the first sensor frame arrives the car is commanded to stand still.
func (l *Link) Tick(ctx context.Context, dt float64) (lift.Action, error) {
	l.mu.Lock()
	var action lift.Action
	if l.haveSensors {
		action = l.controller.Poll(&l.view, dt)
	}
	l.mu.Unlock()

	if err := l.writer.WriteFrame(ctx, EncodeCommand(action)); err != nil {
		return action, fmt.Errorf("write command: %w", err)
	}
	return action, nil
}

// TimeToFloor estimates the seconds until the car reaches floor.
func (l *Link) TimeToFloor(floor lift.Floor, averageStop float64) (float64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.haveSensors {
		return 0, false
	}
	return l.controller.TimeToFloor(&l.view, floor, averageStop)
}

// Direction returns the controller's held direction.
func (l *Link) Direction() lift.Direction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.controller.Direction()
}

// Run receives frames and sends one command per tick until ctx is cancelled
// or the transport fails. Close the reader afterwards to release a pending read.
func (l *Link) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	l.logger.Info("CAN link started", "tick", l.config.TickInterval)

	recvErr := make(chan error, 1)
	go func() {
		recvErr <- l.receive(ctx)
	}()

	ticker := time.NewTicker(l.config.TickInterval)
	defer ticker.Stop()

	dt := l.config.TickInterval.Seconds()
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("CAN link stopping (Context Cancelled)")
			return ctx.Err()
		case err := <-recvErr:
			return err
		case <-ticker.C:
			if _, err := l.Tick(ctx, dt); err != nil {
				l.logger.Error("Failed to send command", "error", err)
				return err
			}
		}
	}
}

func (l *Link) receive(ctx context.Context) error {
	for {
		f, err := l.reader.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read frame: %w", err)
		}
		if err := l.HandleFrame(f); err != nil {
			l.logger.Warn("Dropping malformed frame", "error", err)
		}
	}
}
