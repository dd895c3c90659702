package canbus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.einride.tech/can"

	"go-lift-controller/pkg/lift"
)

// fakeBus delivers frames from a channel and records transmitted frames.
type fakeBus struct {
	rx chan can.Frame

	mu  sync.Mutex
	tx  []can.Frame
	err error
}

func newFakeBus() *fakeBus {
	return &fakeBus{rx: make(chan can.Frame, 16)}
}

func (b *fakeBus) ReadFrame(ctx context.Context) (can.Frame, error) {
	select {
	case <-ctx.Done():
		return can.Frame{}, ctx.Err()
	case f := <-b.rx:
		return f, nil
	}
}

func (b *fakeBus) WriteFrame(_ context.Context, f can.Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.tx = append(b.tx, f)
	return nil
}

func (b *fakeBus) sent() []can.Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]can.Frame(nil), b.tx...)
}

func testLinkConfig() LinkConfig {
	return LinkConfig{
		ID:           "can-test",
		Controller:   lift.Config{PreferredVelocity: 0.5, FloorLeeway: 0.001, VelocityEpsilon: 0.001},
		TickInterval: 100 * time.Millisecond,
	}
}

func mustRequests(t *testing.T, floors ...lift.Floor) can.Frame {
	t.Helper()
	f, err := EncodeRequests(floors, 0)
	if err != nil {
		t.Fatalf("EncodeRequests failed: %v", err)
	}
	return f
}

func TestNewLink_Validates(t *testing.T) {
	cfg := testLinkConfig()
	cfg.Controller.PreferredVelocity = 0
	if _, err := NewLink(cfg, newFakeBus(), newFakeBus()); !errors.Is(err, lift.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}

	cfg = testLinkConfig()
	cfg.TickInterval = 0
	if _, err := NewLink(cfg, newFakeBus(), newFakeBus()); err == nil {
		t.Error("Expected error for zero tick interval")
	}
}

func TestLink_Tick(t *testing.T) {
	bus := newFakeBus()
	link, err := NewLink(testLinkConfig(), bus, bus)
	if err != nil {
		t.Fatalf("NewLink failed: %v", err)
	}

	// No sensor frame yet: stand still.
	_ = link.HandleFrame(mustRequests(t, 3))
	action, err := link.Tick(context.Background(), 0.1)
	if err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if action.TargetVelocity != 0 {
		t.Errorf("Expected zero command without sensors, got %v", action.TargetVelocity)
	}

	_ = link.HandleFrame(EncodeSensors(SensorReading{Position: 1, Velocity: 0}))
	if _, err := link.Tick(context.Background(), 0.1); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}

	sent := bus.sent()
	if len(sent) != 2 {
		t.Fatalf("Expected 2 command frames, got %d", len(sent))
	}
	cmd, err := DecodeCommand(sent[1])
	if err != nil {
		t.Fatalf("DecodeCommand failed: %v", err)
	}
	if cmd.TargetVelocity != 0.5 || cmd.IsStoppedAtCurrentFloor {
		t.Errorf("Expected 0.5 floors/s toward 3, got %+v", cmd)
	}
	if link.Direction() != lift.DirUp {
		t.Errorf("Expected direction Up, got %s", link.Direction())
	}
}

func TestLink_EmergencyStop(t *testing.T) {
	bus := newFakeBus()
	link, _ := NewLink(testLinkConfig(), bus, bus)

	_ = link.HandleFrame(mustRequests(t, 8))
	_ = link.HandleFrame(EncodeSensors(SensorReading{Position: 4.5, Velocity: 0.5, EmergencyStop: true}))

	action, err := link.Tick(context.Background(), 0.1)
	if err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if action.TargetVelocity != 0 || action.IsStoppedAtCurrentFloor {
		t.Errorf("Expected zero command between floors, got %+v", action)
	}
}

func TestLink_TimeToFloor(t *testing.T) {
	bus := newFakeBus()
	link, _ := NewLink(testLinkConfig(), bus, bus)

	if _, ok := link.TimeToFloor(5, 1); ok {
		t.Error("Expected no estimate without sensors")
	}

	_ = link.HandleFrame(mustRequests(t, 5))
	_ = link.HandleFrame(EncodeSensors(SensorReading{Position: 1, Velocity: 0.5}))
	_, _ = link.Tick(context.Background(), 0.1)

	got, ok := link.TimeToFloor(5, 1)
	if !ok || got != 8 {
		t.Errorf("Expected 8 seconds, got %v (ok=%v)", got, ok)
	}
}

func TestLink_HandleFrame(t *testing.T) {
	link, _ := NewLink(testLinkConfig(), newFakeBus(), newFakeBus())

	if err := link.HandleFrame(can.Frame{ID: 0x7FF, Length: 2}); err != nil {
		t.Errorf("Expected unknown frame to be ignored, got %v", err)
	}
	if err := link.HandleFrame(can.Frame{ID: SensorFrameID, Length: 3}); err == nil {
		t.Error("Expected error for short sensor frame")
	}
	if n := link.DecodeErrors(); n != 1 {
		t.Errorf("Expected 1 decode error, got %d", n)
	}
}

func TestLink_WriteError(t *testing.T) {
	bus := newFakeBus()
	bus.err = errors.New("bus off")
	link, _ := NewLink(testLinkConfig(), bus, bus)

	if _, err := link.Tick(context.Background(), 0.1); err == nil {
		t.Error("Expected write error to be returned")
	}
}

func TestLink_Run(t *testing.T) {
	cfg := testLinkConfig()
	cfg.TickInterval = time.Millisecond
	bus := newFakeBus()
	link, _ := NewLink(cfg, bus, bus)

	bus.rx <- mustRequests(t, 2)
	bus.rx <- EncodeSensors(SensorReading{Position: 0})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- link.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for {
		moving := false
		for _, f := range bus.sent() {
			if cmd, _ := DecodeCommand(f); cmd.TargetVelocity > 0 {
				moving = true
			}
		}
		if moving {
			break
		}
		select {
		case <-deadline:
			t.Fatal("Timed out waiting for a moving command")
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
