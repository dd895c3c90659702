package canbus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"go.einride.tech/can"
	"go.einride.tech/can/pkg/socketcan"
)

// FrameReader receives CAN frames.
type FrameReader interface {
	ReadFrame(ctx context.Context) (can.Frame, error)
}

// FrameWriter transmits CAN frames.
type FrameWriter interface {
	WriteFrame(ctx context.Context, frame can.Frame) error
}

// SocketCAN is a reader and writer over one SocketCAN interface.
type SocketCAN struct {
	conn net.Conn
	rx   *socketcan.Receiver
	tx   *socketcan.Transmitter
}

// DialSocketCAN opens a SocketCAN interface such as "can0" or "vcan0".
func DialSocketCAN(ctx context.Context, iface string) (*SocketCAN, error) {
	conn, err := socketcan.DialContext(ctx, "can", iface)
	if err != nil {
		return nil, fmt.Errorf("socketcan dial %s: %w", iface, err)
	}
	return &SocketCAN{
		conn: conn,
		rx:   socketcan.NewReceiver(conn),
		tx:   socketcan.NewTransmitter(conn),
	}, nil
}

// ReadFrame blocks until the next data frame arrives. Error frames are skipped.
// Closing the bus unblocks a pending read.
func (s *SocketCAN) ReadFrame(ctx context.Context) (can.Frame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return can.Frame{}, err
		}
		if !s.rx.Receive() {
			if err := s.rx.Err(); err != nil {
				return can.Frame{}, fmt.Errorf("socketcan receive: %w", err)
			}
			return can.Frame{}, io.EOF
		}
		if s.rx.HasErrorFrame() {
			continue
		}
		return s.rx.Frame(), nil
	}
}

// WriteFrame transmits one frame.
func (s *SocketCAN) WriteFrame(ctx context.Context, frame can.Frame) error {
	if err := s.tx.TransmitFrame(ctx, frame); err != nil {
		return fmt.Errorf("socketcan transmit: %w", err)
	}
	return nil
}

// Close closes the socket.
func (s *SocketCAN) Close() error {
	if s.conn == nil {
		return nil
	}
	if err := s.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}
