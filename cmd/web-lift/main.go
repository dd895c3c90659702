package main

import (
	"context"
	"embed"
	"encoding/json"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"go-lift-controller/pkg/config"
	"go-lift-controller/pkg/lift"
	"go-lift-controller/pkg/simulator"
)

//go:embed static/*
var staticFiles embed.FS

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// Message types
// 메시지 타입 정의
type ClientMessage struct {
	Action      string     `json:"action"`
	Config      *CarConfig `json:"config,omitempty"`
	Floor       int        `json:"floor,omitempty"`
	On          bool       `json:"on,omitempty"`
	AverageStop *float64   `json:"averageStop,omitempty"`
}

// CarConfig overrides the loaded settings for one session.
type CarConfig struct {
	ID                string   `json:"id"`
	MinFloor          *int     `json:"minFloor,omitempty"`
	MaxFloor          *int     `json:"maxFloor,omitempty"`
	InitialPosition   *float64 `json:"initialPosition,omitempty"`
	PreferredVelocity *float64 `json:"preferredVelocity,omitempty"` // floors/s
	Tick              *float64 `json:"tick,omitempty"`              // seconds
}

type ServerMessage struct {
	Type          string      `json:"type"`
	EventType     string      `json:"eventType,omitempty"`
	Payload       interface{} `json:"payload,omitempty"`
	Timestamp     string      `json:"timestamp,omitempty"`
	Position      float64     `json:"position"`
	Velocity      float64     `json:"velocity"`
	Floor         int         `json:"floor"`
	Direction     string      `json:"direction"`
	Floors        []int       `json:"floors"`
	EmergencyStop bool        `json:"emergencyStop"`
	IsStopped     bool        `json:"isStopped"`
	MinFloor      int         `json:"minFloor"`
	MaxFloor      int         `json:"maxFloor"`
	TargetFloor   *int        `json:"targetFloor,omitempty"`
	Estimate      *float64    `json:"estimate,omitempty"`
}

// CarSession manages a WebSocket connection with a simulated car
// CarSession은 시뮬레이션 차량과의 WebSocket 연결을 관리합니다.
type CarSession struct {
	conn     *websocket.Conn
	settings *config.Config
	car      *simulator.Car
	mu       sync.Mutex
	writeMu  sync.Mutex
	done     chan struct{}
	cancel   context.CancelFunc
}

func NewCarSession(conn *websocket.Conn, settings *config.Config) *CarSession {
	return &CarSession{
		conn:     conn,
		settings: settings,
		done:     make(chan struct{}),
	}
}

func (s *CarSession) HandleMessages() {
	slog.Info("Session started", "remote_addr", s.conn.RemoteAddr())
	defer func() {
		close(s.done)
		s.mu.Lock()
		if s.cancel != nil {
			s.cancel()
		}
		s.mu.Unlock()
		_ = s.conn.Close()
		slog.Info("Session ended", "remote_addr", s.conn.RemoteAddr())
	}()

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket read error", "error", err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			slog.Warn("Failed to parse message", "error", err)
			continue
		}

		s.handleAction(msg)
	}
}

func (s *CarSession) handleAction(msg ClientMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slog.Debug("Action received", "action", msg.Action, "payload", msg)

	switch msg.Action {
	case "init":
		s.initCar(msg.Config)
	case "stopAtFloor":
		if s.car != nil {
			if err := s.car.StopAtFloor(msg.Floor); err != nil {
				slog.Warn("Failed to request floor via WS", "floor", msg.Floor, "error", err)
			}
			s.sendState()
		}
	case "removeFloor":
		if s.car != nil {
			s.car.RemoveFloor(msg.Floor)
			s.sendState()
		}
	case "emergency":
		if s.car != nil {
			s.car.SetEmergencyStop(msg.On)
			s.sendState()
		}
	case "timeToFloor":
		if s.car != nil {
			s.sendEstimate(msg.Floor, msg.AverageStop)
		}
	case "reset":
		if s.car != nil {
			s.car.Reset()
			s.sendState()
		}
	case "stop":
		if s.cancel != nil {
			s.cancel()
			s.cancel = nil
		}
		s.car = nil
	case "getState":
		if s.car != nil {
			s.sendState()
		}
	default:
		slog.Warn("Unknown action", "action", msg.Action)
	}
}

func (s *CarSession) initCar(override *CarConfig) {
	// Stop existing car if any
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	cfg, err := s.settings.SimulatorConfig()
	if err != nil {
		slog.Error("Invalid settings", "error", err)
		return
	}
	if override != nil {
		if override.ID != "" {
			cfg.ID = override.ID
		}
		if override.MinFloor != nil {
			cfg.MinFloor = *override.MinFloor
		}
		if override.MaxFloor != nil {
			cfg.MaxFloor = *override.MaxFloor
		}
		if override.InitialPosition != nil {
			cfg.InitialPosition = *override.InitialPosition
		}
		if override.PreferredVelocity != nil {
			cfg.Controller.PreferredVelocity = *override.PreferredVelocity
		}
		if override.Tick != nil {
			cfg.TickInterval = time.Duration(*override.Tick * float64(time.Second))
		}
	}
	slog.Info("Car config", "config", cfg)

	car, err := simulator.New(cfg)
	if err != nil {
		slog.Error("Failed to initialize car", "error", err)
		return
	}
	s.car = car

	// Start car
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	// Subscribe to events
	// 이벤트 구독
	go s.eventListener(ctx, car)

	go func() {
		if err := car.Run(ctx); err != nil && err != context.Canceled {
			slog.Error("Car run error", "error", err)
		}
	}()

	slog.Info("Car initialized", "id", cfg.ID, "floors", cfg.MinFloor, "to", cfg.MaxFloor)

	// Send initial state
	s.sendState()
}

// eventListener forwards car events; it also pushes the position every
// half second so the browser can animate travel between floors.
func (s *CarSession) eventListener(ctx context.Context, car *simulator.Car) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case event := <-car.Events():
			s.sendEvent(event)
			s.sendCarState(car)
		case <-ticker.C:
			s.sendCarState(car)
		}
	}
}

func (s *CarSession) sendState() {
	if s.car == nil {
		return
	}
	s.sendCarState(s.car)
}

func (s *CarSession) sendCarState(car *simulator.Car) {
	state, err := car.Snapshot()
	if err != nil {
		slog.Error("Failed to snapshot car", "error", err)
		return
	}

	msg := ServerMessage{
		Type:          "state",
		Position:      state.Position,
		Velocity:      state.Velocity,
		Floor:         state.Floor,
		Direction:     string(state.Direction),
		Floors:        car.Floors(),
		EmergencyStop: state.EmergencyStop,
		IsStopped:     state.IsStopped,
		MinFloor:      car.Config.MinFloor,
		MaxFloor:      car.Config.MaxFloor,
	}

	s.writeJSON(msg)
}

func (s *CarSession) sendEstimate(floor lift.Floor, averageStop *float64) {
	avg := s.settings.Simulator.AverageStop
	if averageStop != nil {
		avg = *averageStop
	}

	msg := ServerMessage{
		Type:        "estimate",
		TargetFloor: &floor,
	}
	if seconds, ok := s.car.TimeToFloor(floor, avg); ok {
		msg.Estimate = &seconds
	}

	s.writeJSON(msg)
}

func (s *CarSession) sendEvent(event simulator.Event) {
	msg := ServerMessage{
		Type:      "event",
		EventType: string(event.Type),
		Payload:   event.Payload,
		Timestamp: event.Timestamp.Format("15:04:05"),
	}

	s.writeJSON(msg)
}

func (s *CarSession) writeJSON(msg ServerMessage) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteJSON(msg); err != nil {
		slog.Error("Failed to write JSON message", "error", err)
	}
}

func handleWebSocket(settings *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("WebSocket upgrade failed", "error", err)
			return
		}

		session := NewCarSession(conn, settings)
		session.HandleMessages()
	}
}

func main() {
	if err := config.LoadEnv(); err != nil {
		log.Fatal(err)
	}
	cfg, err := config.Load("")
	if err != nil {
		log.Fatal(err)
	}

	// Serve static files from embedded filesystem
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		log.Fatal(err)
	}

	http.Handle("/", http.FileServer(http.FS(staticFS)))
	http.HandleFunc("/ws", handleWebSocket(cfg))

	addr := ":" + cfg.Server.Port
	slog.Info("Starting lift web server", "addr", addr)
	slog.Info("Open http://localhost:" + cfg.Server.Port + " in your browser")

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatal(err)
	}
}
