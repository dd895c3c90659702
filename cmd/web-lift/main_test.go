package main

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"go-lift-controller/pkg/config"
)

func dialSession(t *testing.T) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(handleWebSocket(config.Default()))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads messages until one of the given type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, msgType string, match func(ServerMessage) bool) ServerMessage {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		_ = conn.SetReadDeadline(deadline)
		var msg ServerMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("Waiting for %q: %v", msgType, err)
		}
		if msg.Type == msgType && (match == nil || match(msg)) {
			return msg
		}
	}
}

func TestSession_InitAndTravel(t *testing.T) {
	conn := dialSession(t)

	velocity := 20.0
	tick := 0.01
	if err := conn.WriteJSON(ClientMessage{
		Action: "init",
		Config: &CarConfig{ID: "ws-test", PreferredVelocity: &velocity, Tick: &tick},
	}); err != nil {
		t.Fatalf("Write init failed: %v", err)
	}

	state := readUntil(t, conn, "state", nil)
	if state.Position != 0 || state.MaxFloor != 10 {
		t.Errorf("Unexpected initial state %+v", state)
	}

	if err := conn.WriteJSON(ClientMessage{Action: "stopAtFloor", Floor: 3}); err != nil {
		t.Fatalf("Write stopAtFloor failed: %v", err)
	}
	readUntil(t, conn, "event", func(m ServerMessage) bool { return m.EventType == "Arrived" })

	if err := conn.WriteJSON(ClientMessage{Action: "getState"}); err != nil {
		t.Fatalf("Write getState failed: %v", err)
	}
	state = readUntil(t, conn, "state", func(m ServerMessage) bool { return m.IsStopped && len(m.Floors) == 0 })
	if state.Floor != 3 {
		t.Errorf("Expected car at floor 3, got %+v", state)
	}
}

func TestSession_TimeToFloorWhileIdle(t *testing.T) {
	conn := dialSession(t)

	if err := conn.WriteJSON(ClientMessage{Action: "init"}); err != nil {
		t.Fatalf("Write init failed: %v", err)
	}
	readUntil(t, conn, "state", nil)

	if err := conn.WriteJSON(ClientMessage{Action: "timeToFloor", Floor: 5}); err != nil {
		t.Fatalf("Write timeToFloor failed: %v", err)
	}
	msg := readUntil(t, conn, "estimate", nil)
	if msg.Estimate != nil {
		t.Errorf("Expected no estimate for an idle car, got %v", *msg.Estimate)
	}
	if msg.TargetFloor == nil || *msg.TargetFloor != 5 {
		t.Errorf("Expected target floor 5 in reply, got %v", msg.TargetFloor)
	}
}
