// Package mqtt publishes jump and system events with an abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/skiptrack/internal/logic"
)

// Topic is the MQTT topic for jump events.
const Topic = "fitness/skiptrack/jumps"

// TopicSystem is the MQTT topic for system and workout lifecycle events.
const TopicSystem = "fitness/skiptrack/system"

// System event names.
const (
	EventStartup           = "STARTUP"
	EventShutdown          = "SHUTDOWN"
	EventHeartbeat         = "HEARTBEAT"
	EventWorkoutStart      = "WORKOUT_START"
	EventWorkoutStop       = "WORKOUT_STOP"
	EventSourceUnavailable = "SOURCE_UNAVAILABLE"
	EventOffline           = "OFFLINE"
)

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a jump event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent is a lifecycle event (startup, shutdown, heartbeat, workout).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string
	Reason     string // e.g. "SIGTERM" on shutdown, plan name on workout start
	RawPayload []byte // pre-formatted JSON; if set, FormatSystemPayload returns it as is
	Retained   bool
}

// Payload is the jump message envelope.
type Payload struct {
	Jump JumpPayload `json:"jump"`
}

// JumpPayload contains the jump event details.
type JumpPayload struct {
	Timestamp string  `json:"timestamp"`
	Origin    string  `json:"origin"`
	Magnitude float64 `json:"magnitude"`
	Count     int     `json:"count"`
	OffsetMs  int64   `json:"offset_ms"`
}

// FormatPayload creates the JSON payload for a jump event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Jump: JumpPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
			Origin:    string(event.Origin),
			Magnitude: event.Magnitude,
			Count:     event.Count,
			OffsetMs:  event.Offset.Milliseconds(),
		},
	}
	return json.Marshal(payload)
}

// SystemPayload is the envelope for simple system events (LWT, workout
// events without a status snapshot).
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	inner := SystemPayloadInner{
		Event:  event.Event,
		Reason: event.Reason,
	}
	if !event.Timestamp.IsZero() {
		inner.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(SystemPayload{System: inner})
}
