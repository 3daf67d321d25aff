// internal/domain/websocket/types.go
package websocket

import (
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventType represents different real-time event types
type EventType string

const (
	// Connection events
	EventTypePing         EventType = "ping"
	EventTypePong         EventType = "pong"
	EventTypeConnected    EventType = "connected"
	EventTypeDisconnected EventType = "disconnected"
	EventTypeError        EventType = "error"

	// User interaction signal (client -> server)
	EventTypeActivity EventType = "activity"

	// Session events (server -> client)
	EventTypeSessionExpiring  EventType = "session:expiring"
	EventTypeSessionExpired   EventType = "session:expired"
	EventTypeSessionInactive  EventType = "session:inactive"
	EventTypeSessionRefreshed EventType = "session:refreshed"
)

// WSMessage is the universal message format
type WSMessage struct {
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	ID        string      `json:"id,omitempty"`
}

// ActivityData reports one browser interaction event.
type ActivityData struct {
	Event string `json:"event"`
}

// activityEvents are the interactions that count as the user being present.
var activityEvents = map[string]bool{
	"mousedown":  true,
	"mousemove":  true,
	"keypress":   true,
	"scroll":     true,
	"touchstart": true,
}

// IsActivityEvent reports whether event resets the inactivity window.
func IsActivityEvent(event string) bool {
	return activityEvents[event]
}

// ErrorData for error events
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ConnectedData greets a freshly authenticated connection.
type ConnectedData struct {
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Expires   time.Time `json:"expires"`
}

// Helper to create messages
func NewMessage(eventType EventType, data interface{}) *WSMessage {
	return &WSMessage{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now(),
		ID:        ulid.Make().String(),
	}
}

func (m *WSMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ParseMessage(data []byte) (*WSMessage, error) {
	var msg WSMessage
	err := json.Unmarshal(data, &msg)
	return &msg, err
}
