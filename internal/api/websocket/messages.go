package websocket

import (
	"time"

	"github.com/KevinKickass/OpenMachineConfig/internal/types"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	MessageTypeEntityChanged MessageType = "entity_changed"
	MessageTypeSubscribed    MessageType = "subscribed"
	MessageTypeError         MessageType = "error"
)

// Message represents a WebSocket message
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// NewMessage creates a new message with current timestamp
func NewMessage(msgType MessageType, data interface{}) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

func NewEntityChangedMessage(event types.ChangeEvent) Message {
	return NewMessage(MessageTypeEntityChanged, event)
}

// ClientMessage is sent by clients to narrow the feed. An empty Entities list
// subscribes to everything.
type ClientMessage struct {
	Type     string             `json:"type"`
	Entities []types.EntityKind `json:"entities"`
}
