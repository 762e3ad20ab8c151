package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventSessionStart EventType = "session_start"
	EventNodeEnter    EventType = "node_enter"
	EventMessage      EventType = "message"
	EventSessionEnd   EventType = "session_end"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// NodeEvent represents entry into a node.
type NodeEvent struct {
	EventBase
	NodeID   string   `json:"node_id"`
	NodeType NodeKind `json:"node_type"`
}

// MessageEvent represents a line appended to the transcript.
type MessageEvent struct {
	EventBase
	Message ChatMessage `json:"message"`
}

// SessionEvent represents the start or the end of a session.
type SessionEvent struct {
	EventBase
	Status SessionStatus `json:"status"`
	Halt   HaltReason    `json:"halt,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
// Every field is optional.
type LifecycleHooks struct {
	OnSessionStart func(context.Context, *SessionEvent)
	OnNodeEnter    func(context.Context, *NodeEvent)
	OnMessage      func(context.Context, *MessageEvent)
	OnSessionEnd   func(context.Context, *SessionEvent)
}
