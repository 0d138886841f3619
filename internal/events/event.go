// Package events carries message lifecycle events from the message service
// to the broker and back into the process through the listener.
package events

import "time"

// TopicMessages is the topic every message lifecycle event is published on.
const TopicMessages = "messages"

// Action describes what happened to a message.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// MessageEvent is the JSON payload published for a message change.
type MessageEvent struct {
	Action     Action    `json:"action"`
	MessageID  uint      `json:"message_id"`
	RoomID     uint      `json:"room_id"`
	SenderID   uint      `json:"sender_id"`
	Content    string    `json:"content,omitempty"`
	SentAt     time.Time `json:"sent_at"`
	OccurredAt time.Time `json:"occurred_at"`
	Source     string    `json:"source"`

	// CorrelationID ties the event to the request that caused it.
	CorrelationID string `json:"correlation_id,omitempty"`
}
