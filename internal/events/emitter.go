package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/webchat-api/internal/observability"
)

// MessageEmitter publishes message lifecycle events without failing the caller.
type MessageEmitter struct {
	publisher Publisher
	logger    zerolog.Logger
	nodeID    string
	now       func() time.Time
}

// NewMessageEmitter wraps publisher. A nil publisher disables emission.
func NewMessageEmitter(publisher Publisher, logger zerolog.Logger) *MessageEmitter {
	return &MessageEmitter{
		publisher: publisher,
		logger:    logger.With().Str("component", "message_emitter").Logger(),
		nodeID:    uuid.NewString(),
		now:       time.Now,
	}
}

// NodeID identifies this process as the source of emitted events.
func (e *MessageEmitter) NodeID() string {
	return e.nodeID
}

// Emit publishes the event keyed by room for creations and by message otherwise.
// Failures are logged and counted.
func (e *MessageEmitter) Emit(ctx context.Context, event MessageEvent) {
	if e == nil || e.publisher == nil {
		return
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = e.now().UTC()
	}
	if event.Source == "" {
		event.Source = e.nodeID
	}
	if event.CorrelationID == "" {
		event.CorrelationID = observability.CorrelationID(ctx)
	}

	key := strconv.FormatUint(uint64(event.MessageID), 10)
	if event.Action == ActionCreated {
		key = strconv.FormatUint(uint64(event.RoomID), 10)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		e.logger.Warn().Err(err).Msg("failed to encode message event")
		observability.EventsPublished().WithLabelValues(string(event.Action), "error").Inc()
		return
	}

	if err := e.publisher.Publish(ctx, TopicMessages, key, payload); err != nil {
		e.logger.Warn().Err(err).Str("action", string(event.Action)).Uint("message_id", event.MessageID).Msg("failed to publish message event")
		observability.EventsPublished().WithLabelValues(string(event.Action), "error").Inc()
		return
	}

	observability.EventsPublished().WithLabelValues(string(event.Action), "ok").Inc()
}
