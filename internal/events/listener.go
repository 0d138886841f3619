package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/webchat-api/internal/observability"
)

// Sink receives decoded message events.
type Sink interface {
	Deliver(event MessageEvent)
}

type queueSubscriber interface {
	QueueSubscribe(subject, queue string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// Listener consumes the messages topic, logs every receipt and forwards
// decoded events to its sink.
type Listener struct {
	sink   Sink
	logger zerolog.Logger
}

// NewListener constructs a listener. sink may be nil.
func NewListener(sink Sink, logger zerolog.Logger) *Listener {
	return &Listener{
		sink:   sink,
		logger: logger.With().Str("component", "message_listener").Logger(),
	}
}

// Start subscribes to <prefix>.messages within queue and drains the
// subscription once ctx is done.
func (l *Listener) Start(ctx context.Context, conn *nats.Conn, prefix, queue string) error {
	return l.start(ctx, conn, prefix, queue)
}

func (l *Listener) start(ctx context.Context, conn queueSubscriber, prefix, queue string) error {
	subject := Subject(prefix, TopicMessages)
	sub, err := conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		key, correlationID := "", ""
		if msg.Header != nil {
			key = msg.Header.Get(HeaderKey)
			correlationID = msg.Header.Get(observability.HeaderCorrelationID)
		}
		l.Handle(observability.WithCorrelationID(ctx, correlationID), key, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}

	l.logger.Info().Str("subject", subject).Str("queue", queue).Msg("message listener started")

	go func() {
		<-ctx.Done()
		if sub == nil {
			return
		}
		if err := sub.Drain(); err != nil {
			l.logger.Warn().Err(err).Msg("failed to drain message subscription")
		}
	}()

	return nil
}

// Handle processes one delivery. The correlation id is taken from ctx and
// falls back to the one carried in the payload.
func (l *Listener) Handle(ctx context.Context, key string, data []byte) {
	var event MessageEvent
	var decodeErr error
	if len(data) > 0 {
		decodeErr = json.Unmarshal(data, &event)
	}

	correlationID := observability.CorrelationID(ctx)
	if correlationID == "" {
		correlationID = event.CorrelationID
	}
	logger := l.logger.With().Str("correlation_id", correlationID).Logger()
	logger.Info().Str("key", key).RawJSON("payload", jsonOrQuoted(data)).Msg("listener received")

	if len(data) == 0 {
		return
	}
	if decodeErr != nil {
		logger.Warn().Err(decodeErr).Msg("invalid message event")
		return
	}
	event.CorrelationID = correlationID

	observability.EventsReceived().WithLabelValues(string(event.Action)).Inc()

	if l.sink != nil {
		l.sink.Deliver(event)
	}
}

func jsonOrQuoted(data []byte) []byte {
	if len(data) == 0 {
		return []byte("null")
	}
	if json.Valid(data) {
		return data
	}
	quoted, _ := json.Marshal(string(data))
	return quoted
}
