package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/webchat-api/internal/observability"
)

// HeaderKey carries the partition key of a published event.
const HeaderKey = "Message-Key"

// Publisher delivers an encoded payload to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload []byte) error
}

type msgPublisher interface {
	PublishMsg(msg *nats.Msg) error
}

// NATSPublisher publishes to the subject <prefix>.<topic>.
type NATSPublisher struct {
	conn   msgPublisher
	prefix string
}

// NewNATSPublisher builds a publisher over an established connection.
func NewNATSPublisher(conn *nats.Conn, prefix string) *NATSPublisher {
	return newNATSPublisher(conn, prefix)
}

func newNATSPublisher(conn msgPublisher, prefix string) *NATSPublisher {
	return &NATSPublisher{conn: conn, prefix: strings.Trim(prefix, ".")}
}

// Subject resolves the broker subject for topic.
func (p *NATSPublisher) Subject(topic string) string {
	return Subject(p.prefix, topic)
}

// Publish sends payload with key and the context's correlation id attached as headers.
func (p *NATSPublisher) Publish(ctx context.Context, topic, key string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := nats.NewMsg(p.Subject(topic))
	msg.Data = payload
	if key != "" {
		msg.Header.Set(HeaderKey, key)
	}
	if id := observability.CorrelationID(ctx); id != "" {
		msg.Header.Set(observability.HeaderCorrelationID, id)
	}

	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Subject, err)
	}
	return nil
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct {
	logger zerolog.Logger
}

// NewNopPublisher constructs a publisher that only logs.
func NewNopPublisher(logger zerolog.Logger) NopPublisher {
	return NopPublisher{logger: logger.With().Str("component", "nop_publisher").Logger()}
}

func (p NopPublisher) Publish(_ context.Context, topic, key string, payload []byte) error {
	p.logger.Debug().Str("topic", topic).Str("key", key).Int("bytes", len(payload)).Msg("event discarded")
	return nil
}

// LoopbackPublisher hands events straight to an in-process listener.
type LoopbackPublisher struct {
	listener *Listener
}

// NewLoopbackPublisher routes published messages to listener.
func NewLoopbackPublisher(listener *Listener) LoopbackPublisher {
	return LoopbackPublisher{listener: listener}
}

func (p LoopbackPublisher) Publish(ctx context.Context, topic, key string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if topic == TopicMessages && p.listener != nil {
		p.listener.Handle(ctx, key, payload)
	}
	return nil
}

// Subject joins a subject prefix and a topic.
func Subject(prefix, topic string) string {
	prefix = strings.Trim(prefix, ".")
	if prefix == "" {
		return topic
	}
	return prefix + "." + topic
}
