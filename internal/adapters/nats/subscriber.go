package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/pinmap/internal/core/domain"
)

// Subscriber consumes mark events from JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber opens its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := connect(url)
	if err != nil {
		return nil, err
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeMarkCreated delivers marks created from now on. The consumer is
// ephemeral: a screen that reconnects refetches instead of replaying.
func (s *Subscriber) SubscribeMarkCreated(ctx context.Context, handler func(ctx context.Context, m *domain.Mark) error) error {
	sub, err := s.js.Subscribe(SubjectMarksCreated, func(msg *nats.Msg) {
		var m domain.Mark
		if err := json.Unmarshal(msg.Data, &m); err != nil {
			slog.Warn("discarding malformed mark event", "subject", msg.Subject, "error", err)
			_ = msg.Term()
			return
		}
		if err := handler(ctx, &m); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.DeliverNew(),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", SubjectMarksCreated, err)
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
