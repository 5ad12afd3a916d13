// Package events publishes domain events to kafka for downstream consumers.
// The publisher is optional: a nil *Publisher drops events silently so the
// API works without a broker in development.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	TypeUserSignedUp  = "user.signed_up"
	TypePasswordReset = "user.password_reset"
	TypeTourCreated   = "tour.created"
)

type envelope struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	At   time.Time       `json:"at"`
	Data json.RawMessage `json:"data"`
}

type Publisher struct {
	writer *kafka.Writer
	log    *zap.SugaredLogger
}

func NewPublisher(brokers []string, topic string, log *zap.SugaredLogger) *Publisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}
	return &Publisher{writer: w, log: log}
}

// Publish emits one event keyed by type. Failures are logged, never
// propagated: event delivery must not fail the request that produced it.
func (p *Publisher) Publish(ctx context.Context, eventType string, data any) {
	if p == nil {
		return
	}
	raw, err := json.Marshal(data)
	if err != nil {
		p.log.Errorw("event marshal", "type", eventType, "err", err)
		return
	}
	env := envelope{
		ID:   uuid.NewString(),
		Type: eventType,
		At:   time.Now().UTC(),
		Data: raw,
	}
	payload, err := json.Marshal(env)
	if err != nil {
		p.log.Errorw("event marshal", "type", eventType, "err", err)
		return
	}
	msg := kafka.Message{Key: []byte(eventType), Value: payload}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Errorw("event publish", "type", eventType, "err", err)
	}
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
