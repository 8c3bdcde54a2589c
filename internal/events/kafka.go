// Package events publishes checkout lifecycle events.
package events

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/segmentio/kafka-go"

	"github.com/xenking/kart-checkout/internal/checkout"
)

// DefaultTopic receives every checkout event.
const DefaultTopic = "checkout.events"

var _ checkout.Publisher = (*KafkaPublisher)(nil)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events keyed by session id, so all events of one
// checkout land on the same partition in order.
type KafkaPublisher struct {
	w       messageWriter
	brokers []string
}

// NewKafkaPublisher creates a publisher writing to topic on brokers.
func NewKafkaPublisher(topic string, brokers ...string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaPublisher{brokers: brokers, w: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e checkout.Event) error {
	msg := kafka.Message{
		Key:   []byte(e.SessionID),
		Value: Encode(e),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
			{Key: "event_id", Value: []byte(e.ID)},
		},
		Time: e.OccurredAt,
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return errors.Wrapf(err, "write %s", e.Type)
	}
	return nil
}

// Ping dials the brokers in order and succeeds on the first that answers.
func (p *KafkaPublisher) Ping(ctx context.Context) error {
	if len(p.brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}
	var lastErr error
	for _, broker := range p.brokers {
		conn, err := kafka.DialContext(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		return conn.Close()
	}
	return errors.Wrap(lastErr, "dial kafka")
}

// Close flushes pending messages.
func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

// Encode renders e as the JSON event payload.
func Encode(e checkout.Event) []byte {
	var enc jx.Encoder
	enc.Obj(func(enc *jx.Encoder) {
		enc.Field("id", func(enc *jx.Encoder) { enc.Str(e.ID) })
		enc.Field("type", func(enc *jx.Encoder) { enc.Str(string(e.Type)) })
		enc.Field("session_id", func(enc *jx.Encoder) { enc.Str(e.SessionID) })
		enc.Field("rail", func(enc *jx.Encoder) { enc.Str(e.Rail.String()) })
		if e.OrderID != "" {
			enc.Field("order_id", func(enc *jx.Encoder) { enc.Str(e.OrderID) })
		}
		if e.ChargeID != "" {
			enc.Field("charge_id", func(enc *jx.Encoder) { enc.Str(e.ChargeID) })
		}
		enc.Field("amount", func(enc *jx.Encoder) { enc.Int64(e.AmountMin) })
		enc.Field("currency", func(enc *jx.Encoder) { enc.Str(e.Currency) })
		enc.Field("occurred_at", func(enc *jx.Encoder) { enc.Str(e.OccurredAt.UTC().Format(time.RFC3339Nano)) })
	})
	return enc.Bytes()
}
