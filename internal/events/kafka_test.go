package events

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-checkout/internal/checkout"
	"github.com/xenking/kart-checkout/internal/domain/payment"
)

// --- Mock implementations ---

type mockWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, msgs...)
	return nil
}

func (m *mockWriter) Close() error {
	m.closed = true
	return nil
}

// --- Tests ---

func testEvent() checkout.Event {
	return checkout.Event{
		ID:         "3f0c1c1e-6f55-4c55-9d0e-6c8f2b8b1a10",
		Type:       checkout.EventCompleted,
		SessionID:  "sess_1",
		OrderID:    "ord_1",
		ChargeID:   "chrg_1",
		Rail:       payment.RailQR,
		AmountMin:  30697,
		Currency:   "THB",
		OccurredAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &mockWriter{}
	p := &KafkaPublisher{w: w}

	require.NoError(t, p.Publish(context.Background(), testEvent()))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "sess_1", string(msg.Key))
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, "checkout.completed", string(msg.Headers[0].Value))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	p := &KafkaPublisher{w: &mockWriter{err: errors.New("leader not available")}}

	err := p.Publish(context.Background(), testEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write checkout.completed")
}

func TestEncode(t *testing.T) {
	fields := map[string]string{}
	var amount int64
	d := jx.DecodeBytes(Encode(testEvent()))
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key == "amount" {
			v, err := d.Int64()
			amount = v
			return err
		}
		v, err := d.Str()
		fields[key] = v
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, int64(30697), amount)
	assert.Equal(t, "checkout.completed", fields["type"])
	assert.Equal(t, "qr", fields["rail"])
	assert.Equal(t, "ord_1", fields["order_id"])
	assert.Equal(t, "2026-01-02T03:04:05Z", fields["occurred_at"])
}

func TestEncode_OmitsEmptyIDs(t *testing.T) {
	e := testEvent()
	e.OrderID = ""
	e.ChargeID = ""

	out := string(Encode(e))
	assert.NotContains(t, out, "order_id")
	assert.NotContains(t, out, "charge_id")
}

func TestKafkaPublisher_PingWithoutBrokers(t *testing.T) {
	p := &KafkaPublisher{w: &mockWriter{}}
	assert.EqualError(t, p.Ping(context.Background()), "no kafka brokers configured")
}
