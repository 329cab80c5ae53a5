package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/ports"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	declared   []string
	kinds      []string
	published  []published
	declareErr error
	publishErr error
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, _, _, _, _ bool, _ amqp.Table) error {
	if f.declareErr != nil {
		return f.declareErr
	}
	f.declared = append(f.declared, name)
	f.kinds = append(f.kinds, kind)
	return nil
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func sampleNotification() ports.Notification {
	return ports.Notification{
		Event:       "purchase_order.status_changed",
		Level:       ports.NotificationSuccess,
		OrderID:     "po-1",
		OrderNumber: "PO-20240301-ABC123",
		Status:      "approved",
		ActorID:     "u-mgr",
		Message:     "Purchase order PO-20240301-ABC123 moved from pending_approval to approved",
		OccurredAt:  time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestNewPublisher_DeclaresTopicExchange(t *testing.T) {
	ch := &fakeChannel{}

	_, err := NewPublisher(ch, "")

	require.NoError(t, err)
	assert.Equal(t, []string{DefaultExchange}, ch.declared)
	assert.Equal(t, []string{amqp.ExchangeTopic}, ch.kinds)

	_, err = NewPublisher(&fakeChannel{declareErr: errors.New("access refused")}, "x")
	assert.ErrorContains(t, err, "access refused")
}

func TestPublisher_PublishesPersistentJSON(t *testing.T) {
	ch := &fakeChannel{}
	pub, err := NewPublisher(ch, "purchasing.test")
	require.NoError(t, err)

	require.NoError(t, pub.Notify(context.Background(), sampleNotification()))

	require.Len(t, ch.published, 1)
	got := ch.published[0]
	assert.Equal(t, "purchasing.test", got.exchange)
	assert.Equal(t, "purchase_order.status_changed", got.key)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)
	assert.Equal(t, "application/json", got.msg.ContentType)
	assert.Equal(t, "po-1", got.msg.Headers["order_id"])

	var decoded ports.Notification
	require.NoError(t, json.Unmarshal(got.msg.Body, &decoded))
	assert.Equal(t, sampleNotification(), decoded)
}

func TestPublisher_WrapsPublishErrors(t *testing.T) {
	ch := &fakeChannel{}
	pub, err := NewPublisher(ch, "")
	require.NoError(t, err)
	ch.publishErr = amqp.ErrClosed

	err = pub.Notify(context.Background(), sampleNotification())

	assert.ErrorIs(t, err, amqp.ErrClosed)
}

func TestLogger_MapsLevels(t *testing.T) {
	var buf bytes.Buffer
	notifier := NewLogger(slog.New(slog.NewJSONHandler(&buf, nil)))
	n := sampleNotification()
	n.Level = ports.NotificationWarning

	require.NoError(t, notifier.Notify(context.Background(), n))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, "po-1", line["order.id"])
}
