package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/brokeclub/internal/common"
	"github.com/bobmcallan/brokeclub/internal/models"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func testEvent() models.QuoteRefreshedEvent {
	return models.QuoteRefreshedEvent{
		ID:      "evt-1",
		BatchID: "batch-1",
		Reason:  models.RefreshOpen,
		Ticker:  "PETR4.SAO",
		Price:   decimal.RequireFromString("38.15"),
		AsOf:    time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC),
		Source:  "ALPHAVANTAGE",
	}
}

func TestKafkaPublisher_WritesKeyedJSON(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{w: w, topic: "quotes.refreshed", logger: common.NewSilentLogger()}

	require.NoError(t, p.PublishQuoteRefreshed(context.Background(), testEvent()))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "PETR4.SAO", string(msg.Key))
	assert.Equal(t, testEvent().AsOf, msg.Time)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "batch-1", decoded["batch_id"])
	assert.Equal(t, "OPEN", decoded["reason"])
	assert.Equal(t, "38.15", decoded["price"], "prices travel as exact decimal strings")

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "quote.refreshed", headers["event"])
	assert.Equal(t, "OPEN", headers["reason"])

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_WrapsWriteErrors(t *testing.T) {
	boom := errors.New("broker down")
	p := &KafkaPublisher{w: &fakeWriter{err: boom}, topic: "quotes.refreshed", logger: common.NewSilentLogger()}

	err := p.PublishQuoteRefreshed(context.Background(), testEvent())
	assert.ErrorIs(t, err, boom)
}

func TestNewPublisher_NoBrokersIsNoop(t *testing.T) {
	p := NewPublisher(common.EventsConfig{}, common.NewSilentLogger())
	_, ok := p.(NoopPublisher)
	assert.True(t, ok)
	assert.NoError(t, p.PublishQuoteRefreshed(context.Background(), testEvent()))
}

func TestNewPublisher_WithBrokers(t *testing.T) {
	p := NewPublisher(common.EventsConfig{KafkaBrokers: []string{"localhost:9092"}, KafkaTopic: "quotes.refreshed"}, common.NewSilentLogger())
	kp, ok := p.(*KafkaPublisher)
	require.True(t, ok)
	assert.Equal(t, "quotes.refreshed", kp.topic)
	assert.NoError(t, kp.Close())
}
