package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kakebo/internal/events"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

type fakeReader struct {
	queue     []kafka.Message
	committed []kafka.Message
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.queue) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := r.queue[0]
	r.queue = r.queue[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

func TestPublisherWritesKeyedMessage(t *testing.T) {
	w := &fakeWriter{}
	p := &Publisher{writer: w, topic: "kakebo.ledger"}
	e := events.New(events.KindTransaction, events.ActionCreated, 3, 2026, 1)

	require.NoError(t, p.Publish(context.Background(), e))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "transaction.created", string(w.msgs[0].Key))

	got, err := events.Unmarshal(w.msgs[0].Value)
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)
}

func TestPublisherWrapsWriteError(t *testing.T) {
	p := &Publisher{writer: &fakeWriter{err: errors.New("no brokers")}, topic: "kakebo.ledger"}
	err := p.Publish(context.Background(), events.New(events.KindCategory, events.ActionDeleted, 1, 0, 0))
	assert.ErrorContains(t, err, "write kafka message")
}

func TestSubscriberCommitsHandledAndMalformed(t *testing.T) {
	good, _ := events.New(events.KindTransaction, events.ActionUpdated, 9, 2026, 3).Marshal()
	ctx, cancel := context.WithCancel(context.Background())
	r := &fakeReader{
		queue:  []kafka.Message{{Offset: 1, Value: []byte("garbage")}, {Offset: 2, Value: good}},
		cancel: cancel,
	}
	s := &Subscriber{reader: r, topic: "kakebo.ledger"}

	var handled []events.Event
	err := s.Subscribe(ctx, func(_ context.Context, e events.Event) error {
		handled = append(handled, e)
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, handled, 1)
	assert.Equal(t, int64(9), handled[0].EntityID)
	require.Len(t, r.committed, 2)
	assert.Equal(t, int64(1), r.committed[0].Offset)
	assert.Equal(t, int64(2), r.committed[1].Offset)
}

func TestSubscriberStopsRetryingOnCancel(t *testing.T) {
	body, _ := events.New(events.KindTransaction, events.ActionCreated, 1, 2026, 1).Marshal()
	ctx, cancel := context.WithCancel(context.Background())
	r := &fakeReader{queue: []kafka.Message{{Offset: 7, Value: body}}, cancel: cancel}
	s := &Subscriber{reader: r, topic: "kakebo.ledger"}

	err := s.Subscribe(ctx, func(context.Context, events.Event) error {
		cancel()
		return errors.New("export failed")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, r.committed)
}
