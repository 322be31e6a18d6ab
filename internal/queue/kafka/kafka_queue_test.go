package kafka

import (
	"context"
	"sync"
	"testing"
	"time"

	"cadbridge/internal/logger"
	queue "cadbridge/internal/queue/iface"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notification struct {
	CallID string `json:"call_id"`
}

type fakeReader struct {
	mu        sync.Mutex
	pending   []kafka.Message
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.pending) > 0 {
		msg := r.pending[0]
		r.pending = r.pending[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()

	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func (r *fakeReader) committedOffsets() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

type fakeWriter struct {
	written []kafka.Message
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.written = append(w.written, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaQueue_ProcessesAndCommits(t *testing.T) {
	reader := &fakeReader{pending: []kafka.Message{
		{Offset: 1, Value: []byte(`{"call_id":"198513"}`)},
		{Offset: 2, Value: []byte(`garbage`)},
		{Offset: 3, Value: []byte(`{"call_id":"flaky"}`)},
	}}

	var mu sync.Mutex
	calls := map[string]int{}
	processor := queue.MessageProcessorFunc[notification](func(ctx context.Context, n notification) bool {
		mu.Lock()
		defer mu.Unlock()
		calls[n.CallID]++
		return n.CallID != "flaky" || calls[n.CallID] >= 2
	})

	q := NewKafkaQueue[notification](reader, nil, QueueConfig{Topic: "cad-events", MaxAttempts: 3, RetryDelay: time.Millisecond}, processor, logger.NewNopLogger())
	require.NoError(t, q.StartConsumer(context.Background()))

	assert.Eventually(t, func() bool {
		return len(reader.committedOffsets()) == 3
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, q.StopConsumer(context.Background()))
	assert.True(t, reader.closed)

	assert.Equal(t, []int64{1, 2, 3}, reader.committedOffsets())
	assert.Equal(t, 1, calls["198513"])
	assert.Equal(t, 2, calls["flaky"])
}

func TestKafkaQueue_GivesUpAfterMaxAttempts(t *testing.T) {
	reader := &fakeReader{pending: []kafka.Message{{Offset: 7, Value: []byte(`{"call_id":"1"}`)}}}

	var mu sync.Mutex
	attempts := 0
	processor := queue.MessageProcessorFunc[notification](func(ctx context.Context, n notification) bool {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		return false
	})

	q := NewKafkaQueue[notification](reader, nil, QueueConfig{MaxAttempts: 2, RetryDelay: time.Millisecond}, processor, logger.NewNopLogger())
	require.NoError(t, q.StartConsumer(context.Background()))

	assert.Eventually(t, func() bool {
		return len(reader.committedOffsets()) == 1
	}, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, q.StopConsumer(context.Background()))

	assert.Equal(t, 2, attempts)
}

func TestKafkaQueue_Send(t *testing.T) {
	writer := &fakeWriter{}
	q := NewKafkaQueue[notification](&fakeReader{}, writer, QueueConfig{}, queue.MessageProcessorFunc[notification](func(context.Context, notification) bool { return true }), logger.NewNopLogger())

	require.NoError(t, q.Send(context.Background(), notification{CallID: "9"}))
	require.Len(t, writer.written, 1)
	assert.JSONEq(t, `{"call_id":"9"}`, string(writer.written[0].Value))

	noWriter := NewKafkaQueue[notification](&fakeReader{}, nil, QueueConfig{}, nil, logger.NewNopLogger())
	assert.Error(t, noWriter.Send(context.Background(), notification{}))
}
