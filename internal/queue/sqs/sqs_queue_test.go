package sqs

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"cadbridge/internal/logger"
	queue "cadbridge/internal/queue/iface"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notification struct {
	CallID string `json:"call_id"`
}

// fakeSQS hands out its pending messages once, then long-polls until cancelled.
type fakeSQS struct {
	mu      sync.Mutex
	pending []types.Message
	deleted []string
	sent    []string
}

func (f *fakeSQS) SendMessage(ctx context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, aws.ToString(in.MessageBody))
	return &sqs.SendMessageOutput{}, nil
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.mu.Lock()
	if len(f.pending) > 0 {
		msgs := f.pending
		f.pending = nil
		f.mu.Unlock()
		return &sqs.ReceiveMessageOutput{Messages: msgs}, nil
	}
	f.mu.Unlock()

	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, aws.ToString(in.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func (f *fakeSQS) deletedHandles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

func rawMessage(id, body string) types.Message {
	return types.Message{MessageId: aws.String(id), ReceiptHandle: aws.String("rh-" + id), Body: aws.String(body)}
}

func TestSQSQueue_ConsumesAndDeletes(t *testing.T) {
	client := &fakeSQS{pending: []types.Message{
		rawMessage("1", `{"call_id":"198513"}`),
		rawMessage("2", `not json`),
		rawMessage("3", `{"call_id":"fail"}`),
	}}

	var mu sync.Mutex
	var seen []string
	processor := queue.MessageProcessorFunc[notification](func(ctx context.Context, n notification) bool {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, n.CallID)
		return n.CallID != "fail"
	})

	q := NewSQSQueue[notification](client, QueueConfig{QueueURL: "http://localhost:4566/000000000000/cad-events", WaitTimeSeconds: 1}, processor, logger.NewNopLogger())
	require.NoError(t, q.StartConsumer(context.Background()))
	assert.Error(t, q.StartConsumer(context.Background()))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	}, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, q.StopConsumer(ctx))
	assert.Error(t, q.StopConsumer(ctx))

	assert.Equal(t, []string{"198513", "fail"}, seen)
	// Undecodable bodies are dropped; rejected ones stay for redelivery.
	assert.ElementsMatch(t, []string{"rh-1", "rh-2"}, client.deletedHandles())
}

func TestSQSQueue_Send(t *testing.T) {
	client := &fakeSQS{}
	q := NewSQSQueue[notification](client, QueueConfig{QueueURL: "q"}, queue.MessageProcessorFunc[notification](func(context.Context, notification) bool { return true }), logger.NewNopLogger())

	require.NoError(t, q.Send(context.Background(), notification{CallID: "42"}))
	require.Len(t, client.sent, 1)

	var decoded notification
	require.NoError(t, json.Unmarshal([]byte(client.sent[0]), &decoded))
	assert.Equal(t, "42", decoded.CallID)
}
