package queue

import (
	"context"
)

// Message is a raw message as received from a broker.
type Message interface {
	Body() string
	// ReceiptHandle acknowledges the message; empty for brokers that ack by offset.
	ReceiptHandle() string
	MessageID() string
}

// MessageProcessor handles one decoded message. Returning true acknowledges it; false leaves
// it for redelivery.
type MessageProcessor[T any] interface {
	ProcessMessage(ctx context.Context, message T) bool
}

// MessageProcessorFunc adapts a function to MessageProcessor.
type MessageProcessorFunc[T any] func(ctx context.Context, message T) bool

func (f MessageProcessorFunc[T]) ProcessMessage(ctx context.Context, message T) bool {
	return f(ctx, message)
}

// Queue is a broker-backed consumer that can also publish. Messages are JSON.
type Queue interface {
	Send(ctx context.Context, message any) error
	StartConsumer(ctx context.Context) error
	StopConsumer(ctx context.Context) error
}
