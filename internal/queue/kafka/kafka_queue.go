package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"cadbridge/internal/logger"
	queue "cadbridge/internal/queue/iface"

	"github.com/segmentio/kafka-go"
)

const (
	kafkaMinBytes = 1
	kafkaMaxBytes = 10_000_000 // 10MB
)

// Reader is the subset of *kafka.Reader the queue uses.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Writer is the subset of *kafka.Writer the queue uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type QueueConfig struct {
	Topic string
	// MaxAttempts bounds processing of one message before it is committed and skipped.
	MaxAttempts int
	RetryDelay  time.Duration
}

func NewReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: kafkaMinBytes,
		MaxBytes: kafkaMaxBytes,
		MaxWait:  500 * time.Millisecond,
	})
}

func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}
}

// KafkaQueue consumes JSON messages from one topic with a single reader loop. Offsets are
// committed only after the processor accepts a message or its attempts run out.
type KafkaQueue[T any] struct {
	reader    Reader
	writer    Writer
	config    QueueConfig
	processor queue.MessageProcessor[T]
	logger    logger.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewKafkaQueue[T any](reader Reader, writer Writer, config QueueConfig, processor queue.MessageProcessor[T], log logger.Logger) *KafkaQueue[T] {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 5 * time.Second
	}
	return &KafkaQueue[T]{
		reader:    reader,
		writer:    writer,
		config:    config,
		processor: processor,
		logger:    log.With(logger.String("component", "kafka_queue"), logger.String("topic", config.Topic)),
	}
}

func (q *KafkaQueue[T]) Send(ctx context.Context, message any) error {
	if q.writer == nil {
		return fmt.Errorf("kafka writer not configured")
	}

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := q.writer.WriteMessages(ctx, kafka.Message{Value: body}); err != nil {
		q.logger.Error("failed to write message", logger.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (q *KafkaQueue[T]) StartConsumer(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return fmt.Errorf("consumer already running")
	}
	q.running = true

	runCtx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel
	q.done = make(chan struct{})

	q.logger.Info("starting kafka consumer")
	go q.loop(runCtx)
	return nil
}

func (q *KafkaQueue[T]) StopConsumer(ctx context.Context) error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return fmt.Errorf("consumer not running")
	}
	q.cancel()
	done := q.done
	q.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	q.mu.Lock()
	q.running = false
	q.mu.Unlock()

	var errs []error
	if err := q.reader.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close reader: %w", err))
	}
	if q.writer != nil {
		if err := q.writer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close writer: %w", err))
		}
	}

	q.logger.Info("kafka consumer stopped")
	return errors.Join(errs...)
}

func (q *KafkaQueue[T]) loop(ctx context.Context) {
	defer close(q.done)

	for {
		msg, err := q.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			q.logger.Error("failed to fetch message", logger.Error(err))
			if !sleep(ctx, q.config.RetryDelay) {
				return
			}
			continue
		}

		if !q.handle(ctx, msg) {
			return
		}

		if err := q.reader.CommitMessages(ctx, msg); err != nil {
			q.logger.Error("failed to commit message",
				logger.Int("partition", msg.Partition),
				logger.Int64("offset", msg.Offset),
				logger.Error(err))
		}
	}
}

// handle runs the processor with bounded retries. It returns false when ctx ended first, in
// which case the message is left uncommitted.
func (q *KafkaQueue[T]) handle(ctx context.Context, msg kafka.Message) bool {
	log := q.logger.With(logger.Int("partition", msg.Partition), logger.Int64("offset", msg.Offset))

	var message T
	if err := json.Unmarshal(msg.Value, &message); err != nil {
		log.Error("failed to unmarshal message, dropping", logger.Error(err))
		return true
	}

	for attempt := 1; attempt <= q.config.MaxAttempts; attempt++ {
		if q.processor.ProcessMessage(ctx, message) {
			log.Info("message processed successfully", logger.Int("attempt", attempt))
			return true
		}
		if attempt == q.config.MaxAttempts {
			break
		}
		log.Warn("message processing failed, will retry", logger.Int("attempt", attempt))
		if !sleep(ctx, q.config.RetryDelay) {
			return false
		}
	}

	log.Error("message processing failed, giving up", logger.Int("attempts", q.config.MaxAttempts))
	return true
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
