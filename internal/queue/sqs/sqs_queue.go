package sqs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"cadbridge/internal/logger"
	queue "cadbridge/internal/queue/iface"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// API is the subset of the SQS client the queue uses.
type API interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

type sqsMessage struct {
	rawMessage types.Message
}

func (m *sqsMessage) Body() string {
	return aws.ToString(m.rawMessage.Body)
}

func (m *sqsMessage) ReceiptHandle() string {
	return aws.ToString(m.rawMessage.ReceiptHandle)
}

func (m *sqsMessage) MessageID() string {
	return aws.ToString(m.rawMessage.MessageId)
}

// QueueConfig holds configuration for SQS queue
type QueueConfig struct {
	QueueURL          string
	WorkerCount       int
	MaxMessages       int32
	WaitTimeSeconds   int32
	VisibilityTimeout int32
	// ErrorBackoff is the pause after a failed receive.
	ErrorBackoff time.Duration
}

// SQSQueue is a generic SQS queue consumer. Message bodies are JSON decoded into T; a body that
// does not decode is deleted, a message the processor rejects is left for redelivery.
type SQSQueue[T any] struct {
	client    API
	config    QueueConfig
	logger    logger.Logger
	processor queue.MessageProcessor[T]
	stopCh    chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	running   bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewSQSQueue creates a new SQS queue with processor
func NewSQSQueue[T any](
	client API,
	config QueueConfig,
	processor queue.MessageProcessor[T],
	log logger.Logger,
) *SQSQueue[T] {
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}
	if config.MaxMessages <= 0 {
		config.MaxMessages = 1
	}
	if config.WaitTimeSeconds <= 0 {
		config.WaitTimeSeconds = 20
	}
	if config.VisibilityTimeout <= 0 {
		config.VisibilityTimeout = 300
	}
	if config.ErrorBackoff <= 0 {
		config.ErrorBackoff = time.Second
	}

	return &SQSQueue[T]{
		client:    client,
		config:    config,
		logger:    log.With(logger.String("component", "sqs_queue")),
		processor: processor,
	}
}

func (q *SQSQueue[T]) Send(ctx context.Context, message any) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.config.QueueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		q.logger.Error("failed to send message to SQS",
			logger.String("queue_url", q.config.QueueURL),
			logger.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}

	q.logger.Debug("message sent to queue",
		logger.String("queue_url", q.config.QueueURL))

	return nil
}

func (q *SQSQueue[T]) StartConsumer(ctx context.Context) error {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return fmt.Errorf("consumer already running")
	}
	q.running = true
	q.stopCh = make(chan struct{})

	// Workers outlive the startup context.
	q.ctx, q.cancel = context.WithCancel(context.Background())
	q.mu.Unlock()

	q.logger.Info("starting SQS consumer",
		logger.String("queue_url", q.config.QueueURL),
		logger.Int("worker_count", q.config.WorkerCount))

	for i := 0; i < q.config.WorkerCount; i++ {
		q.wg.Add(1)
		go q.worker(q.ctx, i+1)
	}

	return nil
}

func (q *SQSQueue[T]) StopConsumer(ctx context.Context) error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return fmt.Errorf("consumer not running")
	}
	q.mu.Unlock()

	q.logger.Info("stopping SQS consumer",
		logger.String("queue_url", q.config.QueueURL))

	close(q.stopCh)
	if q.cancel != nil {
		q.cancel()
	}

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		q.logger.Warn("SQS consumer stop timed out, workers still finishing")
		return ctx.Err()
	}

	q.mu.Lock()
	q.running = false
	q.mu.Unlock()

	q.logger.Info("SQS consumer stopped")
	return nil
}

func (q *SQSQueue[T]) worker(ctx context.Context, workerID int) {
	defer q.wg.Done()

	q.logger.Info("worker started",
		logger.Int("worker_id", workerID))

	for {
		select {
		case <-q.stopCh:
			q.logger.Info("worker stopping", logger.Int("worker_id", workerID))
			return
		default:
			q.processMessages(ctx, workerID)
		}
	}
}

func (q *SQSQueue[T]) processMessages(ctx context.Context, workerID int) {
	// Longer than WaitTimeSeconds so long polling can complete.
	receiveTimeout := time.Duration(q.config.WaitTimeSeconds+5) * time.Second
	receiveCtx, cancel := context.WithTimeout(ctx, receiveTimeout)
	defer cancel()

	result, err := q.client.ReceiveMessage(receiveCtx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.config.QueueURL),
		MaxNumberOfMessages: q.config.MaxMessages,
		WaitTimeSeconds:     q.config.WaitTimeSeconds,
		VisibilityTimeout:   q.config.VisibilityTimeout,
	})

	if err != nil {
		select {
		case <-q.stopCh:
			return
		default:
		}
		q.logger.Error("failed to receive messages",
			logger.Int("worker_id", workerID),
			logger.Error(err))

		select {
		case <-q.stopCh:
		case <-time.After(q.config.ErrorBackoff):
		}
		return
	}

	for _, msg := range result.Messages {
		select {
		case <-q.stopCh:
			return
		default:
			// Processing is not cut short by shutdown; StopConsumer waits for it.
			q.processMessage(context.Background(), &sqsMessage{rawMessage: msg}, workerID)
		}
	}
}

func (q *SQSQueue[T]) processMessage(ctx context.Context, msg queue.Message, workerID int) {
	messageID := msg.MessageID()

	var message T
	if err := json.Unmarshal([]byte(msg.Body()), &message); err != nil {
		q.logger.Error("failed to unmarshal message, dropping",
			logger.Int("worker_id", workerID),
			logger.String("message_id", messageID),
			logger.Error(err))
		q.deleteMessage(ctx, msg)
		return
	}

	q.logger.Debug("processing message",
		logger.Int("worker_id", workerID),
		logger.String("message_id", messageID))

	if q.processor.ProcessMessage(ctx, message) {
		q.deleteMessage(ctx, msg)
		q.logger.Info("message processed successfully",
			logger.Int("worker_id", workerID),
			logger.String("message_id", messageID))
		return
	}

	q.logger.Warn("message processing failed, will retry",
		logger.Int("worker_id", workerID),
		logger.String("message_id", messageID))
}

func (q *SQSQueue[T]) deleteMessage(ctx context.Context, msg queue.Message) {
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.config.QueueURL),
		ReceiptHandle: aws.String(msg.ReceiptHandle()),
	})
	if err != nil {
		q.logger.Error("failed to delete message", logger.Error(err))
	}
}
