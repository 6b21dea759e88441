package infra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/arcscan/bridge-indexer/pkg/common/logger"
)

var (
	// ErrPermanent marks a message that must not be redelivered.
	ErrPermanent = errors.New("permanent messaging error")

	maxMsgSize int32 = 64 * 1024
)

type MessageQueue interface {
	Enqueue(topic string, message []byte, options *EnqueueOptions) error
	// Dequeue handlers must not block; a handler that outlives the ack
	// window triggers redelivery.
	Dequeue(handler func(subject string, message []byte) error) error
	Close()
}

type EnqueueOptions struct {
	// IdempotencyKey deduplicates publishes within the stream's
	// duplicate-tracking window.
	IdempotencyKey string
}

type msgQueue struct {
	consumerName    string
	js              jetstream.JetStream
	consumer        jetstream.Consumer
	consumerContext jetstream.ConsumeContext
}

// MessageQueueManager owns one JetStream work-queue stream and hands out
// durable consumers bound to it.
type MessageQueueManager struct {
	queueName string
	js        jetstream.JetStream
}

func NewMessageQueueManager(queueName string, subjectWildcards []string, nc *nats.Conn) (*MessageQueueManager, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        queueName,
		Description: "Stream for " + queueName,
		Subjects:    subjectWildcards,
		MaxMsgSize:  maxMsgSize,
		Storage:     jetstream.FileStorage,
		Retention:   jetstream.WorkQueuePolicy,
		MaxAge:      2 * 24 * time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("create stream %q: %w", queueName, err)
	}
	logger.Info("JetStream stream ready", "stream", queueName, "subjects", subjectWildcards)

	return &MessageQueueManager{queueName: queueName, js: js}, nil
}

// NewPublisher returns a queue handle that can only enqueue. The indexer
// publishes transfers without ever consuming them.
func (m *MessageQueueManager) NewPublisher() MessageQueue {
	return &msgQueue{js: m.js}
}

// NewMessageQueue binds a durable consumer to the stream. filterSubject
// selects which of the stream's subjects this consumer drains; empty means
// all of them.
func (m *MessageQueueManager) NewMessageQueue(consumerName, filterSubject string) (MessageQueue, error) {
	cfg := jetstream.ConsumerConfig{
		Name:          consumerName,
		Durable:       consumerName,
		MaxAckPending: 4,
		MaxDeliver:    3,
	}
	if filterSubject != "" {
		cfg.FilterSubjects = []string{filterSubject}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	consumer, err := m.js.CreateOrUpdateConsumer(ctx, m.queueName, cfg)
	if err != nil {
		return nil, fmt.Errorf("create consumer %q: %w", consumerName, err)
	}

	return &msgQueue{consumerName: consumerName, js: m.js, consumer: consumer}, nil
}

func (mq *msgQueue) Enqueue(topic string, message []byte, options *EnqueueOptions) error {
	header := nats.Header{}
	if options != nil && options.IdempotencyKey != "" {
		header.Add("Nats-Msg-Id", options.IdempotencyKey)
	}

	_, err := mq.js.PublishMsg(context.Background(), &nats.Msg{
		Subject: topic,
		Data:    message,
		Header:  header,
	})
	if err != nil {
		return fmt.Errorf("enqueue message: %w", err)
	}
	return nil
}

func (mq *msgQueue) Dequeue(handler func(subject string, message []byte) error) error {
	if mq.consumer == nil {
		return errors.New("queue is publish-only")
	}
	c, err := mq.consumer.Consume(func(msg jetstream.Msg) {
		if err := handler(msg.Subject(), msg.Data()); err != nil {
			if errors.Is(err, ErrPermanent) {
				msg.Term()
				return
			}
			logger.Error("Error handling message", "err", err, "subject", msg.Subject())
			msg.Nak()
			return
		}
		if err := msg.Ack(); err != nil {
			logger.Error("Error acknowledging message", "err", err)
		}
	})
	mq.consumerContext = c
	return err
}

func (mq *msgQueue) Close() {
	if mq.consumerContext != nil {
		mq.consumerContext.Stop()
	}
}
