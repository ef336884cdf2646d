package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TopicBatches carries batch-job ids for the multi-day creation path.
const TopicBatches = "campaign_batches"

type Handler func(ctx context.Context, payload []byte) error

// Queue interface
type Queue interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(topic string, handler Handler) error
}

// InMemoryQueue runs jobs in-process with retry and backoff. Jobs for a topic
// are dispatched by a single goroutine, which keeps batch creation sequential
// the same way a single AMQP consumer does.
type InMemoryQueue struct {
	mu         sync.Mutex
	topics     map[string]chan []byte
	handlers   map[string]Handler
	maxRetries int
	log        *zap.Logger
}

func NewInMemoryQueue(log *zap.Logger) *InMemoryQueue {
	return &InMemoryQueue{
		topics:     make(map[string]chan []byte),
		handlers:   make(map[string]Handler),
		maxRetries: 3,
		log:        log,
	}
}

func (q *InMemoryQueue) Publish(ctx context.Context, topic string, payload []byte) error {
	q.mu.Lock()
	ch, ok := q.topics[topic]
	q.mu.Unlock()
	if !ok {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	select {
	case ch <- payload:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *InMemoryQueue) Subscribe(topic string, handler Handler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.topics[topic]; exists {
		return fmt.Errorf("topic %s already has a subscriber", topic)
	}

	ch := make(chan []byte, 1024)
	q.topics[topic] = ch
	q.handlers[topic] = handler

	go q.dispatch(topic, ch, handler)
	return nil
}

func (q *InMemoryQueue) dispatch(topic string, ch <-chan []byte, handler Handler) {
	for payload := range ch {
		q.processJob(topic, payload, handler)
	}
}

func (q *InMemoryQueue) processJob(topic string, payload []byte, handler Handler) {
	for attempt := 1; ; attempt++ {
		err := handler(context.Background(), payload)
		if err == nil {
			return
		}

		q.log.Warn("job failed",
			zap.String("topic", topic),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", q.maxRetries),
			zap.Error(err))

		if attempt > q.maxRetries {
			q.log.Error("job permanently failed",
				zap.String("topic", topic),
				zap.Int("attempts", attempt))
			return
		}

		// Exponential-ish backoff before retry
		time.Sleep(time.Duration(attempt*500) * time.Millisecond)
	}
}

var _ Queue = (*InMemoryQueue)(nil)
