package queue

import (
	"context"
	"fmt"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// AMQPQueue is the RabbitMQ-backed queue used when server and batch worker run
// as separate processes. Queues are durable; delivery uses manual ack with a
// bounded requeue count.
type AMQPQueue struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	maxRetries int
	log        *zap.Logger
}

func NewAMQPQueue(url string, log *zap.Logger) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	return &AMQPQueue{conn: conn, ch: ch, maxRetries: 3, log: log}, nil
}

func (q *AMQPQueue) Close() error {
	if q.ch != nil {
		q.ch.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}

func (q *AMQPQueue) declare(topic string) (amqp.Queue, error) {
	return q.ch.QueueDeclare(
		topic,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
}

func (q *AMQPQueue) Publish(ctx context.Context, topic string, payload []byte) error {
	if _, err := q.declare(topic); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", topic, err)
	}

	return q.ch.Publish(
		"",    // default exchange
		topic, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         payload,
		},
	)
}

// Subscribe consumes the topic with a single consumer, so deliveries stay
// sequential. Failed jobs are requeued with an x-retry-count header until the
// retry budget runs out.
func (q *AMQPQueue) Subscribe(topic string, handler Handler) error {
	if _, err := q.declare(topic); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", topic, err)
	}

	msgs, err := q.ch.Consume(
		topic,
		"",    // consumer tag
		false, // autoAck off for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for d := range msgs {
			if err := handler(context.Background(), d.Body); err != nil {
				retryCount := 0
				if v, ok := d.Headers["x-retry-count"].(int32); ok {
					retryCount = int(v)
				}

				q.log.Warn("job failed",
					zap.String("topic", topic),
					zap.Int("retry_count", retryCount),
					zap.Error(err))

				if retryCount < q.maxRetries {
					d.Ack(false)
					q.republish(topic, d.Body, retryCount+1)
					continue
				}
				q.log.Error("job permanently failed", zap.String("topic", topic))
			}
			d.Ack(false)
		}
	}()

	return nil
}

func (q *AMQPQueue) republish(topic string, body []byte, retryCount int) {
	err := q.ch.Publish("", topic, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Headers:      amqp.Table{"x-retry-count": int32(retryCount)},
		Body:         body,
	})
	if err != nil {
		q.log.Error("failed to requeue job", zap.String("topic", topic), zap.Error(err))
	}
}

var _ Queue = (*AMQPQueue)(nil)
