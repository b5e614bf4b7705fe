package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/farah699/Users-Permissions-Backend/internal/db/models"
	"github.com/farah699/Users-Permissions-Backend/internal/logger/adapter/stdlogger"
)

const amqpPublishTimeout = 5 * time.Second

// Publisher is the part of *amqp.Channel the sink needs.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPSink publishes records as persistent JSON messages to a queue on the default exchange.
type AMQPSink struct {
	publisher Publisher
	queue     string
	conn      *amqp.Connection
	channel   *amqp.Channel
}

// NewAMQPSink returns a sink publishing through p.
func NewAMQPSink(p Publisher, queue string) *AMQPSink {
	return &AMQPSink{publisher: p, queue: queue}
}

// DialAMQPSink connects to the broker and declares the durable queue.
func DialAMQPSink(url, queue string) (*AMQPSink, error) {
	amqp.SetLogger(stdlogger.New("amqp"))

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to amqp broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open amqp channel: %w", err)
	}

	if _, err = ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare audit queue %s: %w", queue, err)
	}

	s := NewAMQPSink(ch, queue)
	s.conn = conn
	s.channel = ch

	return s, nil
}

// Name implements Sink.
func (*AMQPSink) Name() string { return "amqp" }

// Write implements Sink.
func (s *AMQPSink) Write(ctx context.Context, rec *models.AuditRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode audit record: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, amqpPublishTimeout)
	defer cancel()

	return s.publisher.PublishWithContext(ctx, "", s.queue, false, false, amqp.Publishing{ //nolint:wrapcheck
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    rec.ID,
		Timestamp:    rec.CreatedAt,
		Type:         string(rec.Action),
		Body:         body,
	})
}

// Close closes the channel and connection opened by DialAMQPSink.
func (s *AMQPSink) Close() error {
	if s.channel != nil {
		_ = s.channel.Close()
	}

	if s.conn != nil {
		return s.conn.Close() //nolint:wrapcheck
	}

	return nil
}
