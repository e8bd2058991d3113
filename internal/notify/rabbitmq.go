package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// RabbitMQConnection holds the RabbitMQ connection and channel
type RabbitMQConnection struct {
	Connection *amqp.Connection
	Channel    *amqp.Channel
}

// ConnectRabbitMQ establishes a connection to RabbitMQ
func ConnectRabbitMQ(url string, log *zap.Logger) (*RabbitMQConnection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	log.Info("connected to RabbitMQ")

	return &RabbitMQConnection{
		Connection: conn,
		Channel:    ch,
	}, nil
}

func (r *RabbitMQConnection) IsHealthy() bool {
	return r != nil && r.Connection != nil && !r.Connection.IsClosed()
}

// Close closes the RabbitMQ connection and channel
func (r *RabbitMQConnection) Close() error {
	if r.Channel != nil {
		_ = r.Channel.Close()
	}
	if r.Connection != nil {
		return r.Connection.Close()
	}
	return nil
}

// reopenChannel replaces a channel the broker closed. The connection itself
// must still be up.
func (r *RabbitMQConnection) reopenChannel() (channel, error) {
	if !r.IsHealthy() {
		return nil, fmt.Errorf("failed to reopen channel: %w", amqp.ErrClosed)
	}
	ch, err := r.Connection.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to reopen channel: %w", err)
	}
	r.Channel = ch
	return ch, nil
}

// channel is the part of *amqp.Channel the publisher uses
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
}

// Publisher sends receipts and device-sync commands as persistent JSON messages.
// Any channel-level exception closes an amqp channel for good, so a closed
// channel is replaced through open and the message is sent once more.
type Publisher struct {
	mu       sync.Mutex
	ch       channel
	open     func() (channel, error)
	log      *zap.Logger
	declared map[string]bool
}

var (
	_ Notifier   = (*Publisher)(nil)
	_ DeviceSync = (*Publisher)(nil)
)

func NewPublisher(conn *RabbitMQConnection, log *zap.Logger) *Publisher {
	return newPublisher(conn.Channel, conn.reopenChannel, log)
}

func newPublisher(ch channel, open func() (channel, error), log *zap.Logger) *Publisher {
	return &Publisher{
		ch:       ch,
		open:     open,
		log:      log.Named("notify.rabbitmq"),
		declared: map[string]bool{},
	}
}

func (p *Publisher) SendReceipt(ctx context.Context, event ReceiptEvent) error {
	return p.publish(ctx, ReceiptQueue, event)
}

func (p *Publisher) Sync(ctx context.Context, event DeviceSyncEvent) error {
	return p.publish(ctx, DeviceSyncQueue, event)
}

func (p *Publisher) publish(ctx context.Context, queue string, event interface{}) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", queue, err)
	}

	// amqp channels are not safe for concurrent publishing
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch.IsClosed() {
		if err := p.reopen(); err != nil {
			return err
		}
	}

	err = p.send(ctx, queue, body)
	if err != nil && (errors.Is(err, amqp.ErrClosed) || p.ch.IsClosed()) {
		p.log.Warn("rabbitmq channel closed, reopening", zap.String("queue", queue), zap.Error(err))
		if reopenErr := p.reopen(); reopenErr != nil {
			p.log.Error("rabbitmq channel reopen failed", zap.Error(reopenErr))
			return err
		}
		err = p.send(ctx, queue, body)
	}
	if err != nil {
		return err
	}

	p.log.Debug("event published", zap.String("queue", queue))
	return nil
}

func (p *Publisher) reopen() error {
	if p.open == nil {
		return fmt.Errorf("failed to reopen channel: %w", amqp.ErrClosed)
	}
	ch, err := p.open()
	if err != nil {
		return err
	}
	p.ch = ch
	p.declared = map[string]bool{}
	return nil
}

func (p *Publisher) send(ctx context.Context, queue string, body []byte) error {
	if !p.declared[queue] {
		_, err := p.ch.QueueDeclare(
			queue,
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,
		)
		if err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", queue, err)
		}
		p.declared[queue] = true
	}

	err := p.ch.PublishWithContext(
		ctx,
		"",    // exchange
		queue, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", queue, err)
	}
	return nil
}
