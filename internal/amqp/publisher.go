// Package amqp publishes finished reports to a RabbitMQ exchange.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

// channel is the subset of *amqp091.Channel used for publishing.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

type Publisher struct {
	conn       *amqp091.Connection
	ch         channel
	exchange   string
	routingKey string
	timeout    time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// NewPublisher dials url and declares a durable direct exchange with a durable
// queue named after the routing key.
func NewPublisher(url, exchange, routingKey string, logger *slog.Logger) (*Publisher, error) {
	if exchange == "" || routingKey == "" {
		return nil, errors.New("amqp exchange and routing key are required")
	}
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declare(ch, exchange, routingKey); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	p := newPublisher(ch, exchange, routingKey, logger)
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, exchange, routingKey string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		ch:         ch,
		exchange:   exchange,
		routingKey: routingKey,
		timeout:    5 * time.Second,
		logger:     logger,
		now:        time.Now,
	}
}

func declare(ch *amqp091.Channel, exchange, queue string) error {
	if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(queue, queue, exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// Write publishes one report document as a persistent JSON message.
func (p *Publisher) Write(ctx context.Context, body []byte) error {
	msg := p.publishing(body)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.ch.PublishWithContext(ctx, p.exchange, p.routingKey, false, false, msg); err != nil {
		return fmt.Errorf("publish report: %w", err)
	}
	p.logger.InfoContext(ctx, "Published report",
		"message_id", msg.MessageId,
		"exchange", p.exchange,
		"routing_key", p.routingKey,
		"bytes", len(body))
	return nil
}

func (p *Publisher) publishing(body []byte) amqp091.Publishing {
	return amqp091.Publishing{
		ContentType:     "application/json",
		ContentEncoding: "utf-8",
		DeliveryMode:    amqp091.Persistent,
		MessageId:       uuid.NewString(),
		Timestamp:       p.now(),
		Body:            body,
	}
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
