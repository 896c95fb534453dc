package services

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// WakeConsumer listens for out-of-band sync.wake messages (for example
// from a background worker) and triggers a drain attempt. A wake is
// treated identically to a timer tick.
type WakeConsumer struct {
	conn         *amqp.Connection
	channel      *amqp.Channel
	exchangeName string
	url          string
	wake         func()
}

// NewWakeConsumer connects to RabbitMQ and prepares the wake consumer.
// wake is invoked once per received message.
func NewWakeConsumer(url, exchangeName string, wake func()) (*WakeConsumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchangeName, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &WakeConsumer{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		url:          url,
		wake:         wake,
	}, nil
}

// Start declares and binds the wake queue, then consumes in the
// background.
func (c *WakeConsumer) Start() error {
	q, err := c.channel.QueueDeclare(
		"q.sync-agent.wake", // name
		true,                // durable
		false,               // delete when unused
		false,               // exclusive
		false,               // no-wait
		nil,                 // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare wake queue: %w", err)
	}

	err = c.channel.QueueBind(
		q.Name,
		"sync.wake",
		c.exchangeName,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to bind wake queue: %w", err)
	}

	msgs, err := c.channel.Consume(
		q.Name, // queue
		"",     // consumer tag
		false,  // auto-ack
		false,  // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	go c.consumeLoop(msgs)

	log.Info().Str("queue", q.Name).Msg("Wake consumer started")
	return nil
}

func (c *WakeConsumer) consumeLoop(msgs <-chan amqp.Delivery) {
	for d := range msgs {
		log.Info().Str("routing_key", d.RoutingKey).Msg("Received wake signal")
		c.wake()
		d.Ack(false)
	}
}

// Close closes the channel and connection.
func (c *WakeConsumer) Close() {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}
