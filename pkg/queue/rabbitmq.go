package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"studyspot/pkg/config"
	"studyspot/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	EventsExchange = "studyspot.events"
	maxPriority    = 10
)

// Handler processes one delivery. Returning an error requeues the message once.
type Handler func(ctx context.Context, routingKey string, body []byte) error

type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *logger.Logger
	mu      sync.Mutex
}

func NewRabbitMQClient(cfg *config.Config, log *logger.Logger) (*Client, error) {
	url := fmt.Sprintf("amqp://%s:%s@%s:%s/",
		cfg.RabbitMQUser,
		cfg.RabbitMQPassword,
		cfg.RabbitMQHost,
		cfg.RabbitMQPort,
	)

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
		EventsExchange, // name
		"topic",        // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	log.Info("Connected to RabbitMQ at %s:%s", cfg.RabbitMQHost, cfg.RabbitMQPort)

	return &Client{
		conn:    conn,
		channel: channel,
		logger:  log,
	}, nil
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// DeclareQueue declares a durable priority queue and binds it to the events
// exchange for every routing key given.
func (c *Client) DeclareQueue(name string, routingKeys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.channel.QueueDeclare(
		name,  // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{"x-max-priority": maxPriority},
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", name, err)
	}

	for _, key := range routingKeys {
		if err := c.channel.QueueBind(name, key, EventsExchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s to %s: %w", name, key, err)
		}
	}
	return nil
}

func ClampPriority(p int) uint8 {
	if p < 0 {
		return 0
	}
	if p > maxPriority {
		return maxPriority
	}
	return uint8(p)
}

// Publish sends payload as a persistent JSON message.
func (c *Client) Publish(ctx context.Context, routingKey string, payload interface{}, priority int) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	err = c.channel.PublishWithContext(
		ctx,
		EventsExchange, // exchange
		routingKey,     // routing key
		false,          // mandatory
		false,          // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			Priority:     ClampPriority(priority),
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		c.logger.Error("[RABBITMQ] Failed to publish routing_key=%s: %v", routingKey, err)
		return fmt.Errorf("failed to publish message: %w", err)
	}

	c.logger.Debug("[RABBITMQ] Published routing_key=%s size=%d", routingKey, len(body))
	return nil
}

// Consume delivers messages from queue to handler until ctx is cancelled.
func (c *Client) Consume(ctx context.Context, queueName string, handler Handler) error {
	c.mu.Lock()
	msgs, err := c.channel.Consume(
		queueName, // queue
		"",        // consumer
		false,     // auto-ack
		false,     // exclusive
		false,     // no-local
		false,     // no-wait
		nil,       // args
	)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("[RABBITMQ] Started consuming from queue: %s", queueName)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					c.logger.Warn("[RABBITMQ] Delivery channel closed for queue %s", queueName)
					return
				}
				c.handle(ctx, queueName, msg, handler)
			}
		}
	}()

	return nil
}

func (c *Client) handle(ctx context.Context, queueName string, msg amqp.Delivery, handler Handler) {
	if !json.Valid(msg.Body) {
		c.logger.Error("[RABBITMQ] Dropping undecodable message on %s: %s", queueName, string(msg.Body))
		msg.Nack(false, false)
		return
	}

	if err := handler(ctx, msg.RoutingKey, msg.Body); err != nil {
		requeue := !msg.Redelivered
		c.logger.Error("[RABBITMQ] Handler failed on %s routing_key=%s requeue=%t: %v", queueName, msg.RoutingKey, requeue, err)
		msg.Nack(false, requeue)
		return
	}

	msg.Ack(false)
}
