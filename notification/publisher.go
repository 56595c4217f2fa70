package notification

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/streadway/amqp"

	"participium/models"
)

// Publisher delivers notification requests to a RabbitMQ exchange. The
// lifecycle treats it as fire-and-forget; delivery to end users is the
// consuming service's concern.
type Publisher struct {
	amqpURL    string
	exchange   string
	routingKey string

	mutex   sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewPublisher connects to RabbitMQ and declares the notification exchange.
func NewPublisher(amqpURL, exchange, routingKey string) (*Publisher, error) {
	p := &Publisher{
		amqpURL:    amqpURL,
		exchange:   exchange,
		routingKey: routingKey,
	}
	if err := p.connect(); err != nil {
		return nil, err
	}
	log.Infof("Notification publisher connected, exchange %s", exchange)
	return p, nil
}

func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.amqpURL)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := channel.ExchangeDeclare(
		p.exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("failed to declare exchange %s: %w", p.exchange, err)
	}

	p.conn = conn
	p.channel = channel
	return nil
}

// Enqueue publishes one notification message. A closed connection is redialed
// once before giving up.
func (p *Publisher) Enqueue(userID int64, content string, reportID *int64) error {
	notification := &models.Notification{
		UserID:    userID,
		Content:   content,
		ReportID:  reportID,
		CreatedAt: time.Now().UTC(),
	}

	body, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.conn == nil || p.conn.IsClosed() {
		log.Warn("RabbitMQ connection lost, reconnecting")
		if err := p.connect(); err != nil {
			return err
		}
	}

	return p.channel.Publish(
		p.exchange,
		p.routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Timestamp:   time.Now(),
			Body:        body,
		},
	)
}

// IsConnected reports whether the underlying connection is open.
func (p *Publisher) IsConnected() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.conn != nil && !p.conn.IsClosed()
}

// Close shuts down the channel and connection.
func (p *Publisher) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			log.Errorf("Error closing RabbitMQ channel: %v", err)
		}
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// LogNotifier is the fallback when no broker is configured: notifications
// are logged and dropped.
type LogNotifier struct{}

// Enqueue logs the notification instead of publishing it.
func (LogNotifier) Enqueue(userID int64, content string, reportID *int64) error {
	log.Infof("Notification (no broker) for user %d: %s", userID, content)
	return nil
}
