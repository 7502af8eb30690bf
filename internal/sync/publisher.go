package syncx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ExchangeName is the topic exchange quiz view events are published to.
const ExchangeName = "mindengage.access.events"

type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload []byte) error
	Close() error
}

type AMQPPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *slog.Logger
	mu      sync.Mutex
}

func NewAMQPPublisher(url string, logger *slog.Logger) (*AMQPPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(ExchangeName, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	logger.Info("RabbitMQ publisher connected", "exchange", ExchangeName)
	return &AMQPPublisher{conn: conn, channel: ch, logger: logger}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.channel.PublishWithContext(ctx, ExchangeName, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         payload,
	})
	if err != nil {
		p.logger.Error("publish failed", "routing_key", routingKey, "error", err)
		return err
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.logger.Warn("error closing channel", "error", err)
		}
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, []byte) error { return nil }
func (NoopPublisher) Close() error                                  { return nil }

// BusNotifier turns view notifications into published events.
type BusNotifier struct {
	pub    Publisher
	siteID string
	now    func() time.Time
}

func NewBusNotifier(pub Publisher, siteID string) *BusNotifier {
	if siteID == "" {
		siteID = "local"
	}
	return &BusNotifier{pub: pub, siteID: siteID, now: time.Now}
}

func (n *BusNotifier) LogView(ctx context.Context, quizID, userID string) error {
	return n.send(ctx, TypeQuizViewed, quizID, userID)
}

func (n *BusNotifier) MarkViewed(ctx context.Context, quizID, userID string) error {
	return n.send(ctx, TypeCompletionViewed, quizID, userID)
}

func (n *BusNotifier) send(ctx context.Context, typ, quizID, userID string) error {
	e, err := newViewEvent(n.siteID, typ, quizID, userID, n.now())
	if err != nil {
		return err
	}
	buf, err := json.Marshal(map[string]any{
		"event_id": e.EventID,
		"site_id":  e.SiteID,
		"type":     e.Type,
		"key":      e.Key,
		"data":     json.RawMessage(e.DataJSON),
	})
	if err != nil {
		return err
	}
	return n.pub.Publish(ctx, typ, buf)
}

// Fanout sends every notification to all sinks and joins their errors.
type Fanout []interface {
	LogView(ctx context.Context, quizID, userID string) error
	MarkViewed(ctx context.Context, quizID, userID string) error
}

func (f Fanout) LogView(ctx context.Context, quizID, userID string) error {
	var errs []error
	for _, s := range f {
		if err := s.LogView(ctx, quizID, userID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) MarkViewed(ctx context.Context, quizID, userID string) error {
	var errs []error
	for _, s := range f {
		if err := s.MarkViewed(ctx, quizID, userID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
