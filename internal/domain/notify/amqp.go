package notify

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/okian/rollcall/pkg/metrics"
)

// RoutingKeyPrefix is prepended to the outcome kind to form the routing key.
const RoutingKeyPrefix = "attendance."

// Channel is the subset of *amqp.Channel the publisher uses.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher sends outcomes as persistent JSON messages to a direct
// exchange, routed by kind (attendance.committed, ...). Only committed
// outcomes are published unless WithKinds says otherwise.
type AMQPPublisher struct {
	conn     *amqp.Connection
	ch       Channel
	exchange string
	kinds    map[Kind]struct{}
}

// AMQPOption configures an AMQPPublisher.
type AMQPOption func(*AMQPPublisher)

// WithKinds sets which outcome kinds are published.
func WithKinds(kinds ...Kind) AMQPOption {
	return func(p *AMQPPublisher) {
		p.kinds = make(map[Kind]struct{}, len(kinds))
		for _, k := range kinds {
			p.kinds[k] = struct{}{}
		}
	}
}

// DialAMQP connects to url and declares a durable direct exchange.
func DialAMQP(url, exchange string, opts ...AMQPOption) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %q: %w", exchange, err)
	}
	p := NewAMQPPublisher(ch, exchange, opts...)
	p.conn = conn
	return p, nil
}

// NewAMQPPublisher wraps an open channel.
func NewAMQPPublisher(ch Channel, exchange string, opts ...AMQPOption) *AMQPPublisher {
	p := &AMQPPublisher{
		ch:       ch,
		exchange: exchange,
		kinds:    map[Kind]struct{}{KindCommitted: {}},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Notify publishes o if its kind is enabled.
func (p *AMQPPublisher) Notify(ctx context.Context, o Outcome) error {
	if _, ok := p.kinds[o.Kind]; !ok {
		return nil
	}
	body, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("encode outcome: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		Timestamp:    o.At,
		DeliveryMode: amqp.Persistent,
		Type:         string(o.Kind),
	}
	if o.Record != nil {
		msg.MessageId = o.Record.ID
	}
	if err := p.ch.PublishWithContext(ctx, p.exchange, RoutingKeyPrefix+string(o.Kind), false, false, msg); err != nil {
		metrics.RecordNotifyError("amqp")
		return fmt.Errorf("publish outcome: %w", err)
	}
	return nil
}

// Close closes the channel and, when dialled here, the connection.
func (p *AMQPPublisher) Close() error {
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
