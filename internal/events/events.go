// Package events publishes reservation lifecycle messages to RabbitMQ so
// downstream consumers (notifications, analytics) can react without sitting
// in the request path.
package events

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/example/tablebook/internal/booking"
)

type EventType string

const (
	EventReservationCreated   EventType = "reservation.created"
	EventReservationCancelled EventType = "reservation.cancelled"
)

// Envelope is the wire format. Payload carries the reservation as the API
// would render it.
type Envelope struct {
	Type       EventType       `json:"type"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

// Publisher sends reservation events to a durable queue. Publish failures
// are logged and swallowed; the reservation is already committed and the
// caller must not see an error for a side channel.
type Publisher struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
	log   zerolog.Logger
}

var _ booking.EventSink = (*Publisher)(nil)

func Connect(url, queue string, log zerolog.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	_, err = ch.QueueDeclare(
		queue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &Publisher{conn: conn, ch: ch, queue: queue, log: log}, nil
}

func (p *Publisher) Close() error {
	if err := p.ch.Close(); err != nil {
		return err
	}
	return p.conn.Close()
}

func (p *Publisher) publish(ctx context.Context, typ EventType, r *booking.Reservation) {
	payload, err := json.Marshal(r)
	if err != nil {
		p.log.Error().Err(err).Str("event", string(typ)).Msg("marshal event payload")
		return
	}
	body, err := json.Marshal(Envelope{
		Type:       typ,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	})
	if err != nil {
		p.log.Error().Err(err).Str("event", string(typ)).Msg("marshal event envelope")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		p.log.Error().Err(err).
			Str("event", string(typ)).
			Str("reservation_id", r.ID).
			Msg("publish event")
		return
	}
	p.log.Debug().
		Str("event", string(typ)).
		Str("reservation_id", r.ID).
		Msg("event published")
}

func (p *Publisher) ReservationCreated(ctx context.Context, r *booking.Reservation) {
	p.publish(ctx, EventReservationCreated, r)
}

func (p *Publisher) ReservationCancelled(ctx context.Context, r *booking.Reservation) {
	p.publish(ctx, EventReservationCancelled, r)
}
