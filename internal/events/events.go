package events

//go:generate go run go.uber.org/mock/mockgen -source=./events.go -destination=./mocks/events_mock.go -package=mocks

import (
	"context"
	"estate/infras/kafka"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	TopicBookingCreated       = "booking.created"
	TopicBookingCanceled      = "booking.canceled"
	TopicBookingStatusChanged = "booking.status_changed"
	TopicPaymentCompleted     = "payment.completed"
	TopicPaymentFailed        = "payment.failed"
)

// BookingEvent is published when a booking changes state.
type BookingEvent struct {
	BookingID  string    `json:"booking_id"`
	PropertyID string    `json:"property_id"`
	UserID     string    `json:"user_id"`
	VisitDate  string    `json:"visit_date"`
	Status     string    `json:"status"`
	Total      string    `json:"total"`
	OccurredAt time.Time `json:"occurred_at"`
}

// PaymentEvent is published when a payment reaches a terminal state.
type PaymentEvent struct {
	PaymentID     string    `json:"payment_id"`
	BookingID     string    `json:"booking_id"`
	Provider      string    `json:"provider"`
	TransactionID string    `json:"transaction_id"`
	Status        string    `json:"status"`
	Amount        string    `json:"amount"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Publisher fans domain events out to the message broker. Publishing is
// best effort: a broker outage must never fail the request that produced
// the event.
type Publisher interface {
	PublishBooking(ctx context.Context, topic string, event BookingEvent)
	PublishPayment(ctx context.Context, topic string, event PaymentEvent)
}

type publisherImpl struct {
	client kafka.Client
}

func NewPublisher(client kafka.Client) Publisher {
	return &publisherImpl{client: client}
}

func (p *publisherImpl) PublishBooking(ctx context.Context, topic string, event BookingEvent) {
	err := p.client.SendMessages(ctx, topic, kafka.Message{
		Key:   event.BookingID,
		Value: event,
	})
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Str("bookingID", event.BookingID).Msg("[PublishBooking] Failed to publish event")
	}
}

func (p *publisherImpl) PublishPayment(ctx context.Context, topic string, event PaymentEvent) {
	err := p.client.SendMessages(ctx, topic, kafka.Message{
		Key:   event.PaymentID,
		Value: event,
	})
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Str("paymentID", event.PaymentID).Msg("[PublishPayment] Failed to publish event")
	}
}
