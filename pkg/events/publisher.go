package events

import (
	"context"
	"staybook/pkg/kafka"
	"staybook/pkg/logger"
	"staybook/pkg/model"
	"time"
)

// Domain event types emitted by the booking engine.
const (
	TypeBookingConfirmed = "booking.confirmed"
	TypeBookingCancelled = "booking.cancelled"
	TypeBookingCompleted = "booking.completed"
)

const source = "staybook"

// BookingEvent is the payload published for downstream collaborators
// (notification senders, analytics). Delivery is at-least-once; consumers
// are expected to deduplicate on the event-id header.
type BookingEvent struct {
	Type       string    `json:"type"`
	BookingID  string    `json:"booking_id"`
	ListingID  string    `json:"listing_id"`
	GuestID    string    `json:"guest_id"`
	HostID     string    `json:"host_id,omitempty"`
	Status     string    `json:"status"`
	CheckIn    time.Time `json:"check_in"`
	CheckOut   time.Time `json:"check_out"`
	TotalCents int64     `json:"total_cents"`
	Currency   string    `json:"currency"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Producer is the slice of the kafka producer the publisher needs.
type Producer interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// Publisher emits booking domain events. Publishing is fire-and-forget:
// failures are logged and never fail the state transition that triggered
// them.
type Publisher struct {
	producer Producer
	log      *logger.Logger
}

func NewPublisher(producer Producer, log *logger.Logger) *Publisher {
	return &Publisher{
		producer: producer,
		log:      log,
	}
}

func (p *Publisher) BookingConfirmed(ctx context.Context, booking *model.Booking) {
	p.publish(ctx, TypeBookingConfirmed, booking, "")
}

func (p *Publisher) BookingCancelled(ctx context.Context, booking *model.Booking, reason string) {
	p.publish(ctx, TypeBookingCancelled, booking, reason)
}

func (p *Publisher) BookingCompleted(ctx context.Context, booking *model.Booking) {
	p.publish(ctx, TypeBookingCompleted, booking, "")
}

func (p *Publisher) publish(ctx context.Context, eventType string, booking *model.Booking, reason string) {
	if p.producer == nil {
		return
	}

	event := BookingEvent{
		Type:       eventType,
		BookingID:  booking.ID,
		ListingID:  booking.ListingID,
		GuestID:    booking.GuestID,
		HostID:     booking.HostID,
		Status:     booking.Status,
		CheckIn:    booking.CheckIn,
		CheckOut:   booking.CheckOut,
		TotalCents: booking.Pricing.TotalCents,
		Currency:   booking.Pricing.Currency,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}

	msg := kafka.NewMessage().
		WithKey(booking.ID).
		WithValue(event).
		WithEventType(eventType).
		WithSource(source).
		Build()

	if err := p.producer.Publish(ctx, msg); err != nil {
		p.log.Error("Failed to publish booking event",
			"event_type", eventType,
			"booking_id", booking.ID,
			"error", err,
		)
		return
	}

	p.log.Debug("Booking event published",
		"event_type", eventType,
		"booking_id", booking.ID,
	)
}
