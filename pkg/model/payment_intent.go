package model

import "time"

// PaymentIntent tracks the engine's view of an external payment intent and
// doubles as the correlation table from intent id back to booking id, so a
// webhook never has to trust a caller-supplied booking reference.
type PaymentIntent struct {
	ID             string    `json:"id" bson:"_id" validate:"required"`
	BookingID      string    `json:"booking_id" bson:"booking_id" validate:"required,mongodb"`
	AmountCents    int64     `json:"amount_cents" bson:"amount_cents" validate:"required,min=1"`
	Currency       string    `json:"currency" bson:"currency" validate:"required,len=3"`
	AppFeeCents    int64     `json:"app_fee_cents" bson:"app_fee_cents" validate:"min=0"`
	Destination    string    `json:"destination,omitempty" bson:"destination,omitempty"`
	IdempotencyKey string    `json:"idempotency_key" bson:"idempotency_key" validate:"required"`
	Status         string    `json:"status" bson:"status" validate:"required"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" bson:"updated_at"`
}
