package model

import "time"

// CalendarBlock kinds.
const (
	BlockHold      = "hold"
	BlockConfirmed = "confirmed"
	BlockManual    = "manual"
)

// CalendarBlock is the durable record preventing double-booking of a date
// range. It backs either a payment hold, a confirmed booking, or a manual
// host block (BookingID empty).
type CalendarBlock struct {
	ID        string     `json:"id,omitempty" bson:"_id,omitempty"`
	ListingID string     `json:"listing_id" bson:"listing_id" validate:"required,mongodb"`
	BookingID string     `json:"booking_id,omitempty" bson:"booking_id,omitempty"`
	CheckIn   time.Time  `json:"check_in" bson:"check_in" validate:"required"`
	CheckOut  time.Time  `json:"check_out" bson:"check_out" validate:"required,gtfield=CheckIn"`
	Kind      string     `json:"kind" bson:"kind" validate:"required,oneof=hold confirmed manual"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" bson:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
}

// Blocking reports whether the block still excludes other reservations at
// the given instant. Expired holds no longer block; the reconciler garbage
// collects them.
func (cb *CalendarBlock) Blocking(now time.Time) bool {
	if cb.Kind == BlockHold && cb.ExpiresAt != nil && cb.ExpiresAt.Before(now) {
		return false
	}
	return true
}

// ListingLock is an advisory lock serializing the check-then-reserve critical
// section for a single listing. The _id is derived from the listing id, so a
// concurrent reservation attempt hits a duplicate-key error.
type ListingLock struct {
	ID        string    `bson:"_id" json:"id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
