package model

import (
	"time"
)

// Booking statuses. Terminal states are retained forever for audit.
const (
	StatusPendingPayment    = "pending_payment"
	StatusPaymentProcessing = "payment_processing"
	StatusConfirmed         = "confirmed"
	StatusCompleted         = "completed"
	StatusCancelledByGuest  = "cancelled_by_guest"
	StatusCancelledByHost   = "cancelled_by_host"
	StatusCancelledBySystem = "cancelled_by_system"
)

// Payment statuses as last reported by the external processor.
const (
	PaymentPending   = "pending"
	PaymentSucceeded = "succeeded"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
)

// Actor roles accepted on cancellation requests.
const (
	ActorGuest  = "guest"
	ActorHost   = "host"
	ActorSystem = "system"
)

// Pricing is the server-computed, itemized price of a stay. All amounts are
// integer minor-currency units.
type Pricing struct {
	NightlyRateCents int64  `json:"nightly_rate_cents" bson:"nightly_rate_cents" validate:"required,min=1"`
	Nights           int    `json:"nights" bson:"nights" validate:"required,min=1"`
	CleaningFeeCents int64  `json:"cleaning_fee_cents" bson:"cleaning_fee_cents" validate:"min=0"`
	PlatformFeeCents int64  `json:"platform_fee_cents" bson:"platform_fee_cents" validate:"min=0"`
	TaxCents         int64  `json:"tax_cents" bson:"tax_cents" validate:"min=0"`
	TotalCents       int64  `json:"total_cents" bson:"total_cents" validate:"required,min=1"`
	Currency         string `json:"currency" bson:"currency" validate:"required,len=3"`
}

type Booking struct {
	ID        string `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	ListingID string `json:"listing_id" bson:"listing_id" validate:"required,mongodb"`
	GuestID   string `json:"guest_id" bson:"guest_id" validate:"required,mongodb"`
	HostID    string `json:"host_id" bson:"host_id" validate:"omitempty,mongodb"`

	// Half-open date range: a stay occupies [CheckIn, CheckOut). Both are
	// midnight-UTC dates with no time-of-day significance.
	CheckIn  time.Time `json:"check_in" bson:"check_in" validate:"required"`
	CheckOut time.Time `json:"check_out" bson:"check_out" validate:"required,gtfield=CheckIn"`

	Guests       int     `json:"guests" bson:"guests" validate:"required,min=1,max=20"`
	ContactPhone string  `json:"contact_phone,omitempty" bson:"contact_phone,omitempty" validate:"omitempty,e164"`
	Pricing      Pricing `json:"pricing" bson:"pricing"`

	Status string `json:"status" bson:"status" validate:"required,oneof=pending_payment payment_processing confirmed completed cancelled_by_guest cancelled_by_host cancelled_by_system"`

	PaymentIntentID string `json:"payment_intent_id,omitempty" bson:"payment_intent_id,omitempty"`
	PaymentStatus   string `json:"payment_status" bson:"payment_status" validate:"required,oneof=pending succeeded failed refunded"`
	PaymentAttempts int    `json:"payment_attempts" bson:"payment_attempts"`

	CalendarBlockID string `json:"calendar_block_id,omitempty" bson:"calendar_block_id,omitempty"`

	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" bson:"updated_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty" bson:"expires_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}

// Nights returns the stay length of the half-open range.
func (b *Booking) Nights() int {
	return int(b.CheckOut.Sub(b.CheckIn).Hours() / 24)
}

// IsTerminal reports whether the booking can never transition again.
func IsTerminal(status string) bool {
	switch status {
	case StatusCompleted, StatusCancelledByGuest, StatusCancelledByHost, StatusCancelledBySystem:
		return true
	}
	return false
}

// Active statuses are the ones whose date range must stay exclusive on the
// listing calendar.
func IsActive(status string) bool {
	switch status {
	case StatusPendingPayment, StatusPaymentProcessing, StatusConfirmed:
		return true
	}
	return false
}

// BookingRequest is the inbound payload for booking creation. Pricing is
// intentionally absent: it is computed server-side from the listing record.
type BookingRequest struct {
	ListingID    string    `json:"listing_id" validate:"required,mongodb"`
	GuestID      string    `json:"guest_id" validate:"required,mongodb"`
	CheckIn      time.Time `json:"check_in" validate:"required"`
	CheckOut     time.Time `json:"check_out" validate:"required,gtfield=CheckIn"`
	Guests       int       `json:"guests" validate:"required,min=1,max=20"`
	ContactPhone string    `json:"contact_phone,omitempty" validate:"omitempty"`
}

// CancelRequest is the inbound payload for cancellation.
type CancelRequest struct {
	Actor  string `json:"actor" validate:"required,oneof=guest host system"`
	Reason string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// PaymentSubmission starts payment authorization for a pending booking.
type PaymentSubmission struct {
	CustomerRef    string `json:"customer_ref" validate:"required,min=1,max=100"`
	IdempotencyKey string `json:"idempotency_key" validate:"required,min=8,max=100"`
}
