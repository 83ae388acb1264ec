package model

import "time"

// Listing statuses as written by the external listing-management system.
// This engine only reads them.
const (
	ListingActive    = "active"
	ListingSuspended = "suspended"
	ListingDelisted  = "delisted"
)

// Listing is the authoritative pricing snapshot for a listing. Bookings are
// always priced from this record, never from caller-supplied amounts.
type Listing struct {
	ID               string    `json:"id,omitempty" bson:"_id,omitempty"`
	HostID           string    `json:"host_id" bson:"host_id"`
	NightlyRateCents int64     `json:"nightly_rate_cents" bson:"nightly_rate_cents"`
	CleaningFeeCents int64     `json:"cleaning_fee_cents" bson:"cleaning_fee_cents"`
	Currency         string    `json:"currency" bson:"currency"`
	MaxGuests        int       `json:"max_guests" bson:"max_guests"`
	PayoutAccount    string    `json:"payout_account,omitempty" bson:"payout_account,omitempty"`
	Status           string    `json:"status" bson:"status"`
	UpdatedAt        time.Time `json:"updated_at" bson:"updated_at"`
}
