package model

import "time"

// AdminAttempt is the durable failure counter for the admin verification
// gate, keyed by client identity. ExpiresAt drives a TTL index so stale
// counters disappear on their own; LockedUntil is the hard lockout deadline.
type AdminAttempt struct {
	ClientID    string     `bson:"_id" json:"client_id"`
	Failures    int        `bson:"failures" json:"failures"`
	WindowStart time.Time  `bson:"window_start" json:"window_start"`
	LockedUntil *time.Time `bson:"locked_until,omitempty" json:"locked_until,omitempty"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
	ExpiresAt   time.Time  `bson:"expires_at" json:"expires_at"`
}

// AdminVerifyRequest is the inbound payload for admin verification.
type AdminVerifyRequest struct {
	Code string `json:"code" validate:"required,min=4,max=128"`
}

// AdminSession is the response issued on successful verification.
type AdminSession struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
