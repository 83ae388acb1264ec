package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	ErrListingNotFound = errors.New("listing not found")

	ErrListingUnavailable = errors.New("listing is not accepting bookings")

	ErrDatesUnavailable = errors.New("requested dates conflict with an existing block")

	ErrStatusChanged = errors.New("booking status changed concurrently")
)
