package service

import (
	"context"
	"errors"
	"sync"
	"time"

	bookingserrors "staybook/internal/bookings/errors"
	"staybook/internal/bookings/repository"
	"staybook/internal/bookings/statemachine"
	"staybook/internal/bookings/validator"
	calendarservice "staybook/internal/calendar/service"
	"staybook/internal/payments/processor"
	paymentsservice "staybook/internal/payments/service"
	"staybook/pkg/config"
	apperrors "staybook/pkg/errors"
	"staybook/pkg/events"
	"staybook/pkg/model"
	"staybook/pkg/sanitizer"

	"go.mongodb.org/mongo-driver/bson"
)

// BookingService drives the booking lifecycle. Every status mutation goes
// through the state machine and a compare-and-set write, so a lost race is
// detected rather than overwritten.
type BookingService interface {
	Create(ctx context.Context, req *model.BookingRequest) (*model.Booking, error)
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error)
	SubmitPayment(ctx context.Context, id string, sub *model.PaymentSubmission) (*model.Booking, error)
	Cancel(ctx context.Context, id string, req *model.CancelRequest) (*model.Booking, error)
	ApplyPaymentStatus(ctx context.Context, bookingID, processorStatus string) error

	ExpireOverdueHolds(ctx context.Context, batchSize int) (int, error)
	ResolveStuckPayments(ctx context.Context, batchSize int) (int, error)
	CompleteFinishedStays(ctx context.Context, batchSize int) (int, error)
}

type bookingService struct {
	repo        repository.BookingRepository
	listingRepo repository.ListingRepository
	calendar    calendarservice.CalendarService
	coordinator paymentsservice.Coordinator
	publisher   *events.Publisher
	validator   *validator.BookingValidator
	cfg         *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	listingRepo repository.ListingRepository,
	calendar calendarservice.CalendarService,
	coordinator paymentsservice.Coordinator,
	publisher *events.Publisher,
	bookingValidator *validator.BookingValidator,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:        repo,
		listingRepo: listingRepo,
		calendar:    calendar,
		coordinator: coordinator,
		publisher:   publisher,
		validator:   bookingValidator,
		cfg:         cfg,
	}
}

func (s *bookingService) Create(ctx context.Context, req *model.BookingRequest) (*model.Booking, error) {
	validator.NormalizeDates(req)
	req.ContactPhone = sanitizer.NormalizePhone(req.ContactPhone)
	if err := s.validator.ValidateRequest(req); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "error", err)
		return nil, apperrors.Validation("Booking validation failed", map[string]any{"error": err.Error()})
	}

	listing, err := s.listingRepo.FindByID(ctx, req.ListingID)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrListingNotFound) {
			return nil, apperrors.NotFoundWithID("Listing", req.ListingID)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid listing ID format")
		}
		return nil, apperrors.Internal("Failed to load listing", err)
	}
	if listing.Status != model.ListingActive {
		return nil, apperrors.Conflict("Listing is not accepting bookings")
	}
	if req.Guests > listing.MaxGuests {
		return nil, apperrors.Validation("Booking validation failed", map[string]any{
			"error": "guest count exceeds listing capacity",
		})
	}

	expiresAt := time.Now().UTC().Add(s.cfg.HoldTTL)
	booking := &model.Booking{
		ListingID:     req.ListingID,
		GuestID:       req.GuestID,
		HostID:        listing.HostID,
		CheckIn:       req.CheckIn,
		CheckOut:      req.CheckOut,
		Guests:        req.Guests,
		ContactPhone:  req.ContactPhone,
		Pricing:       s.price(listing, req),
		Status:        model.StatusPendingPayment,
		PaymentStatus: model.PaymentPending,
		ExpiresAt:     &expiresAt,
	}

	// Quick advisory read before writing anything. Reserve re-checks inside
	// its critical section, so this only exists to fail fast.
	if err := s.calendar.CheckAvailability(ctx, req.ListingID, req.CheckIn, req.CheckOut); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, booking); err != nil {
		return nil, apperrors.Internal("Failed to create booking", err)
	}

	block, err := s.calendar.Reserve(ctx, booking.ListingID, booking.ID, booking.CheckIn, booking.CheckOut)
	if err != nil {
		// The booking exists but never held dates. Park it in a terminal
		// state so it reads as a failed attempt rather than a live hold.
		now := time.Now().UTC()
		if cancelErr := s.transition(ctx, booking, statemachine.EventSystemCancelled, bson.M{"cancelled_at": now}); cancelErr != nil {
			s.cfg.Log.Error("Failed to cancel unreserved booking", "id", booking.ID, "error", cancelErr)
		} else {
			booking.CancelledAt = &now
			s.publisher.BookingCancelled(ctx, booking, "reservation_failed")
		}
		return nil, err
	}

	booking.CalendarBlockID = block.ID
	if err := s.repo.UpdateFields(ctx, booking.ID, bson.M{"calendar_block_id": block.ID}); err != nil {
		s.cfg.Log.Error("Failed to link calendar block", "id", booking.ID, "block_id", block.ID, "error", err)
	}

	s.cfg.Log.Info("Booking created",
		"id", booking.ID,
		"listing_id", booking.ListingID,
		"check_in", booking.CheckIn,
		"check_out", booking.CheckOut,
		"total_cents", booking.Pricing.TotalCents,
		"expires_at", expiresAt,
	)
	return booking, nil
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}

	return booking, nil
}

func (s *bookingService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error) {
	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
	}()
	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.FindAll(ctx, limit, offset)
	}()
	wg.Wait()

	if errFind != nil {
		return nil, 0, apperrors.Internal("Failed to retrieve bookings", errFind)
	}
	if errCount != nil {
		return nil, 0, apperrors.Internal("Failed to count bookings", errCount)
	}

	return bookings, count, nil
}

func (s *bookingService) SubmitPayment(ctx context.Context, id string, sub *model.PaymentSubmission) (*model.Booking, error) {
	if err := s.validator.ValidateSubmission(sub); err != nil {
		return nil, apperrors.Validation("Payment submission validation failed", map[string]any{"error": err.Error()})
	}

	booking, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if statemachine.Redundant(booking.Status, statemachine.EventPaymentSubmitted) {
		return booking, nil
	}
	if _, err := statemachine.Next(booking.Status, statemachine.EventPaymentSubmitted); err != nil {
		return nil, err
	}

	// A lapsed hold no longer protects the dates: the range may already be
	// claimed by another booking, so taking money for it would double-book.
	// The expiry sweep will park this record; the guest has to rebook.
	if booking.ExpiresAt != nil && time.Now().UTC().After(*booking.ExpiresAt) {
		return nil, apperrors.Conflict("Payment window has closed for this booking")
	}

	destination := ""
	if listing, err := s.listingRepo.FindByID(ctx, booking.ListingID); err != nil {
		s.cfg.Log.Warn("Failed to load listing for payout routing", "id", booking.ID, "listing_id", booking.ListingID, "error", err)
	} else {
		destination = listing.PayoutAccount
	}

	// Intent creation happens before the transition. If the processor is
	// down the booking stays pending and the hold keeps ticking.
	intent, err := s.coordinator.CreateAuthorization(ctx, booking, sub.CustomerRef, destination, sub.IdempotencyKey)
	if err != nil {
		return nil, err
	}

	set := bson.M{
		"payment_intent_id": intent.ID,
		"payment_attempts":  booking.PaymentAttempts + 1,
	}
	if err := s.transition(ctx, booking, statemachine.EventPaymentSubmitted, set); err != nil {
		return nil, err
	}
	booking.PaymentIntentID = intent.ID
	booking.PaymentAttempts++

	s.cfg.Log.Info("Payment submitted",
		"id", booking.ID,
		"intent_id", intent.ID,
		"attempt", booking.PaymentAttempts,
	)
	return booking, nil
}

func (s *bookingService) Cancel(ctx context.Context, id string, req *model.CancelRequest) (*model.Booking, error) {
	if err := s.validator.ValidateCancel(req); err != nil {
		return nil, apperrors.Validation("Cancellation validation failed", map[string]any{"error": err.Error()})
	}
	reason := sanitizer.NormalizeReason(req.Reason)

	booking, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	event, ok := statemachine.CancelEvent(req.Actor)
	if !ok {
		return nil, apperrors.InvalidInput("Unknown cancellation actor")
	}

	if statemachine.Redundant(booking.Status, event) {
		return booking, nil
	}
	if _, err := statemachine.Next(booking.Status, event); err != nil {
		return nil, err
	}

	wasConfirmed := booking.Status == model.StatusConfirmed
	if wasConfirmed && req.Actor != model.ActorSystem {
		cutoff := booking.CheckIn.Add(-s.cfg.CancellationCutoff)
		if time.Now().UTC().After(cutoff) {
			return nil, apperrors.Conflict("Cancellation window has closed for this booking")
		}
	}

	now := time.Now().UTC()
	if err := s.transition(ctx, booking, event, bson.M{"cancelled_at": now}); err != nil {
		return nil, err
	}
	booking.CancelledAt = &now

	if err := s.calendar.Release(ctx, booking.CalendarBlockID); err != nil {
		s.cfg.Log.Warn("Failed to release calendar block", "id", booking.ID, "block_id", booking.CalendarBlockID, "error", err)
	}

	if wasConfirmed && booking.PaymentIntentID != "" {
		s.coordinator.RequestRefund(ctx, booking.PaymentIntentID)
	}

	s.publisher.BookingCancelled(ctx, booking, reason)
	s.cfg.Log.Info("Booking cancelled",
		"id", booking.ID,
		"actor", req.Actor,
		"status", booking.Status,
	)
	return booking, nil
}

// ApplyPaymentStatus feeds a processor-reported status into the state
// machine. It is the single entry point for both the webhook and the
// reconciler, and it tolerates duplicate delivery.
func (s *bookingService) ApplyPaymentStatus(ctx context.Context, bookingID, processorStatus string) error {
	booking, err := s.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}

	switch processorStatus {
	case processor.StatusSucceeded:
		return s.applyPaymentSucceeded(ctx, booking)
	case processor.StatusFailed, processor.StatusCanceled:
		return s.applyPaymentFailed(ctx, booking)
	case processor.StatusRefunded:
		if booking.PaymentStatus != model.PaymentRefunded {
			return s.repo.UpdateFields(ctx, booking.ID, bson.M{"payment_status": model.PaymentRefunded})
		}
		return nil
	case processor.StatusPending, processor.StatusRequiresAction:
		// Still in flight. The stuck-payment sweep owns the deadline.
		return nil
	default:
		s.cfg.Log.Warn("Unknown payment status ignored", "id", bookingID, "payment_status", processorStatus)
		return nil
	}
}

func (s *bookingService) applyPaymentSucceeded(ctx context.Context, booking *model.Booking) error {
	if statemachine.Redundant(booking.Status, statemachine.EventPaymentSucceeded) {
		return nil
	}
	if _, err := statemachine.Next(booking.Status, statemachine.EventPaymentSucceeded); err != nil {
		return err
	}

	// The calendar block is promoted first. A booking must never read as
	// confirmed while its dates are up for grabs, so a hold that lapsed
	// before the success arrived cancels the booking and refunds the charge.
	if err := s.calendar.Confirm(ctx, booking.CalendarBlockID); err != nil {
		if apperrors.AsAppError(err).Code == apperrors.CodeConflict {
			return s.cancelUnconfirmable(ctx, booking)
		}
		return err
	}

	set := bson.M{"payment_status": model.PaymentSucceeded}
	if err := s.transition(ctx, booking, statemachine.EventPaymentSucceeded, set); err != nil {
		return err
	}

	s.publisher.BookingConfirmed(ctx, booking)
	s.cfg.Log.Info("Booking confirmed", "id", booking.ID, "intent_id", booking.PaymentIntentID)
	return nil
}

// cancelUnconfirmable parks a booking whose payment succeeded after its hold
// lapsed. The charge is refunded; the dates were never secured.
func (s *bookingService) cancelUnconfirmable(ctx context.Context, booking *model.Booking) error {
	now := time.Now().UTC()
	if err := s.transition(ctx, booking, statemachine.EventSystemCancelled, bson.M{"cancelled_at": now}); err != nil {
		return err
	}
	booking.CancelledAt = &now

	if booking.PaymentIntentID != "" {
		s.coordinator.RequestRefund(ctx, booking.PaymentIntentID)
	}
	s.publisher.BookingCancelled(ctx, booking, "hold_lapsed")
	s.cfg.Log.Warn("Booking cancelled, hold lapsed before payment settled",
		"id", booking.ID,
		"block_id", booking.CalendarBlockID,
		"intent_id", booking.PaymentIntentID,
	)
	return nil
}

func (s *bookingService) applyPaymentFailed(ctx context.Context, booking *model.Booking) error {
	event := statemachine.EventPaymentFailedRetry
	if booking.PaymentAttempts > s.cfg.PaymentRetryLimit {
		event = statemachine.EventPaymentFailedFinal
	}

	if statemachine.Redundant(booking.Status, event) {
		return nil
	}
	if _, err := statemachine.Next(booking.Status, event); err != nil {
		return err
	}

	if event == statemachine.EventPaymentFailedRetry {
		expiresAt := time.Now().UTC().Add(s.cfg.HoldTTL)
		set := bson.M{
			"payment_status": model.PaymentFailed,
			"expires_at":     expiresAt,
		}
		if err := s.transition(ctx, booking, event, set); err != nil {
			return err
		}
		// The hold must outlive the re-opened payment window, or the retry
		// would land on a block that no longer protects the dates.
		if err := s.calendar.ExtendHold(ctx, booking.CalendarBlockID, expiresAt); err != nil {
			s.cfg.Log.Warn("Failed to extend calendar hold", "id", booking.ID, "block_id", booking.CalendarBlockID, "error", err)
		}
		s.cfg.Log.Info("Payment failed, retry window opened",
			"id", booking.ID,
			"attempts", booking.PaymentAttempts,
			"expires_at", expiresAt,
		)
		return nil
	}

	now := time.Now().UTC()
	set := bson.M{
		"payment_status": model.PaymentFailed,
		"cancelled_at":   now,
	}
	if err := s.transition(ctx, booking, event, set); err != nil {
		return err
	}
	booking.CancelledAt = &now

	if err := s.calendar.Release(ctx, booking.CalendarBlockID); err != nil {
		s.cfg.Log.Warn("Failed to release calendar block", "id", booking.ID, "error", err)
	}
	s.publisher.BookingCancelled(ctx, booking, "payment_failed")
	s.cfg.Log.Info("Booking cancelled after final payment failure", "id", booking.ID, "attempts", booking.PaymentAttempts)
	return nil
}

// ExpireOverdueHolds cancels pending bookings whose payment window closed and
// frees their calendar blocks. Each record commits independently.
func (s *bookingService) ExpireOverdueHolds(ctx context.Context, batchSize int) (int, error) {
	bookings, err := s.repo.FindExpiredPending(ctx, time.Now().UTC(), batchSize)
	if err != nil {
		return 0, apperrors.Internal("Failed to find expired holds", err)
	}

	expired := 0
	for _, booking := range bookings {
		now := time.Now().UTC()
		if err := s.transition(ctx, booking, statemachine.EventHoldExpired, bson.M{"cancelled_at": now}); err != nil {
			// A concurrent payment submission may have moved it on. Skip.
			s.cfg.Log.Debug("Skipping hold expiry", "id", booking.ID, "error", err)
			continue
		}
		booking.CancelledAt = &now

		if err := s.calendar.Release(ctx, booking.CalendarBlockID); err != nil {
			s.cfg.Log.Warn("Failed to release calendar block", "id", booking.ID, "error", err)
		}
		s.publisher.BookingCancelled(ctx, booking, "hold_expired")
		expired++
	}

	if expired > 0 {
		s.cfg.Log.Info("Expired overdue holds", "count", expired)
	}
	return expired, nil
}

// ResolveStuckPayments reconciles bookings parked in payment_processing past
// the stuck timeout. The processor is consulted first: a success discovered
// late still confirms the booking. Only a still-undecided intent is cancelled.
func (s *bookingService) ResolveStuckPayments(ctx context.Context, batchSize int) (int, error) {
	olderThan := time.Now().UTC().Add(-s.cfg.StuckPaymentTimeout)
	bookings, err := s.repo.FindStuckProcessing(ctx, olderThan, batchSize)
	if err != nil {
		return 0, apperrors.Internal("Failed to find stuck payments", err)
	}

	resolved := 0
	for _, booking := range bookings {
		status, err := s.coordinator.ReconcileStatus(ctx, booking.ID)
		if err != nil {
			// Processor unreachable: leave the booking for the next sweep.
			s.cfg.Log.Warn("Skipping stuck booking, processor unavailable", "id", booking.ID, "error", err)
			continue
		}

		switch status {
		case processor.StatusPending, processor.StatusRequiresAction:
			if err := s.cancelStuck(ctx, booking); err != nil {
				s.cfg.Log.Warn("Failed to cancel stuck booking", "id", booking.ID, "error", err)
				continue
			}
		default:
			if err := s.ApplyPaymentStatus(ctx, booking.ID, status); err != nil {
				s.cfg.Log.Warn("Failed to apply reconciled payment status", "id", booking.ID, "payment_status", status, "error", err)
				continue
			}
		}
		resolved++
	}

	if resolved > 0 {
		s.cfg.Log.Info("Resolved stuck payments", "count", resolved)
	}
	return resolved, nil
}

func (s *bookingService) cancelStuck(ctx context.Context, booking *model.Booking) error {
	now := time.Now().UTC()
	if err := s.transition(ctx, booking, statemachine.EventStuckTimeout, bson.M{"cancelled_at": now}); err != nil {
		return err
	}
	booking.CancelledAt = &now

	if err := s.calendar.Release(ctx, booking.CalendarBlockID); err != nil {
		s.cfg.Log.Warn("Failed to release calendar block", "id", booking.ID, "error", err)
	}
	s.publisher.BookingCancelled(ctx, booking, "payment_stuck")
	s.cfg.Log.Info("Stuck booking cancelled", "id", booking.ID, "intent_id", booking.PaymentIntentID)
	return nil
}

// CompleteFinishedStays moves confirmed bookings past their check-out into
// the completed state.
func (s *bookingService) CompleteFinishedStays(ctx context.Context, batchSize int) (int, error) {
	bookings, err := s.repo.FindFinishedStays(ctx, time.Now().UTC(), batchSize)
	if err != nil {
		return 0, apperrors.Internal("Failed to find finished stays", err)
	}

	completed := 0
	for _, booking := range bookings {
		now := time.Now().UTC()
		if err := s.transition(ctx, booking, statemachine.EventCheckoutPassed, bson.M{"completed_at": now}); err != nil {
			s.cfg.Log.Debug("Skipping stay completion", "id", booking.ID, "error", err)
			continue
		}
		booking.CompletedAt = &now
		s.publisher.BookingCompleted(ctx, booking)
		completed++
	}

	if completed > 0 {
		s.cfg.Log.Info("Completed finished stays", "count", completed)
	}
	return completed, nil
}

func (s *bookingService) price(listing *model.Listing, req *model.BookingRequest) model.Pricing {
	nights := int(req.CheckOut.Sub(req.CheckIn).Hours() / 24)
	subtotal := listing.NightlyRateCents*int64(nights) + listing.CleaningFeeCents
	platformFee := feePart(subtotal, s.cfg.PlatformFeeBps)
	tax := feePart(subtotal, s.cfg.TaxBps)

	return model.Pricing{
		NightlyRateCents: listing.NightlyRateCents,
		Nights:           nights,
		CleaningFeeCents: listing.CleaningFeeCents,
		PlatformFeeCents: platformFee,
		TaxCents:         tax,
		TotalCents:       subtotal + platformFee + tax,
		Currency:         listing.Currency,
	}
}

// feePart applies basis points with half-up integer rounding.
func feePart(amountCents, bps int64) int64 {
	return (amountCents*bps + 5000) / 10000
}

// transition runs the state machine and persists the result with a CAS
// write. On success the in-memory booking is advanced too.
func (s *bookingService) transition(ctx context.Context, booking *model.Booking, event statemachine.Event, set bson.M) error {
	next, err := statemachine.Next(booking.Status, event)
	if err != nil {
		return err
	}

	err = s.repo.TransitionStatus(ctx, booking.ID, booking.Status, next, set)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrStatusChanged) {
			return apperrors.Conflict("Booking status changed concurrently, please retry")
		}
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Booking", booking.ID)
		}
		return apperrors.Internal("Failed to update booking status", err)
	}

	booking.Status = next
	if ps, ok := set["payment_status"].(string); ok {
		booking.PaymentStatus = ps
	}
	return nil
}
