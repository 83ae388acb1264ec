package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "staybook/internal/bookings/errors"
	"staybook/internal/calendar/repository"
	"staybook/pkg/config"
	apperrors "staybook/pkg/errors"
	"staybook/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

const lockTTL = 10 * time.Second

// CalendarService owns the listing calendar: every active reservation and
// manual host block passes through here, and the reserve path is the only
// place a new date range can be claimed.
type CalendarService interface {
	CheckAvailability(ctx context.Context, listingID string, checkIn, checkOut time.Time) error
	Reserve(ctx context.Context, listingID, bookingID string, checkIn, checkOut time.Time) (*model.CalendarBlock, error)
	Confirm(ctx context.Context, blockID string) error
	ExtendHold(ctx context.Context, blockID string, expiresAt time.Time) error
	Release(ctx context.Context, blockID string) error
	CreateManualBlock(ctx context.Context, listingID string, checkIn, checkOut time.Time) (*model.CalendarBlock, error)
	ListBlocks(ctx context.Context, listingID string, from, to time.Time, limit int, offset int64) ([]*model.CalendarBlock, error)
	SweepExpiredHolds(ctx context.Context, limit int) (int64, error)
}

type calendarService struct {
	repo     repository.BlockRepository
	lockRepo repository.ListingLockRepository
	cfg      *config.Config
}

func NewCalendarService(
	repo repository.BlockRepository,
	lockRepo repository.ListingLockRepository,
	cfg *config.Config,
) CalendarService {
	return &calendarService{
		repo:     repo,
		lockRepo: lockRepo,
		cfg:      cfg,
	}
}

// CheckAvailability is advisory only: a clean answer here does not guarantee
// a later Reserve will succeed, because another request may claim the range
// in between. Reserve re-checks inside its critical section.
func (s *calendarService) CheckAvailability(ctx context.Context, listingID string, checkIn, checkOut time.Time) error {
	return s.verifyRangeFree(ctx, listingID, checkIn, checkOut)
}

// Reserve claims [checkIn, checkOut) for a booking by writing a hold block.
// An advisory lock on the listing serializes concurrent reservation attempts,
// and the overlap check runs again inside the transaction so the check and
// the insert are atomic with respect to other writers.
func (s *calendarService) Reserve(ctx context.Context, listingID, bookingID string, checkIn, checkOut time.Time) (*model.CalendarBlock, error) {
	lockID, err := s.acquireListingLock(ctx, listingID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := s.lockRepo.Delete(ctx, lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release listing lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	expiresAt := time.Now().UTC().Add(s.cfg.HoldTTL)
	block := &model.CalendarBlock{
		ListingID: listingID,
		BookingID: bookingID,
		CheckIn:   checkIn,
		CheckOut:  checkOut,
		Kind:      model.BlockHold,
		ExpiresAt: &expiresAt,
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.verifyRangeFree(sessCtx, listingID, checkIn, checkOut); err != nil {
			return err
		}
		if err := s.repo.Create(sessCtx, block); err != nil {
			return apperrors.Internal("Failed to create calendar block", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Calendar hold placed",
		"block_id", block.ID,
		"listing_id", listingID,
		"booking_id", bookingID,
		"check_in", checkIn,
		"check_out", checkOut,
		"expires_at", expiresAt,
	)
	return block, nil
}

// Confirm promotes a hold to a permanent confirmed block. A hold whose
// expiry already passed cannot be promoted: another reservation may hold the
// range by now, so the caller gets a conflict instead of a silent success.
func (s *calendarService) Confirm(ctx context.Context, blockID string) error {
	if blockID == "" {
		return apperrors.InvalidInput("Block ID cannot be empty")
	}
	if err := s.repo.Promote(ctx, blockID, time.Now().UTC()); err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return apperrors.Conflict("Calendar hold has lapsed and cannot be confirmed")
		}
		return apperrors.Internal("Failed to confirm calendar block", err)
	}
	return nil
}

// ExtendHold refreshes a live hold's expiry, keeping the block in step with
// a booking whose payment window was re-opened.
func (s *calendarService) ExtendHold(ctx context.Context, blockID string, expiresAt time.Time) error {
	if blockID == "" {
		return apperrors.InvalidInput("Block ID cannot be empty")
	}
	if err := s.repo.ExtendHold(ctx, blockID, time.Now().UTC(), expiresAt); err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return apperrors.Conflict("Calendar hold has lapsed and cannot be extended")
		}
		return apperrors.Internal("Failed to extend calendar hold", err)
	}
	return nil
}

// Release frees the block's date range. Safe to call more than once.
func (s *calendarService) Release(ctx context.Context, blockID string) error {
	if blockID == "" {
		return nil
	}
	if err := s.repo.Delete(ctx, blockID); err != nil {
		return apperrors.Internal("Failed to release calendar block", err)
	}
	return nil
}

// CreateManualBlock lets a host take dates off the market without a booking.
func (s *calendarService) CreateManualBlock(ctx context.Context, listingID string, checkIn, checkOut time.Time) (*model.CalendarBlock, error) {
	lockID, err := s.acquireListingLock(ctx, listingID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := s.lockRepo.Delete(ctx, lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release listing lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	block := &model.CalendarBlock{
		ListingID: listingID,
		CheckIn:   checkIn,
		CheckOut:  checkOut,
		Kind:      model.BlockManual,
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.verifyRangeFree(sessCtx, listingID, checkIn, checkOut); err != nil {
			return err
		}
		if err := s.repo.Create(sessCtx, block); err != nil {
			return apperrors.Internal("Failed to create manual block", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Manual block placed", "block_id", block.ID, "listing_id", listingID)
	return block, nil
}

func (s *calendarService) ListBlocks(ctx context.Context, listingID string, from, to time.Time, limit int, offset int64) ([]*model.CalendarBlock, error) {
	if listingID == "" {
		return nil, apperrors.InvalidInput("Listing ID cannot be empty")
	}

	blocks, err := s.repo.FindByListing(ctx, listingID, from, to, limit, offset)
	if err != nil {
		return nil, apperrors.Internal("Failed to list calendar blocks", err)
	}
	return blocks, nil
}

func (s *calendarService) SweepExpiredHolds(ctx context.Context, limit int) (int64, error) {
	removed, err := s.repo.DeleteExpiredHolds(ctx, time.Now().UTC(), limit)
	if err != nil {
		return 0, apperrors.Internal("Failed to sweep expired holds", err)
	}
	return removed, nil
}

func (s *calendarService) verifyRangeFree(ctx context.Context, listingID string, checkIn, checkOut time.Time) error {
	existing, err := s.repo.FindOverlapping(ctx, listingID, checkIn, checkOut)
	if err != nil {
		return apperrors.Internal("Failed to check calendar availability", err)
	}

	now := time.Now().UTC()
	for _, b := range existing {
		if b.Blocking(now) {
			return apperrors.Conflict(fmt.Sprintf(
				"Dates are unavailable: blocked %s to %s",
				b.CheckIn.Format("2006-01-02"),
				b.CheckOut.Format("2006-01-02"),
			))
		}
	}
	return nil
}

// acquireListingLock creates an advisory lock so only one request at a time
// can run the check-then-reserve sequence for a listing.
func (s *calendarService) acquireListingLock(ctx context.Context, listingID string) (string, error) {
	lockID := fmt.Sprintf("listing_lock_%s", listingID)

	lock := &model.ListingLock{
		ID:        lockID,
		ExpiresAt: time.Now().Add(lockTTL),
	}

	_, err := s.lockRepo.Create(ctx, lock)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", apperrors.Conflict("This listing is currently being booked by another request. Please try again.")
		}
		return "", apperrors.Internal("Failed to acquire listing lock", err)
	}

	return lockID, nil
}
