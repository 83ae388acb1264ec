package service

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	bookingserrors "staybook/internal/bookings/errors"
	"staybook/internal/bookings/repository"
	"staybook/internal/bookings/validator"
	calendarservice "staybook/internal/calendar/service"
	"staybook/internal/payments/processor"
	paymentsservice "staybook/internal/payments/service"
	"staybook/pkg/config"
	mongotx "staybook/pkg/db/mongo"
	apperrors "staybook/pkg/errors"
	"staybook/pkg/events"
	"staybook/pkg/logger"
	"staybook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
)

const (
	testListingID = "66b1f0a2e4b0c73d2f8a9b01"
	testBookingID = "66b1f0a2e4b0c73d2f8a9b02"
	testGuestID   = "66b1f0a2e4b0c73d2f8a9b03"
	testBlockID   = "66b1f0a2e4b0c73d2f8a9b04"
)

type mockBookingRepo struct {
	booking     *model.Booking
	sweepResult []*model.Booking
	createErr   error
	transitions []string
}

func (m *mockBookingRepo) Create(ctx context.Context, booking *model.Booking) error {
	if m.createErr != nil {
		return m.createErr
	}
	booking.ID = testBookingID
	m.booking = booking
	return nil
}

func (m *mockBookingRepo) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if m.booking == nil || m.booking.ID != id {
		return nil, bookingserrors.ErrNotFound
	}
	copied := *m.booking
	return &copied, nil
}

func (m *mockBookingRepo) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, error) {
	if m.booking == nil {
		return nil, nil
	}
	return []*model.Booking{m.booking}, nil
}

func (m *mockBookingRepo) FindByGuest(ctx context.Context, guestID string, limit int, offset int64) ([]*model.Booking, error) {
	return nil, nil
}

func (m *mockBookingRepo) Count(ctx context.Context) (int64, error) {
	if m.booking == nil {
		return 0, nil
	}
	return 1, nil
}

func (m *mockBookingRepo) UpdateFields(ctx context.Context, id string, set bson.M) error {
	if m.booking == nil || m.booking.ID != id {
		return bookingserrors.ErrNotFound
	}
	if blockID, ok := set["calendar_block_id"].(string); ok {
		m.booking.CalendarBlockID = blockID
	}
	if ps, ok := set["payment_status"].(string); ok {
		m.booking.PaymentStatus = ps
	}
	return nil
}

func (m *mockBookingRepo) TransitionStatus(ctx context.Context, id, fromStatus, toStatus string, set bson.M) error {
	if m.booking == nil || m.booking.ID != id {
		return bookingserrors.ErrNotFound
	}
	if m.booking.Status != fromStatus {
		return bookingserrors.ErrStatusChanged
	}
	m.booking.Status = toStatus
	if ps, ok := set["payment_status"].(string); ok {
		m.booking.PaymentStatus = ps
	}
	if intentID, ok := set["payment_intent_id"].(string); ok {
		m.booking.PaymentIntentID = intentID
	}
	if attempts, ok := set["payment_attempts"].(int); ok {
		m.booking.PaymentAttempts = attempts
	}
	m.transitions = append(m.transitions, fromStatus+"->"+toStatus)
	return nil
}

func (m *mockBookingRepo) FindExpiredPending(ctx context.Context, now time.Time, limit int) ([]*model.Booking, error) {
	return m.sweepResult, nil
}

func (m *mockBookingRepo) FindStuckProcessing(ctx context.Context, olderThan time.Time, limit int) ([]*model.Booking, error) {
	return m.sweepResult, nil
}

func (m *mockBookingRepo) FindFinishedStays(ctx context.Context, now time.Time, limit int) ([]*model.Booking, error) {
	return m.sweepResult, nil
}

func (m *mockBookingRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

type mockListingRepo struct {
	listing *model.Listing
}

func (m *mockListingRepo) FindByID(ctx context.Context, id string) (*model.Listing, error) {
	if m.listing == nil {
		return nil, bookingserrors.ErrListingNotFound
	}
	return m.listing, nil
}

type mockCalendar struct {
	reserveErr error
	confirmErr error
	reserved   bool
	confirmed  []string
	extended   []string
	released   []string
}

func (m *mockCalendar) CheckAvailability(ctx context.Context, listingID string, checkIn, checkOut time.Time) error {
	return nil
}

func (m *mockCalendar) Reserve(ctx context.Context, listingID, bookingID string, checkIn, checkOut time.Time) (*model.CalendarBlock, error) {
	if m.reserveErr != nil {
		return nil, m.reserveErr
	}
	m.reserved = true
	expiresAt := time.Now().UTC().Add(30 * time.Minute)
	return &model.CalendarBlock{
		ID:        testBlockID,
		ListingID: listingID,
		BookingID: bookingID,
		CheckIn:   checkIn,
		CheckOut:  checkOut,
		Kind:      model.BlockHold,
		ExpiresAt: &expiresAt,
	}, nil
}

func (m *mockCalendar) Confirm(ctx context.Context, blockID string) error {
	if m.confirmErr != nil {
		return m.confirmErr
	}
	m.confirmed = append(m.confirmed, blockID)
	return nil
}

func (m *mockCalendar) ExtendHold(ctx context.Context, blockID string, expiresAt time.Time) error {
	m.extended = append(m.extended, blockID)
	return nil
}

func (m *mockCalendar) Release(ctx context.Context, blockID string) error {
	m.released = append(m.released, blockID)
	return nil
}

func (m *mockCalendar) CreateManualBlock(ctx context.Context, listingID string, checkIn, checkOut time.Time) (*model.CalendarBlock, error) {
	return nil, nil
}

func (m *mockCalendar) ListBlocks(ctx context.Context, listingID string, from, to time.Time, limit int, offset int64) ([]*model.CalendarBlock, error) {
	return nil, nil
}

func (m *mockCalendar) SweepExpiredHolds(ctx context.Context, limit int) (int64, error) {
	return 0, nil
}

type mockCoordinator struct {
	createErr       error
	destination     string
	intents         int
	reconcileStatus string
	reconcileErr    error
	refunded        []string
}

func (m *mockCoordinator) CreateAuthorization(ctx context.Context, booking *model.Booking, customerRef, destination, idempotencyKey string) (*model.PaymentIntent, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.destination = destination
	m.intents++
	return &model.PaymentIntent{ID: "pi_1", BookingID: booking.ID, Destination: destination, Status: processor.StatusPending}, nil
}

func (m *mockCoordinator) ReconcileStatus(ctx context.Context, bookingID string) (string, error) {
	if m.reconcileErr != nil {
		return "", m.reconcileErr
	}
	return m.reconcileStatus, nil
}

func (m *mockCoordinator) ResolveBooking(ctx context.Context, intentID string) (*model.PaymentIntent, error) {
	return nil, apperrors.NotFoundWithID("Payment intent", intentID)
}

func (m *mockCoordinator) RecordStatus(ctx context.Context, intentID, status string) error {
	return nil
}

func (m *mockCoordinator) RequestRefund(ctx context.Context, intentID string) {
	m.refunded = append(m.refunded, intentID)
}

type fixture struct {
	repo     *mockBookingRepo
	listings *mockListingRepo
	calendar *mockCalendar
	coord    *mockCoordinator
	svc      BookingService
	cfg      *config.Config
}

func newFixture() *fixture {
	log := logger.New(logger.Config{Output: io.Discard})
	cfg := &config.Config{
		HoldTTL:             30 * time.Minute,
		StuckPaymentTimeout: 2 * time.Hour,
		PaymentRetryLimit:   1,
		PlatformFeeBps:      1200,
		TaxBps:              850,
		CancellationCutoff:  24 * time.Hour,
		SweepBatchSize:      100,
		Log:                 log,
	}
	f := &fixture{
		repo: &mockBookingRepo{},
		listings: &mockListingRepo{listing: &model.Listing{
			ID:               testListingID,
			HostID:           "66b1f0a2e4b0c73d2f8a9b05",
			NightlyRateCents: 10000,
			CleaningFeeCents: 5000,
			Currency:         "USD",
			MaxGuests:        4,
			PayoutAccount:    "acct_host_1",
			Status:           model.ListingActive,
		}},
		calendar: &mockCalendar{},
		coord:    &mockCoordinator{},
		cfg:      cfg,
	}
	f.svc = NewBookingService(
		f.repo, f.listings, f.calendar, f.coord,
		events.NewPublisher(nil, log),
		validator.NewBookingValidator(log),
		cfg,
	)
	return f
}

func futureDate(days int) time.Time {
	d := time.Now().UTC().AddDate(0, 0, days)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

func validRequest() *model.BookingRequest {
	return &model.BookingRequest{
		ListingID: testListingID,
		GuestID:   testGuestID,
		CheckIn:   futureDate(7),
		CheckOut:  futureDate(10),
		Guests:    2,
	}
}

func (f *fixture) seedBooking(status string) *model.Booking {
	expiresAt := time.Now().UTC().Add(30 * time.Minute)
	f.repo.booking = &model.Booking{
		ID:              testBookingID,
		ListingID:       testListingID,
		GuestID:         testGuestID,
		CheckIn:         futureDate(7),
		CheckOut:        futureDate(10),
		Guests:          2,
		Pricing:         model.Pricing{TotalCents: 38678, Currency: "USD"},
		Status:          status,
		PaymentStatus:   model.PaymentPending,
		CalendarBlockID: testBlockID,
		ExpiresAt:       &expiresAt,
	}
	return f.repo.booking
}

func TestCreate_Success(t *testing.T) {
	f := newFixture()

	booking, err := f.svc.Create(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if booking.Status != model.StatusPendingPayment {
		t.Errorf("expected pending_payment, got %s", booking.Status)
	}
	if !f.calendar.reserved {
		t.Error("expected calendar reservation")
	}
	if booking.CalendarBlockID != testBlockID {
		t.Errorf("expected calendar block linked, got %q", booking.CalendarBlockID)
	}
	if booking.ExpiresAt == nil {
		t.Fatal("expected payment hold expiry")
	}

	// 3 nights x 100.00 + 50.00 cleaning = 350.00 subtotal;
	// 12% platform fee = 42.00; 8.5% tax = 29.75; total 421.75.
	p := booking.Pricing
	if p.Nights != 3 || p.NightlyRateCents != 10000 || p.CleaningFeeCents != 5000 {
		t.Errorf("unexpected base pricing: %+v", p)
	}
	if p.PlatformFeeCents != 4200 {
		t.Errorf("expected platform fee 4200, got %d", p.PlatformFeeCents)
	}
	if p.TaxCents != 2975 {
		t.Errorf("expected tax 2975, got %d", p.TaxCents)
	}
	if p.TotalCents != 42175 {
		t.Errorf("expected total 42175, got %d", p.TotalCents)
	}
	if p.Currency != "USD" {
		t.Errorf("expected USD, got %s", p.Currency)
	}
}

func TestCreate_UnknownListing(t *testing.T) {
	f := newFixture()
	f.listings.listing = nil

	_, err := f.svc.Create(context.Background(), validRequest())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if appErr := apperrors.AsAppError(err); appErr.HTTPStatus != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestCreate_InactiveListing(t *testing.T) {
	f := newFixture()
	f.listings.listing.Status = model.ListingSuspended

	_, err := f.svc.Create(context.Background(), validRequest())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if appErr := apperrors.AsAppError(err); appErr.HTTPStatus != http.StatusConflict {
		t.Errorf("expected 409, got %v", err)
	}
}

func TestCreate_TooManyGuests(t *testing.T) {
	f := newFixture()
	req := validRequest()
	req.Guests = 5

	_, err := f.svc.Create(context.Background(), req)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if appErr := apperrors.AsAppError(err); appErr.HTTPStatus != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestCreate_CalendarConflictParksBooking(t *testing.T) {
	f := newFixture()
	f.calendar.reserveErr = apperrors.Conflict("Dates are unavailable")

	_, err := f.svc.Create(context.Background(), validRequest())
	if err == nil {
		t.Fatal("expected conflict, got nil")
	}
	if appErr := apperrors.AsAppError(err); appErr.HTTPStatus != http.StatusConflict {
		t.Errorf("expected 409, got %v", err)
	}
	if f.repo.booking.Status != model.StatusCancelledBySystem {
		t.Errorf("expected unreserved booking parked as cancelled_by_system, got %s", f.repo.booking.Status)
	}
	if f.repo.booking.CancelledAt == nil {
		t.Error("expected cancellation timestamp on the parked booking")
	}
}

func TestSubmitPayment_Success(t *testing.T) {
	f := newFixture()
	f.seedBooking(model.StatusPendingPayment)

	booking, err := f.svc.SubmitPayment(context.Background(), testBookingID, &model.PaymentSubmission{
		CustomerRef:    "cus_9",
		IdempotencyKey: "idem-key-0001",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if booking.Status != model.StatusPaymentProcessing {
		t.Errorf("expected payment_processing, got %s", booking.Status)
	}
	if booking.PaymentIntentID != "pi_1" {
		t.Errorf("expected intent linked, got %q", booking.PaymentIntentID)
	}
	if booking.PaymentAttempts != 1 {
		t.Errorf("expected 1 attempt, got %d", booking.PaymentAttempts)
	}
	if f.coord.destination != "acct_host_1" {
		t.Errorf("expected host payout account on the intent, got %q", f.coord.destination)
	}
}

func TestSubmitPayment_LapsedHoldRejected(t *testing.T) {
	f := newFixture()
	b := f.seedBooking(model.StatusPendingPayment)
	lapsed := time.Now().UTC().Add(-45 * time.Minute)
	b.ExpiresAt = &lapsed

	_, err := f.svc.SubmitPayment(context.Background(), testBookingID, &model.PaymentSubmission{
		CustomerRef:    "cus_9",
		IdempotencyKey: "idem-key-0001",
	})
	if err == nil {
		t.Fatal("expected conflict, got nil")
	}
	if appErr := apperrors.AsAppError(err); appErr.HTTPStatus != http.StatusConflict {
		t.Errorf("expected 409, got %v", err)
	}
	if f.coord.intents != 0 {
		t.Error("expected no payment intent for a lapsed hold")
	}
	if f.repo.booking.Status != model.StatusPendingPayment {
		t.Errorf("expected booking left for the expiry sweep, got %s", f.repo.booking.Status)
	}
}

func TestSubmitPayment_DuplicateIsNoop(t *testing.T) {
	f := newFixture()
	f.seedBooking(model.StatusPaymentProcessing)

	booking, err := f.svc.SubmitPayment(context.Background(), testBookingID, &model.PaymentSubmission{
		CustomerRef:    "cus_9",
		IdempotencyKey: "idem-key-0001",
	})
	if err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
	if booking.Status != model.StatusPaymentProcessing {
		t.Errorf("expected status unchanged, got %s", booking.Status)
	}
}

func TestSubmitPayment_ConfirmedIsInvalid(t *testing.T) {
	f := newFixture()
	f.seedBooking(model.StatusConfirmed)

	_, err := f.svc.SubmitPayment(context.Background(), testBookingID, &model.PaymentSubmission{
		CustomerRef:    "cus_9",
		IdempotencyKey: "idem-key-0001",
	})
	if err == nil {
		t.Fatal("expected invalid transition, got nil")
	}
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeInvalidTransition {
		t.Errorf("expected INVALID_TRANSITION, got %v", err)
	}
}

func TestSubmitPayment_ProcessorDownLeavesPending(t *testing.T) {
	f := newFixture()
	f.seedBooking(model.StatusPendingPayment)
	f.coord.createErr = apperrors.Unavailable("payment processor")

	_, err := f.svc.SubmitPayment(context.Background(), testBookingID, &model.PaymentSubmission{
		CustomerRef:    "cus_9",
		IdempotencyKey: "idem-key-0001",
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if f.repo.booking.Status != model.StatusPendingPayment {
		t.Errorf("expected booking left pending, got %s", f.repo.booking.Status)
	}
}

func TestApplyPaymentStatus_SucceededConfirms(t *testing.T) {
	f := newFixture()
	f.seedBooking(model.StatusPaymentProcessing)

	if err := f.svc.ApplyPaymentStatus(context.Background(), testBookingID, processor.StatusSucceeded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.repo.booking.Status != model.StatusConfirmed {
		t.Errorf("expected confirmed, got %s", f.repo.booking.Status)
	}
	if f.repo.booking.PaymentStatus != model.PaymentSucceeded {
		t.Errorf("expected payment succeeded, got %s", f.repo.booking.PaymentStatus)
	}
	if len(f.calendar.confirmed) != 1 || f.calendar.confirmed[0] != testBlockID {
		t.Errorf("expected calendar block promoted, got %v", f.calendar.confirmed)
	}
}

func TestApplyPaymentStatus_SucceededAfterHoldLapsedCancels(t *testing.T) {
	f := newFixture()
	b := f.seedBooking(model.StatusPaymentProcessing)
	b.PaymentIntentID = "pi_1"
	f.calendar.confirmErr = apperrors.Conflict("Calendar hold has lapsed and cannot be confirmed")

	if err := f.svc.ApplyPaymentStatus(context.Background(), testBookingID, processor.StatusSucceeded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.repo.booking.Status != model.StatusCancelledBySystem {
		t.Errorf("expected cancelled_by_system, got %s", f.repo.booking.Status)
	}
	if len(f.calendar.confirmed) != 0 {
		t.Error("expected no promoted block for a lapsed hold")
	}
	if len(f.coord.refunded) != 1 || f.coord.refunded[0] != "pi_1" {
		t.Errorf("expected charge refunded, got %v", f.coord.refunded)
	}
}

func TestApplyPaymentStatus_DuplicateSucceededIsNoop(t *testing.T) {
	f := newFixture()
	f.seedBooking(model.StatusConfirmed)

	if err := f.svc.ApplyPaymentStatus(context.Background(), testBookingID, processor.StatusSucceeded); err != nil {
		t.Fatalf("expected duplicate delivery to be a no-op, got %v", err)
	}
	if len(f.calendar.confirmed) != 0 {
		t.Error("expected no calendar call on duplicate delivery")
	}
}

func TestApplyPaymentStatus_FailedWithinRetryLimit(t *testing.T) {
	f := newFixture()
	b := f.seedBooking(model.StatusPaymentProcessing)
	b.PaymentAttempts = 1

	if err := f.svc.ApplyPaymentStatus(context.Background(), testBookingID, processor.StatusFailed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.repo.booking.Status != model.StatusPendingPayment {
		t.Errorf("expected retry back to pending_payment, got %s", f.repo.booking.Status)
	}
	if len(f.calendar.released) != 0 {
		t.Error("expected block kept for the retry")
	}
	if len(f.calendar.extended) != 1 || f.calendar.extended[0] != testBlockID {
		t.Errorf("expected hold expiry extended for the retry, got %v", f.calendar.extended)
	}
}

func TestApplyPaymentStatus_FailedPastRetryLimit(t *testing.T) {
	f := newFixture()
	b := f.seedBooking(model.StatusPaymentProcessing)
	b.PaymentAttempts = 2

	if err := f.svc.ApplyPaymentStatus(context.Background(), testBookingID, processor.StatusFailed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.repo.booking.Status != model.StatusCancelledBySystem {
		t.Errorf("expected cancelled_by_system, got %s", f.repo.booking.Status)
	}
	if len(f.calendar.released) != 1 {
		t.Errorf("expected block released, got %v", f.calendar.released)
	}
}

func TestApplyPaymentStatus_PendingIsNoop(t *testing.T) {
	f := newFixture()
	f.seedBooking(model.StatusPaymentProcessing)

	if err := f.svc.ApplyPaymentStatus(context.Background(), testBookingID, processor.StatusPending); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.repo.booking.Status != model.StatusPaymentProcessing {
		t.Errorf("expected status unchanged, got %s", f.repo.booking.Status)
	}
}

func TestCancel_GuestPending(t *testing.T) {
	f := newFixture()
	f.seedBooking(model.StatusPendingPayment)

	booking, err := f.svc.Cancel(context.Background(), testBookingID, &model.CancelRequest{Actor: model.ActorGuest})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if booking.Status != model.StatusCancelledByGuest {
		t.Errorf("expected cancelled_by_guest, got %s", booking.Status)
	}
	if len(f.calendar.released) != 1 {
		t.Errorf("expected block released, got %v", f.calendar.released)
	}
	if len(f.coord.refunded) != 0 {
		t.Error("expected no refund for a never-captured booking")
	}
}

func TestCancel_ConfirmedInWindowRefunds(t *testing.T) {
	f := newFixture()
	b := f.seedBooking(model.StatusConfirmed)
	b.PaymentIntentID = "pi_1"

	booking, err := f.svc.Cancel(context.Background(), testBookingID, &model.CancelRequest{Actor: model.ActorGuest, Reason: "change of plans"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if booking.Status != model.StatusCancelledByGuest {
		t.Errorf("expected cancelled_by_guest, got %s", booking.Status)
	}
	if len(f.coord.refunded) != 1 || f.coord.refunded[0] != "pi_1" {
		t.Errorf("expected refund requested, got %v", f.coord.refunded)
	}
}

func TestCancel_ConfirmedPastCutoffRejected(t *testing.T) {
	f := newFixture()
	b := f.seedBooking(model.StatusConfirmed)
	b.CheckIn = time.Now().UTC().Add(6 * time.Hour)
	b.CheckOut = b.CheckIn.AddDate(0, 0, 3)

	_, err := f.svc.Cancel(context.Background(), testBookingID, &model.CancelRequest{Actor: model.ActorGuest})
	if err == nil {
		t.Fatal("expected conflict, got nil")
	}
	if appErr := apperrors.AsAppError(err); appErr.HTTPStatus != http.StatusConflict {
		t.Errorf("expected 409, got %v", err)
	}
	if f.repo.booking.Status != model.StatusConfirmed {
		t.Errorf("expected booking untouched, got %s", f.repo.booking.Status)
	}
}

func TestCancel_SystemBypassesCutoff(t *testing.T) {
	f := newFixture()
	b := f.seedBooking(model.StatusConfirmed)
	b.CheckIn = time.Now().UTC().Add(6 * time.Hour)
	b.CheckOut = b.CheckIn.AddDate(0, 0, 3)

	booking, err := f.svc.Cancel(context.Background(), testBookingID, &model.CancelRequest{Actor: model.ActorSystem})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if booking.Status != model.StatusCancelledBySystem {
		t.Errorf("expected cancelled_by_system, got %s", booking.Status)
	}
}

func TestCancel_CompletedIsInvalid(t *testing.T) {
	f := newFixture()
	f.seedBooking(model.StatusCompleted)

	_, err := f.svc.Cancel(context.Background(), testBookingID, &model.CancelRequest{Actor: model.ActorGuest})
	if err == nil {
		t.Fatal("expected invalid transition, got nil")
	}
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeInvalidTransition {
		t.Errorf("expected INVALID_TRANSITION, got %v", err)
	}
}

func TestCancel_DuplicateIsNoop(t *testing.T) {
	f := newFixture()
	f.seedBooking(model.StatusCancelledByGuest)

	booking, err := f.svc.Cancel(context.Background(), testBookingID, &model.CancelRequest{Actor: model.ActorGuest})
	if err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
	if booking.Status != model.StatusCancelledByGuest {
		t.Errorf("expected status unchanged, got %s", booking.Status)
	}
}

func TestExpireOverdueHolds(t *testing.T) {
	f := newFixture()
	b := f.seedBooking(model.StatusPendingPayment)
	f.repo.sweepResult = []*model.Booking{b}

	expired, err := f.svc.ExpireOverdueHolds(context.Background(), 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if expired != 1 {
		t.Errorf("expected 1 expired, got %d", expired)
	}
	if f.repo.booking.Status != model.StatusCancelledBySystem {
		t.Errorf("expected cancelled_by_system, got %s", f.repo.booking.Status)
	}
	if len(f.calendar.released) != 1 {
		t.Errorf("expected block released, got %v", f.calendar.released)
	}
}

func TestResolveStuckPayments_LateSuccessConfirms(t *testing.T) {
	f := newFixture()
	b := f.seedBooking(model.StatusPaymentProcessing)
	f.repo.sweepResult = []*model.Booking{b}
	f.coord.reconcileStatus = processor.StatusSucceeded

	resolved, err := f.svc.ResolveStuckPayments(context.Background(), 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved != 1 {
		t.Errorf("expected 1 resolved, got %d", resolved)
	}
	if f.repo.booking.Status != model.StatusConfirmed {
		t.Errorf("expected late success to confirm, got %s", f.repo.booking.Status)
	}
}

func TestResolveStuckPayments_UndecidedCancels(t *testing.T) {
	f := newFixture()
	b := f.seedBooking(model.StatusPaymentProcessing)
	f.repo.sweepResult = []*model.Booking{b}
	f.coord.reconcileStatus = processor.StatusPending

	if _, err := f.svc.ResolveStuckPayments(context.Background(), 100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.repo.booking.Status != model.StatusCancelledBySystem {
		t.Errorf("expected cancelled_by_system, got %s", f.repo.booking.Status)
	}
	if len(f.calendar.released) != 1 {
		t.Errorf("expected block released, got %v", f.calendar.released)
	}
}

func TestResolveStuckPayments_ProcessorDownSkips(t *testing.T) {
	f := newFixture()
	b := f.seedBooking(model.StatusPaymentProcessing)
	f.repo.sweepResult = []*model.Booking{b}
	f.coord.reconcileErr = apperrors.Unavailable("payment processor")

	resolved, err := f.svc.ResolveStuckPayments(context.Background(), 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved != 0 {
		t.Errorf("expected 0 resolved, got %d", resolved)
	}
	if f.repo.booking.Status != model.StatusPaymentProcessing {
		t.Errorf("expected booking untouched, got %s", f.repo.booking.Status)
	}
}

func TestCompleteFinishedStays(t *testing.T) {
	f := newFixture()
	b := f.seedBooking(model.StatusConfirmed)
	f.repo.sweepResult = []*model.Booking{b}

	completed, err := f.svc.CompleteFinishedStays(context.Background(), 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if completed != 1 {
		t.Errorf("expected 1 completed, got %d", completed)
	}
	if f.repo.booking.Status != model.StatusCompleted {
		t.Errorf("expected completed, got %s", f.repo.booking.Status)
	}
}

var _ repository.BookingRepository = (*mockBookingRepo)(nil)
var _ repository.ListingRepository = (*mockListingRepo)(nil)
var _ calendarservice.CalendarService = (*mockCalendar)(nil)
var _ paymentsservice.Coordinator = (*mockCoordinator)(nil)
