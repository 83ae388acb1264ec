package service

import (
	"context"
	"errors"
	"fmt"

	"staybook/internal/payments/processor"
	"staybook/internal/payments/repository"
	"staybook/pkg/config"
	apperrors "staybook/pkg/errors"
	"staybook/pkg/model"
)

// ProcessorClient is the slice of the processor API the coordinator needs.
type ProcessorClient interface {
	CreateIntent(ctx context.Context, req *processor.CreateIntentRequest, idempotencyKey string) (*processor.Intent, error)
	GetIntent(ctx context.Context, intentID string) (*processor.Intent, error)
	RefundIntent(ctx context.Context, intentID string) (*processor.Intent, error)
}

// Coordinator mediates between bookings and the external payment processor.
// It creates intents, keeps the intent-to-booking correlation table, and
// translates processor statuses. It never touches booking status itself.
type Coordinator interface {
	CreateAuthorization(ctx context.Context, booking *model.Booking, customerRef, destination, idempotencyKey string) (*model.PaymentIntent, error)
	ReconcileStatus(ctx context.Context, bookingID string) (string, error)
	ResolveBooking(ctx context.Context, intentID string) (*model.PaymentIntent, error)
	RecordStatus(ctx context.Context, intentID, status string) error
	RequestRefund(ctx context.Context, intentID string)
}

type coordinator struct {
	client ProcessorClient
	repo   repository.IntentRepository
	cfg    *config.Config
}

func NewCoordinator(client ProcessorClient, repo repository.IntentRepository, cfg *config.Config) Coordinator {
	return &coordinator{
		client: client,
		repo:   repo,
		cfg:    cfg,
	}
}

// ApplicationFee computes the platform's cut in minor units with half-up
// integer rounding, so the fee never drifts from float arithmetic.
func ApplicationFee(totalCents, feeBps int64) int64 {
	return (totalCents*feeBps + 5000) / 10000
}

// CreateAuthorization opens a payment intent for the booking total and
// persists the correlation record. The destination names the host's payout
// account so the processor routes the net amount there, and the idempotency
// key travels to the processor so a retried submission reuses the first
// intent.
func (c *coordinator) CreateAuthorization(ctx context.Context, booking *model.Booking, customerRef, destination, idempotencyKey string) (*model.PaymentIntent, error) {
	fee := ApplicationFee(booking.Pricing.TotalCents, c.cfg.PlatformFeeBps)

	req := &processor.CreateIntentRequest{
		AmountCents:        booking.Pricing.TotalCents,
		Currency:           booking.Pricing.Currency,
		CustomerRef:        customerRef,
		DestinationAccount: destination,
		ApplicationFee:     fee,
		Description:        fmt.Sprintf("Stay %s to %s", booking.CheckIn.Format("2006-01-02"), booking.CheckOut.Format("2006-01-02")),
	}

	intent, err := c.client.CreateIntent(ctx, req, idempotencyKey)
	if err != nil {
		c.cfg.Log.Error("Payment intent creation failed", "booking_id", booking.ID, "error", err)
		return nil, apperrors.Unavailable("payment processor")
	}

	record := &model.PaymentIntent{
		ID:             intent.ID,
		BookingID:      booking.ID,
		AmountCents:    booking.Pricing.TotalCents,
		Currency:       booking.Pricing.Currency,
		AppFeeCents:    fee,
		Destination:    destination,
		IdempotencyKey: idempotencyKey,
		Status:         intent.Status,
	}
	if err := c.repo.Save(ctx, record); err != nil {
		return nil, apperrors.Internal("Failed to persist payment intent", err)
	}

	c.cfg.Log.Info("Payment intent created",
		"intent_id", intent.ID,
		"booking_id", booking.ID,
		"amount_cents", booking.Pricing.TotalCents,
		"app_fee_cents", fee,
		"currency", booking.Pricing.Currency,
		"destination", destination,
	)
	return record, nil
}

// ReconcileStatus asks the processor for the current intent status of a
// booking and records it. Returns the processor status string.
func (c *coordinator) ReconcileStatus(ctx context.Context, bookingID string) (string, error) {
	record, err := c.repo.FindByBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrIntentNotFound) {
			return processor.StatusPending, nil
		}
		return "", apperrors.Internal("Failed to look up payment intent", err)
	}

	intent, err := c.client.GetIntent(ctx, record.ID)
	if err != nil {
		c.cfg.Log.Warn("Payment status query failed", "intent_id", record.ID, "booking_id", bookingID, "error", err)
		return "", apperrors.Unavailable("payment processor")
	}

	if intent.Status != record.Status {
		if err := c.repo.UpdateStatus(ctx, record.ID, intent.Status); err != nil {
			c.cfg.Log.Warn("Failed to record payment status", "intent_id", record.ID, "error", err)
		}
	}
	return intent.Status, nil
}

// ResolveBooking maps a webhook's intent id back to the stored correlation
// record, so the webhook payload never has to name a booking.
func (c *coordinator) ResolveBooking(ctx context.Context, intentID string) (*model.PaymentIntent, error) {
	record, err := c.repo.FindByID(ctx, intentID)
	if err != nil {
		if errors.Is(err, repository.ErrIntentNotFound) {
			return nil, apperrors.NotFoundWithID("Payment intent", intentID)
		}
		return nil, apperrors.Internal("Failed to resolve payment intent", err)
	}
	return record, nil
}

// RecordStatus stores a processor-reported status against the intent.
func (c *coordinator) RecordStatus(ctx context.Context, intentID, status string) error {
	if err := c.repo.UpdateStatus(ctx, intentID, status); err != nil {
		if errors.Is(err, repository.ErrIntentNotFound) {
			return apperrors.NotFoundWithID("Payment intent", intentID)
		}
		return apperrors.Internal("Failed to record payment status", err)
	}
	return nil
}

// RequestRefund initiates a refund and absorbs the outcome: the cancellation
// that triggered it must not fail because the processor is down. The
// reconciler picks up any refund whose initiation was lost.
func (c *coordinator) RequestRefund(ctx context.Context, intentID string) {
	intent, err := c.client.RefundIntent(ctx, intentID)
	if err != nil {
		c.cfg.Log.Error("Refund initiation failed", "intent_id", intentID, "error", err)
		return
	}

	if err := c.repo.UpdateStatus(ctx, intentID, intent.Status); err != nil {
		c.cfg.Log.Warn("Failed to record refund status", "intent_id", intentID, "error", err)
	}
	c.cfg.Log.Info("Refund initiated", "intent_id", intentID, "status", intent.Status)
}
