package validator

import (
	"io"
	"testing"
	"time"

	"staybook/pkg/logger"
	"staybook/pkg/model"
)

func newTestValidator() *BookingValidator {
	return NewBookingValidator(logger.New(logger.Config{Output: io.Discard}))
}

func futureDate(days int) time.Time {
	return time.Now().UTC().AddDate(0, 0, days)
}

func validRequest() *model.BookingRequest {
	req := &model.BookingRequest{
		ListingID: "66b1f0a2e4b0c73d2f8a9b01",
		GuestID:   "66b1f0a2e4b0c73d2f8a9b02",
		CheckIn:   futureDate(7),
		CheckOut:  futureDate(10),
		Guests:    2,
	}
	NormalizeDates(req)
	return req
}

func TestNormalizeDates(t *testing.T) {
	req := &model.BookingRequest{
		CheckIn:  time.Date(2026, 9, 10, 15, 30, 45, 0, time.FixedZone("IST", 3*3600)),
		CheckOut: time.Date(2026, 9, 13, 23, 59, 59, 0, time.UTC),
	}
	NormalizeDates(req)

	if req.CheckIn != time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC) {
		t.Errorf("check_in not normalized: %v", req.CheckIn)
	}
	if req.CheckOut != time.Date(2026, 9, 13, 0, 0, 0, 0, time.UTC) {
		t.Errorf("check_out not normalized: %v", req.CheckOut)
	}
}

func TestValidateRequest_Valid(t *testing.T) {
	if err := newTestValidator().ValidateRequest(validRequest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRequest_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.BookingRequest)
	}{
		{"missing listing", func(r *model.BookingRequest) { r.ListingID = "" }},
		{"bad listing id", func(r *model.BookingRequest) { r.ListingID = "not-an-object-id" }},
		{"missing guest", func(r *model.BookingRequest) { r.GuestID = "" }},
		{"zero guests", func(r *model.BookingRequest) { r.Guests = 0 }},
		{"too many guests", func(r *model.BookingRequest) { r.Guests = 21 }},
		{"checkout before checkin", func(r *model.BookingRequest) { r.CheckOut = r.CheckIn.AddDate(0, 0, -1) }},
		{"zero nights", func(r *model.BookingRequest) { r.CheckOut = r.CheckIn }},
		{"past checkin", func(r *model.BookingRequest) {
			r.CheckIn = futureDate(-3)
			r.CheckOut = futureDate(2)
			NormalizeDates(r)
		}},
		{"too long stay", func(r *model.BookingRequest) {
			r.CheckOut = r.CheckIn.AddDate(0, 0, 120)
		}},
	}

	v := newTestValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)
			if err := v.ValidateRequest(req); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestValidateRequest_SameDayCheckInAllowed(t *testing.T) {
	req := validRequest()
	req.CheckIn = time.Now().UTC()
	req.CheckOut = futureDate(2)
	NormalizeDates(req)

	if err := newTestValidator().ValidateRequest(req); err != nil {
		t.Fatalf("expected same-day check-in to pass, got %v", err)
	}
}

func TestValidateCancel(t *testing.T) {
	v := newTestValidator()

	if err := v.ValidateCancel(&model.CancelRequest{Actor: "guest"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := v.ValidateCancel(&model.CancelRequest{Actor: "intruder"}); err == nil {
		t.Error("expected error for unknown actor")
	}
	if err := v.ValidateCancel(&model.CancelRequest{}); err == nil {
		t.Error("expected error for missing actor")
	}
}

func TestValidateSubmission(t *testing.T) {
	v := newTestValidator()

	ok := &model.PaymentSubmission{CustomerRef: "cus_123", IdempotencyKey: "key-0001-aaaa"}
	if err := v.ValidateSubmission(ok); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := v.ValidateSubmission(&model.PaymentSubmission{CustomerRef: "cus_123", IdempotencyKey: "short"}); err == nil {
		t.Error("expected error for short idempotency key")
	}
	if err := v.ValidateSubmission(&model.PaymentSubmission{IdempotencyKey: "key-0001-aaaa"}); err == nil {
		t.Error("expected error for missing customer ref")
	}
}
