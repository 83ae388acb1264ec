package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"staybook/internal/bookings/service"
	calendarservice "staybook/internal/calendar/service"
	paymentsservice "staybook/internal/payments/service"
	apperrors "staybook/pkg/errors"
	httputil "staybook/pkg/http"
	"staybook/pkg/logger"
	"staybook/pkg/middleware"
	"staybook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type BookingHandler struct {
	service     service.BookingService
	calendar    calendarservice.CalendarService
	coordinator paymentsservice.Coordinator
	log         *logger.Logger
}

func NewBookingHandler(
	bookingService service.BookingService,
	calendar calendarservice.CalendarService,
	coordinator paymentsservice.Coordinator,
	log *logger.Logger,
) *BookingHandler {
	return &BookingHandler{
		service:     bookingService,
		calendar:    calendar,
		coordinator: coordinator,
		log:         log,
	}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Create", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	booking, err := h.service.Create(r.Context(), &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Create", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	booking, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByID", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	bookings, total, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *BookingHandler) SubmitPayment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	var sub model.PaymentSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "SubmitPayment", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	booking, err := h.service.SubmitPayment(r.Context(), id, &sub)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "SubmitPayment", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "SubmitPayment", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	var req model.CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Cancel", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	booking, err := h.service.Cancel(r.Context(), id, &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Cancel", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Cancel", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Availability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	listingID := ps.ByName("id")
	query := r.URL.Query()

	checkIn, err := parseDate(query.Get("check_in"))
	if err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("invalid check_in, must be YYYY-MM-DD")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Availability", "operation", "WriteError", "error", writeErr)
		}
		return
	}
	checkOut, err := parseDate(query.Get("check_out"))
	if err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("invalid check_out, must be YYYY-MM-DD")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Availability", "operation", "WriteError", "error", writeErr)
		}
		return
	}
	if !checkOut.After(checkIn) {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("check_out must be after check_in")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Availability", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	available := true
	if err := h.calendar.CheckAvailability(r.Context(), listingID, checkIn, checkOut); err != nil {
		appErr := apperrors.AsAppError(err)
		if appErr.HTTPStatus != http.StatusConflict {
			if writeErr := httputil.WriteError(w, err); writeErr != nil {
				h.log.Error("failed to write error response", "handler", "Availability", "operation", "WriteError", "error", writeErr)
			}
			return
		}
		available = false
	}

	if err := httputil.WriteSuccess(w, map[string]bool{"available": available}); err != nil {
		h.log.Error("failed to write success response", "handler", "Availability", "operation", "WriteSuccess", "error", err)
	}
}

// paymentWebhook is the processor's event delivery payload.
type paymentWebhook struct {
	IntentID string `json:"intent_id"`
	Status   string `json:"status"`
}

// Webhook handles processor event deliveries. The booking is resolved through
// the stored intent correlation; the payload's own references are never
// trusted. Duplicate deliveries are acknowledged without effect.
func (h *BookingHandler) Webhook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var event paymentWebhook
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil || event.IntentID == "" || event.Status == "" {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid webhook payload",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Webhook", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	intent, err := h.coordinator.ResolveBooking(r.Context(), event.IntentID)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Webhook", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := h.coordinator.RecordStatus(r.Context(), event.IntentID, event.Status); err != nil {
		h.log.Warn("failed to record webhook payment status", "intent_id", event.IntentID, "error", err)
	}

	if err := h.service.ApplyPaymentStatus(r.Context(), intent.BookingID, event.Status); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Webhook", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, map[string]string{"status": "processed"}); err != nil {
		h.log.Error("failed to write success response", "handler", "Webhook", "operation", "WriteSuccess", "error", err)
	}
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings", h.Create)
	router.GET("/api/v1/bookings", h.GetAll)
	router.GET("/api/v1/bookings/id/:id", h.GetByID)
	router.POST("/api/v1/bookings/id/:id/payment", h.SubmitPayment)
	router.POST("/api/v1/bookings/id/:id/cancel", h.Cancel)
	router.GET("/api/v1/listings/id/:id/availability", h.Availability)
}

// RegisterWebhook mounts the processor webhook behind HMAC signature
// verification. It is separate from RegisterRoutes because it carries its own
// middleware.
func (h *BookingHandler) RegisterWebhook(router *httprouter.Router, secret string) {
	verified := middleware.WebhookSignatureVerification(secret, h.log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.Webhook(w, r, nil)
	}))
	router.Handler(http.MethodPost, "/api/v1/webhooks/payment", verified)
}
