package handler

import (
	"encoding/json"
	"net/http"

	"staybook/internal/admin/service"
	httputil "staybook/pkg/http"
	"staybook/pkg/logger"
	"staybook/pkg/middleware"
	"staybook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type AdminHandler struct {
	gate service.Gate
	log  *logger.Logger
}

func NewAdminHandler(gate service.Gate, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		gate: gate,
		log:  log,
	}
}

func (h *AdminHandler) Verify(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.AdminVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Verify", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	clientID := middleware.DefaultClientExtractor(r)
	session, err := h.gate.Verify(r.Context(), clientID, req.Code)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Verify", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, session); err != nil {
		h.log.Error("failed to write success response", "handler", "Verify", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AdminHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/admin/verify", h.Verify)
}
