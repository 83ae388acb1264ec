package reconciler

import (
	"crypto/subtle"
	"net/http"

	httputil "staybook/pkg/http"
	"staybook/pkg/logger"

	apperrors "staybook/pkg/errors"

	"github.com/julienschmidt/httprouter"
)

const triggerHeader = "X-Trigger-Secret"

// TriggerHandler exposes a manual run of all sweeps, guarded by a shared
// secret distinct from the admin code.
type TriggerHandler struct {
	jobs   *Jobs
	secret string
	log    *logger.Logger
}

func NewTriggerHandler(jobs *Jobs, secret string, log *logger.Logger) *TriggerHandler {
	return &TriggerHandler{
		jobs:   jobs,
		secret: secret,
		log:    log,
	}
}

func (h *TriggerHandler) Trigger(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	provided := r.Header.Get(triggerHeader)
	if h.secret == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(h.secret)) != 1 {
		h.log.Warn("manual reconcile rejected", "remote_addr", r.RemoteAddr)
		if writeErr := httputil.WriteError(w, apperrors.Unauthorized("Invalid trigger secret")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Trigger", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	h.log.Info("manual reconcile triggered", "remote_addr", r.RemoteAddr)
	h.jobs.RunAll()

	if err := httputil.WriteSuccess(w, map[string]string{"status": "completed"}); err != nil {
		h.log.Error("failed to write success response", "handler", "Trigger", "operation", "WriteSuccess", "error", err)
	}
}

func (h *TriggerHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/reconcile", h.Trigger)
}
