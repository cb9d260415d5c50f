// internal/handler/dialer_handler.go
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/unclebandit/dialer-campaign-backend/internal/controller"
	"github.com/unclebandit/dialer-campaign-backend/internal/logging"
	"github.com/unclebandit/dialer-campaign-backend/internal/model"
)

// OutcomeRecorder applies a finished attempt to its subscriber
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, report model.AttemptReport) (*model.CampaignSubscriber, error)
}

// DialerHandler receives attempt reports from dialers that call back over HTTP
type DialerHandler struct {
	Outcomes OutcomeRecorder
	Logger   *zap.Logger
}

func (h *DialerHandler) Routes(r chi.Router) {
	r.Post("/dialer/outcomes", h.ReportOutcomeHandler)
}

func (h *DialerHandler) ReportOutcomeHandler(w http.ResponseWriter, r *http.Request) {
	var report model.AttemptReport
	if !controller.DecodeJSON(w, r, &report) {
		return
	}
	if report.SubscriberID < 1 {
		controller.WriteProblem(w, http.StatusBadRequest, "invalid request", "subscriber_id is required")
		return
	}

	sub, err := h.Outcomes.RecordOutcome(r.Context(), report)
	if err != nil {
		logging.OrNop(h.Logger).Warn("outcome rejected",
			zap.Int("subscriber_id", report.SubscriberID),
			zap.String("outcome", string(report.Outcome)),
			zap.Error(err))
		controller.WriteError(w, err)
		return
	}
	controller.WriteJSON(w, http.StatusOK, sub)
}
