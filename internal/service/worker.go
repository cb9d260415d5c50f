package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/unclebandit/dialer-campaign-backend/internal/logging"
	"github.com/unclebandit/dialer-campaign-backend/internal/model"
)

// OutcomeRecorder defines the method the worker needs
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, report model.AttemptReport) (*model.CampaignSubscriber, error)
}

// Worker applies attempt reports arriving on a channel
type Worker struct {
	Outcomes OutcomeRecorder
	Reports  <-chan model.AttemptReport
	Logger   *zap.Logger
}

// Constructor
func NewWorker(outcomes OutcomeRecorder, reports <-chan model.AttemptReport, logger *zap.Logger) *Worker {
	return &Worker{
		Outcomes: outcomes,
		Reports:  reports,
		Logger:   logging.OrNop(logger),
	}
}

// Start processes reports until the channel closes or ctx is done
func (w *Worker) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case report, ok := <-w.Reports:
			if !ok {
				return
			}
			if _, err := w.Outcomes.RecordOutcome(ctx, report); err != nil {
				w.Logger.Warn("attempt report rejected",
					zap.Int("subscriber_id", report.SubscriberID),
					zap.String("outcome", string(report.Outcome)),
					zap.Error(err))
			}
		}
	}
}
