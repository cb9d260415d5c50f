package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/dialer-campaign-backend/internal/cache"
	appErrors "github.com/unclebandit/dialer-campaign-backend/internal/errors"
	"github.com/unclebandit/dialer-campaign-backend/internal/logging"
	"github.com/unclebandit/dialer-campaign-backend/internal/model"
	"github.com/unclebandit/dialer-campaign-backend/internal/repository"
)

// OutcomeService applies the subscriber state machine for dialer reports and operator updates.
// Every change runs under the subscriber's row lock.
type OutcomeService struct {
	SubscriberRepo repository.SubscriberRepositoryInterface
	Stats          cache.StatsCache
	Logger         *zap.Logger
	Now            func() time.Time
}

func (s *OutcomeService) RecordOutcome(ctx context.Context, report model.AttemptReport) (*model.CampaignSubscriber, error) {
	if _, err := model.ParseAttemptOutcome(string(report.Outcome)); err != nil {
		return nil, err
	}
	at := report.OccurredAt
	if at.IsZero() {
		at = s.now()
	}

	sub, err := s.SubscriberRepo.UpdateLocked(ctx, report.SubscriberID, func(sub *model.CampaignSubscriber, maxRetry int) error {
		// subscribers dispatched before request ids were recorded accept any report
		if sub.RequestID != "" && report.RequestID != sub.RequestID {
			return &appErrors.ErrStaleReport{SubscriberID: sub.ID, RequestID: report.RequestID}
		}
		return model.ApplyAttempt(sub, maxRetry, report.Outcome, report.CallRequestID, at)
	})
	if err != nil {
		return nil, fmt.Errorf("record outcome for subscriber %d: %w", report.SubscriberID, err)
	}

	logger := logging.OrNop(s.Logger)
	fields := []zap.Field{
		zap.Int("campaign_id", sub.CampaignID),
		zap.Int("subscriber_id", sub.ID),
		zap.String("status", string(sub.Status)),
		zap.Int("count_attempt", sub.CountAttempt),
	}
	switch {
	case sub.Status == model.SubscriberPending:
		logger.Info("subscriber re-armed for retry", fields...)
	case sub.Status == model.SubscriberFail:
		logger.Info("subscriber failed", fields...)
	default:
		logger.Debug("attempt recorded", fields...)
	}

	invalidate(ctx, s.Stats, logger, sub.CampaignID)
	return sub, nil
}

// UpdateSubscriberStatus is the operator's status change for the subscriber holding phone in the campaign.
func (s *OutcomeService) UpdateSubscriberStatus(ctx context.Context, campaignID int, phone string, status string) (*model.CampaignSubscriber, error) {
	to, err := model.ParseSubscriberStatus(status)
	if err != nil {
		return nil, err
	}

	found, err := s.SubscriberRepo.FindByCampaignAndPhone(ctx, campaignID, phone)
	if err != nil {
		return nil, err
	}

	sub, err := s.SubscriberRepo.UpdateLocked(ctx, found.ID, func(sub *model.CampaignSubscriber, _ int) error {
		return model.ApplyAdminStatus(sub, to)
	})
	if err != nil {
		return nil, err
	}

	logger := logging.OrNop(s.Logger)
	logger.Info("subscriber status updated",
		zap.Int("campaign_id", campaignID), zap.Int("subscriber_id", sub.ID), zap.String("status", string(sub.Status)))
	invalidate(ctx, s.Stats, logger, campaignID)
	return sub, nil
}

func (s *OutcomeService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
