package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/unclebandit/dialer-campaign-backend/internal/cache"
	"github.com/unclebandit/dialer-campaign-backend/internal/logging"
	"github.com/unclebandit/dialer-campaign-backend/internal/model"
	"github.com/unclebandit/dialer-campaign-backend/internal/policy"
	"github.com/unclebandit/dialer-campaign-backend/internal/repository"
)

// Dialer hands a call attempt to the dialing collaborator
type Dialer interface {
	Dial(ctx context.Context, req model.DialRequest) error
}

type DispatchService struct {
	SubscriberRepo   repository.SubscriberRepositoryInterface
	SettingsRepo     repository.SettingsRepositoryInterface
	Dialer           Dialer
	Stats            cache.StatsCache
	Logger           *zap.Logger
	DefaultAnswerURL string
	NewRequestID     func() string
}

type DispatchResult struct {
	CampaignID    int `json:"campaign_id"`
	Claimed       int `json:"claimed"`
	Dispatched    int `json:"dispatched"`
	NotAuthorized int `json:"not_authorized"`
	Released      int `json:"released"`
}

// SelectBatch claims up to limit due PENDING subscribers of the campaign, moving them to IN_PROCESS.
// An empty batch means nothing is due.
func (s *DispatchService) SelectBatch(ctx context.Context, campaign *model.Campaign, limit int, now time.Time) ([]model.DispatchCandidate, error) {
	batch, err := s.SubscriberRepo.ClaimPending(ctx, campaign.ID, limit, now)
	if err != nil {
		return nil, fmt.Errorf("select batch for campaign %d: %w", campaign.ID, err)
	}
	return batch, nil
}

// DispatchCampaign runs one pacing interval for the campaign: claim a batch sized by the
// effective frequency, drop unauthorized numbers and publish the rest to the dialer.
//
// Every claimed subscriber leaves IN_PROCESS unless its dial request was handed off, even when
// ctx is cancelled mid-batch or a status write fails. Failed writes are joined into the returned
// error next to the partial result.
func (s *DispatchService) DispatchCampaign(ctx context.Context, campaign *model.Campaign, now time.Time) (*DispatchResult, error) {
	logger := logging.OrNop(s.Logger).With(zap.Int("campaign_id", campaign.ID))

	settings, err := s.SettingsRepo.GetByAccount(ctx, campaign.AccountID)
	if err != nil {
		return nil, fmt.Errorf("account settings %d: %w", campaign.AccountID, err)
	}

	batch, err := s.SelectBatch(ctx, campaign, policy.EffectiveFrequency(campaign, settings), now)
	if err != nil {
		return nil, err
	}

	result := &DispatchResult{CampaignID: campaign.ID, Claimed: len(batch)}
	if len(batch) == 0 {
		return result, nil
	}

	// claimed rows must be put back after ctx is gone
	cleanup := context.WithoutCancel(ctx)
	defer invalidate(cleanup, s.Stats, logger, campaign.ID)

	if settings != nil && !(policy.ValidPattern(settings.Whitelist) && policy.ValidPattern(settings.Blacklist)) {
		logger.Warn("account has an invalid whitelist or blacklist pattern, ignoring it",
			zap.Int("account_id", campaign.AccountID))
	}

	var errs []error
	release := func(id int) {
		if err := s.SubscriberRepo.ReleaseToPending(cleanup, id); err != nil {
			logger.Error("could not release subscriber", zap.Int("subscriber_id", id), zap.Error(err))
			errs = append(errs, fmt.Errorf("release subscriber %d: %w", id, err))
			return
		}
		result.Released++
	}

	maxDuration := policy.EffectiveMaxDuration(campaign, settings)
	for i, cand := range batch {
		sub := cand.Subscriber
		if err := ctx.Err(); err != nil {
			logger.Warn("dispatch interrupted, releasing the rest of the batch",
				zap.Int("remaining", len(batch)-i), zap.Error(err))
			for _, rest := range batch[i:] {
				release(rest.Subscriber.ID)
			}
			break
		}

		if !policy.IsAuthorized(sub.DuplicateContact, settings) {
			if err := s.SubscriberRepo.MarkNotAuthorized(cleanup, sub.ID); err != nil {
				logger.Error("could not mark subscriber not authorized, releasing it",
					zap.Int("subscriber_id", sub.ID), zap.Error(err))
				errs = append(errs, fmt.Errorf("mark subscriber %d not authorized: %w", sub.ID, err))
				release(sub.ID)
				continue
			}
			logger.Info("subscriber not authorized",
				zap.Int("subscriber_id", sub.ID), zap.String("status", string(model.SubscriberNotAuthorized)))
			result.NotAuthorized++
			continue
		}

		req := s.dialRequest(campaign, cand, maxDuration)
		if err := s.SubscriberRepo.AssignRequest(ctx, sub.ID, req.RequestID); err != nil {
			logger.Warn("could not record dial request, releasing subscriber",
				zap.Int("subscriber_id", sub.ID), zap.Error(err))
			release(sub.ID)
			continue
		}
		if err := s.Dialer.Dial(ctx, req); err != nil {
			logger.Warn("dial request not published, releasing subscriber",
				zap.Int("subscriber_id", sub.ID), zap.Error(err))
			release(sub.ID)
			continue
		}
		result.Dispatched++
	}

	logger.Info("dispatched batch",
		zap.Int("claimed", result.Claimed),
		zap.Int("dispatched", result.Dispatched),
		zap.Int("not_authorized", result.NotAuthorized),
		zap.Int("released", result.Released))
	return result, errors.Join(errs...)
}

func (s *DispatchService) dialRequest(campaign *model.Campaign, cand model.DispatchCandidate, maxDuration int) model.DialRequest {
	answerURL := campaign.AnswerURL
	if answerURL == "" {
		answerURL = s.DefaultAnswerURL
	}
	vars := dialVars(cand)
	newID := s.NewRequestID
	if newID == nil {
		newID = uuid.NewString
	}
	return model.DialRequest{
		RequestID:       newID(),
		SubscriberID:    cand.Subscriber.ID,
		CampaignID:      campaign.ID,
		PhoneNumber:     cand.Subscriber.DuplicateContact,
		CallTimeout:     campaign.CallTimeout,
		CallMaxDuration: maxDuration,
		AnswerURL:       RenderTemplate(answerURL, vars),
		GatewayID:       campaign.GatewayID,
		ExtraData:       RenderTemplate(campaign.ExtraData, vars),
		AdditionalVars:  cand.AdditionalVars,
	}
}
