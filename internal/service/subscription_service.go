package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/unclebandit/dialer-campaign-backend/internal/cache"
	appErrors "github.com/unclebandit/dialer-campaign-backend/internal/errors"
	"github.com/unclebandit/dialer-campaign-backend/internal/logging"
	"github.com/unclebandit/dialer-campaign-backend/internal/model"
	"github.com/unclebandit/dialer-campaign-backend/internal/repository"
)

// SubscriptionService is the only creator of campaign subscribers.
type SubscriptionService struct {
	CampaignRepo   repository.CampaignRepositoryInterface
	ContactRepo    repository.ContactRepositoryInterface
	SubscriberRepo repository.SubscriberRepositoryInterface
	Stats          cache.StatsCache
	Logger         *zap.Logger
}

// HandleContactCreated enrolls a new ACTIVE contact into every START campaign that holds its phonebook.
// It returns how many subscribers were created.
func (s *SubscriptionService) HandleContactCreated(ctx context.Context, contact *model.Contact) (int, error) {
	if contact.Status != model.ContactActive {
		return 0, nil
	}

	campaigns, err := s.CampaignRepo.ListActiveForContact(ctx, contact.ID)
	if err != nil {
		return 0, fmt.Errorf("campaigns for contact %d: %w", contact.ID, err)
	}

	enrolled := 0
	for _, c := range campaigns {
		created, err := s.EnrollContact(ctx, c.ID, contact)
		if err != nil {
			return enrolled, err
		}
		if created {
			enrolled++
		}
	}
	return enrolled, nil
}

// SyncCampaign enrolls the active contacts of a START campaign that have no subscriber yet,
// one contact at a time.
func (s *SubscriptionService) SyncCampaign(ctx context.Context, campaign *model.Campaign) (int, error) {
	if campaign.Status != model.CampaignStart {
		return 0, nil
	}

	contacts, err := s.ContactRepo.ActiveContactsWithoutSubscriber(ctx, campaign.ID)
	if err != nil {
		return 0, fmt.Errorf("contacts without subscriber for campaign %d: %w", campaign.ID, err)
	}

	enrolled := 0
	for i := range contacts {
		created, err := s.EnrollContact(ctx, campaign.ID, &contacts[i])
		if err != nil {
			return enrolled, err
		}
		if created {
			enrolled++
		}
	}
	if enrolled > 0 {
		s.logger().Info("enrollment backfill",
			zap.Int("campaign_id", campaign.ID), zap.Int("enrolled", enrolled))
	}
	return enrolled, nil
}

// EnrollContact creates the PENDING subscriber for one (contact, campaign) pair.
// An existing subscriber is not an error; created is false in that case.
func (s *SubscriptionService) EnrollContact(ctx context.Context, campaignID int, contact *model.Contact) (bool, error) {
	sub := &model.CampaignSubscriber{
		ContactID:        contact.ID,
		CampaignID:       campaignID,
		DuplicateContact: contact.Phone,
		Status:           model.SubscriberPending,
	}
	if err := s.SubscriberRepo.Create(ctx, sub); err != nil {
		if appErrors.IsConflict(err) {
			return false, nil
		}
		return false, fmt.Errorf("enroll contact %d in campaign %d: %w", contact.ID, campaignID, err)
	}

	invalidate(ctx, s.Stats, s.logger(), campaignID)
	return true, nil
}

func (s *SubscriptionService) logger() *zap.Logger {
	return logging.OrNop(s.Logger)
}

// invalidate drops cached stats, logging cache errors
func invalidate(ctx context.Context, stats cache.StatsCache, logger *zap.Logger, campaignID int) {
	if stats == nil {
		return
	}
	if err := stats.Invalidate(ctx, campaignID); err != nil {
		logger.Warn("stats invalidation failed", zap.Int("campaign_id", campaignID), zap.Error(err))
	}
}
