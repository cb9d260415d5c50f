package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/unclebandit/dialer-campaign-backend/internal/cache"
	"github.com/unclebandit/dialer-campaign-backend/internal/logging"
	"github.com/unclebandit/dialer-campaign-backend/internal/repository"
)

type CascadeService struct {
	Repo   repository.CascadeRepositoryInterface
	Stats  cache.StatsCache
	Logger *zap.Logger
}

// DeleteCampaignCascade deletes the campaign, and its phonebooks with their contacts when no other
// campaign references any of them. The check and the deletes share one transaction.
func (s *CascadeService) DeleteCampaignCascade(ctx context.Context, campaignID int) (phonebooksDeleted, contactsDeleted int, err error) {
	err = s.Repo.RunInTx(ctx, func(tx repository.CascadeTx) error {
		phonebooksDeleted, contactsDeleted = 0, 0

		if err := tx.LockCampaign(ctx, campaignID); err != nil {
			return err
		}
		ids, err := tx.PhonebookIDs(ctx, campaignID)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return tx.DeleteCampaign(ctx, campaignID)
		}

		if err := tx.LockPhonebooks(ctx, ids); err != nil {
			return err
		}
		others, err := tx.OtherCampaignsReferencing(ctx, campaignID, ids)
		if err != nil {
			return err
		}
		if others > 0 {
			return tx.DeleteCampaign(ctx, campaignID)
		}

		if contactsDeleted, err = tx.DeleteContactsInPhonebooks(ctx, ids); err != nil {
			return err
		}
		if phonebooksDeleted, err = tx.DeletePhonebooks(ctx, ids); err != nil {
			return err
		}
		return tx.DeleteCampaign(ctx, campaignID)
	})
	if err != nil {
		return 0, 0, fmt.Errorf("delete campaign %d: %w", campaignID, err)
	}

	logger := logging.OrNop(s.Logger)
	logger.Info("campaign deleted",
		zap.Int("campaign_id", campaignID),
		zap.Int("phonebooks_deleted", phonebooksDeleted),
		zap.Int("contacts_deleted", contactsDeleted))
	invalidate(ctx, s.Stats, logger, campaignID)
	return phonebooksDeleted, contactsDeleted, nil
}
