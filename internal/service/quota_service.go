package service

import (
	"context"

	appErrors "github.com/unclebandit/dialer-campaign-backend/internal/errors"
	"github.com/unclebandit/dialer-campaign-backend/internal/repository"
)

// QuotaService enforces the per-account campaign and contact limits at the API boundary.
// An account without settings, or a nil limit, is unlimited.
type QuotaService struct {
	SettingsRepo repository.SettingsRepositoryInterface
	CampaignRepo repository.CampaignRepositoryInterface
	ContactRepo  repository.ContactRepositoryInterface
}

func (q *QuotaService) CheckCampaigns(ctx context.Context, accountID int) error {
	settings, err := q.SettingsRepo.GetByAccount(ctx, accountID)
	if err != nil || settings == nil || settings.MaxCampaigns == nil {
		return err
	}
	count, err := q.CampaignRepo.CountByAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if count >= *settings.MaxCampaigns {
		return &appErrors.ErrCapacityExceeded{Limit: "campaigns", Max: *settings.MaxCampaigns}
	}
	return nil
}

// CheckContacts refuses when adding more contacts would go past the account's limit
func (q *QuotaService) CheckContacts(ctx context.Context, accountID, adding int) error {
	settings, err := q.SettingsRepo.GetByAccount(ctx, accountID)
	if err != nil || settings == nil || settings.MaxContacts == nil {
		return err
	}
	count, err := q.ContactRepo.CountByAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if count+adding > *settings.MaxContacts {
		return &appErrors.ErrCapacityExceeded{Limit: "contacts", Max: *settings.MaxContacts}
	}
	return nil
}
