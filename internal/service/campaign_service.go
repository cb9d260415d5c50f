// internal/service/campaign_service.go
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/dialer-campaign-backend/internal/cache"
	appErrors "github.com/unclebandit/dialer-campaign-backend/internal/errors"
	"github.com/unclebandit/dialer-campaign-backend/internal/logging"
	"github.com/unclebandit/dialer-campaign-backend/internal/model"
	"github.com/unclebandit/dialer-campaign-backend/internal/policy"
	"github.com/unclebandit/dialer-campaign-backend/internal/repository"
)

type CampaignService struct {
	CampaignRepo   repository.CampaignRepositoryInterface
	ContactRepo    repository.ContactRepositoryInterface
	SubscriberRepo repository.SubscriberRepositoryInterface
	Quota          *QuotaService
	Stats          cache.StatsCache
	Logger         *zap.Logger
	Now            func() time.Time
}

// CreateCampaignInput is a campaign name plus any settings that override the defaults.
// Status is ignored: new campaigns always start in START.
type CreateCampaignInput struct {
	Name string `json:"name"`
	model.CampaignUpdate
}

type CampaignDetails struct {
	*model.Campaign
	Stats *model.CampaignStats `json:"stats"`
}

// CreateCampaign creates the campaign with a phonebook of the same name attached to it.
func (s *CampaignService) CreateCampaign(ctx context.Context, accountID int, in CreateCampaignInput) (*model.Campaign, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, appErrors.NewValidation("name", "is required")
	}
	if s.Quota != nil {
		if err := s.Quota.CheckCampaigns(ctx, accountID); err != nil {
			return nil, err
		}
	}

	c := model.NewCampaign(accountID, name, s.now())
	in.CampaignUpdate.Apply(c)
	c.Status = model.CampaignStart

	pb := &model.Phonebook{AccountID: accountID, Name: name}
	if err := s.CampaignRepo.Create(ctx, c, pb); err != nil {
		return nil, fmt.Errorf("create campaign %q: %w", name, err)
	}

	logging.OrNop(s.Logger).Info("campaign created",
		zap.Int("campaign_id", c.ID), zap.Int("phonebook_id", pb.ID), zap.String("status", string(c.Status)))
	return c, nil
}

// UpdateCampaign applies the fields present in upd.
func (s *CampaignService) UpdateCampaign(ctx context.Context, id int, upd model.CampaignUpdate) (*model.Campaign, error) {
	if upd.Status != nil {
		st, err := model.ParseCampaignStatus(string(*upd.Status))
		if err != nil {
			return nil, err
		}
		upd.Status = &st
	}

	c, err := s.CampaignRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.IsEmpty() {
		return c, nil
	}

	upd.Apply(c)
	if err := s.CampaignRepo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateStatus takes effect from the next dispatch cycle. In-flight subscribers are left alone.
func (s *CampaignService) UpdateStatus(ctx context.Context, id int, status string) error {
	st, err := model.ParseCampaignStatus(status)
	if err != nil {
		return err
	}
	if err := s.CampaignRepo.UpdateStatus(ctx, id, st); err != nil {
		return err
	}
	logging.OrNop(s.Logger).Info("campaign status updated", zap.Int("campaign_id", id), zap.String("status", string(st)))
	return nil
}

// ListCampaigns fetches campaigns with pagination
func (s *CampaignService) ListCampaigns(ctx context.Context, page, pageSize int, status string) ([]model.Campaign, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	if status != "" {
		st, err := model.ParseCampaignStatus(status)
		if err != nil {
			return nil, nil, err
		}
		status = string(st)
	}

	ptrs, total, err := s.CampaignRepo.ListCampaigns(ctx, offset, pageSize, status)
	if err != nil {
		return nil, nil, err
	}

	campaigns := make([]model.Campaign, len(ptrs))
	for i, c := range ptrs {
		campaigns[i] = *c
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}

	return campaigns, pagination, nil
}

// ListRunning returns the START campaigns inside their schedule window at now
func (s *CampaignService) ListRunning(ctx context.Context, now time.Time) ([]*model.Campaign, error) {
	started, err := s.CampaignRepo.ListByStatus(ctx, model.CampaignStart)
	if err != nil {
		return nil, err
	}
	return policy.FilterRunning(started, now), nil
}

func (s *CampaignService) GetCampaignDetailsWithStats(ctx context.Context, id int) (*CampaignDetails, error) {
	c, err := s.CampaignRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	stats, err := s.Stats.Get(ctx, id, func(ctx context.Context) (*model.CampaignStats, error) {
		contacts, err := s.ContactRepo.CountForCampaign(ctx, id)
		if err != nil {
			return nil, err
		}
		counts, err := s.SubscriberRepo.CountByStatus(ctx, id)
		if err != nil {
			return nil, err
		}
		return model.NewCampaignStats(id, contacts, counts), nil
	})
	if err != nil {
		return nil, fmt.Errorf("stats for campaign %d: %w", id, err)
	}
	return &CampaignDetails{Campaign: c, Stats: stats}, nil
}

// CreatePhonebook creates a phonebook owned by the campaign's account and attaches it.
func (s *CampaignService) CreatePhonebook(ctx context.Context, campaignID int, name, description string) (*model.Phonebook, error) {
	c, err := s.CampaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	pb := &model.Phonebook{AccountID: c.AccountID, Name: strings.TrimSpace(name), Description: description}
	if pb.Name == "" {
		return nil, appErrors.NewValidation("name", "is required")
	}
	if err := s.CampaignRepo.CreatePhonebook(ctx, campaignID, pb); err != nil {
		return nil, err
	}
	return pb, nil
}

// AttachPhonebook adds an existing phonebook to the campaign. Its contacts are enrolled by the
// scheduler's backfill on the next cycle.
func (s *CampaignService) AttachPhonebook(ctx context.Context, campaignID, phonebookID int) error {
	return s.CampaignRepo.AttachPhonebook(ctx, campaignID, phonebookID)
}

func (s *CampaignService) ListSubscribers(ctx context.Context, campaignID int, phone string) ([]*model.CampaignSubscriber, error) {
	if _, err := s.CampaignRepo.GetByID(ctx, campaignID); err != nil {
		return nil, err
	}
	return s.SubscriberRepo.ListByCampaign(ctx, campaignID, strings.TrimSpace(phone))
}

func (s *CampaignService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
