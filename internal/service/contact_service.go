package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/dialer-campaign-backend/internal/errors"
	"github.com/unclebandit/dialer-campaign-backend/internal/logging"
	"github.com/unclebandit/dialer-campaign-backend/internal/model"
	"github.com/unclebandit/dialer-campaign-backend/internal/repository"
)

// ContactEnroller is notified of every contact the service creates
type ContactEnroller interface {
	HandleContactCreated(ctx context.Context, contact *model.Contact) (int, error)
}

type ContactService struct {
	PhonebookRepo repository.PhonebookRepositoryInterface
	ContactRepo   repository.ContactRepositoryInterface
	Enroller      ContactEnroller
	Quota         *QuotaService
	Logger        *zap.Logger
}

type BulkImportResult struct {
	Created    int      `json:"count_contact"`
	Duplicates []string `json:"duplicates"`
	Failed     []string `json:"failed,omitempty"`
}

// CreateContact stores the contact and enrolls it into the active campaigns of its phonebook.
// A duplicate (number, phonebook) is returned as a conflict.
func (s *ContactService) CreateContact(ctx context.Context, c *model.Contact) (*model.Contact, error) {
	c.Phone = strings.TrimSpace(c.Phone)
	if c.Phone == "" {
		return nil, appErrors.NewValidation("contact", "is required")
	}
	if c.Status == "" {
		c.Status = model.ContactActive
	} else {
		st, err := model.ParseContactStatus(string(c.Status))
		if err != nil {
			return nil, err
		}
		c.Status = st
	}

	pb, err := s.PhonebookRepo.GetByID(ctx, c.PhonebookID)
	if err != nil {
		return nil, err
	}
	if s.Quota != nil {
		if err := s.Quota.CheckContacts(ctx, pb.AccountID, 1); err != nil {
			return nil, err
		}
	}

	if err := s.create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// BulkImport creates one contact per comma-separated number. Each number is created and enrolled
// independently; duplicates are reported, not fatal.
func (s *ContactService) BulkImport(ctx context.Context, phonebookID int, numbers string) (*BulkImportResult, error) {
	phones := splitNumbers(numbers)
	if len(phones) == 0 {
		return nil, appErrors.NewValidation("phoneno_list", "is empty")
	}

	pb, err := s.PhonebookRepo.GetByID(ctx, phonebookID)
	if err != nil {
		return nil, err
	}
	if s.Quota != nil {
		if err := s.Quota.CheckContacts(ctx, pb.AccountID, len(phones)); err != nil {
			return nil, err
		}
	}

	result := &BulkImportResult{Duplicates: []string{}}
	for _, phone := range phones {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		c := &model.Contact{PhonebookID: phonebookID, Phone: phone, Status: model.ContactActive}
		err := s.create(ctx, c)
		switch {
		case err == nil:
			result.Created++
		case appErrors.IsConflict(err):
			result.Duplicates = append(result.Duplicates, phone)
		default:
			logging.OrNop(s.Logger).Warn("bulk import contact failed",
				zap.Int("phonebook_id", phonebookID), zap.String("contact", phone), zap.Error(err))
			result.Failed = append(result.Failed, phone)
		}
	}
	return result, nil
}

func (s *ContactService) create(ctx context.Context, c *model.Contact) error {
	if err := s.ContactRepo.Create(ctx, c); err != nil {
		return err
	}
	if s.Enroller == nil {
		return nil
	}
	if _, err := s.Enroller.HandleContactCreated(ctx, c); err != nil {
		return fmt.Errorf("contact %d created but not enrolled: %w", c.ID, err)
	}
	return nil
}

func splitNumbers(list string) []string {
	var phones []string
	for _, p := range strings.Split(list, ",") {
		if p = strings.TrimSpace(p); p != "" {
			phones = append(phones, p)
		}
	}
	return phones
}
