// internal/controller/campaign_controller.go
package controller

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/unclebandit/dialer-campaign-backend/internal/logging"
	"github.com/unclebandit/dialer-campaign-backend/internal/model"
	"github.com/unclebandit/dialer-campaign-backend/internal/service"
)

type CampaignService interface {
	CreateCampaign(ctx context.Context, accountID int, in service.CreateCampaignInput) (*model.Campaign, error)
	ListCampaigns(ctx context.Context, page, pageSize int, status string) ([]model.Campaign, map[string]int, error)
	GetCampaignDetailsWithStats(ctx context.Context, id int) (*service.CampaignDetails, error)
	UpdateCampaign(ctx context.Context, id int, upd model.CampaignUpdate) (*model.Campaign, error)
	UpdateStatus(ctx context.Context, id int, status string) error
	CreatePhonebook(ctx context.Context, campaignID int, name, description string) (*model.Phonebook, error)
	AttachPhonebook(ctx context.Context, campaignID, phonebookID int) error
	ListSubscribers(ctx context.Context, campaignID int, phone string) ([]*model.CampaignSubscriber, error)
}

type CampaignDeleter interface {
	DeleteCampaignCascade(ctx context.Context, campaignID int) (phonebooksDeleted, contactsDeleted int, err error)
}

type SubscriberStatusUpdater interface {
	UpdateSubscriberStatus(ctx context.Context, campaignID int, phone string, status string) (*model.CampaignSubscriber, error)
}

type CampaignController struct {
	CampaignService CampaignService
	Cascade         CampaignDeleter
	Subscribers     SubscriberStatusUpdater
	Logger          *zap.Logger
}

func (c *CampaignController) Routes(r chi.Router) {
	r.Post("/campaigns", c.CreateCampaign)
	r.Get("/campaigns", c.ListCampaigns)
	r.Get("/campaigns/{id}", c.GetCampaignDetails)
	r.Patch("/campaigns/{id}", c.UpdateCampaign)
	r.Put("/campaigns/{id}/status", c.UpdateStatus)
	r.Delete("/campaigns/{id}", c.DeleteCampaign)
	r.Post("/campaigns/{id}/phonebooks", c.CreatePhonebook)
	r.Put("/campaigns/{id}/phonebooks/{phonebookID}", c.AttachPhonebook)
	r.Get("/campaigns/{id}/subscribers", c.ListSubscribers)
	r.Put("/campaigns/{id}/subscribers/{contact}", c.UpdateSubscriber)
}

func (c *CampaignController) fail(w http.ResponseWriter, r *http.Request, err error) {
	logging.OrNop(c.Logger).Debug("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	WriteError(w, err)
}

func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	account, ok := accountID(w, r)
	if !ok {
		return
	}
	var body service.CreateCampaignInput
	if !DecodeJSON(w, r, &body) {
		return
	}

	campaign, err := c.CampaignService.CreateCampaign(r.Context(), account, body)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, campaign)
}

func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	// Parse query parameters
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	status := r.URL.Query().Get("status")

	campaigns, pagination, err := c.CampaignService.ListCampaigns(r.Context(), page, pageSize, status)
	if err != nil {
		c.fail(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"data":       campaigns,
		"pagination": pagination,
	})
}

func (c *CampaignController) GetCampaignDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	details, err := c.CampaignService.GetCampaignDetailsWithStats(r.Context(), id)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, details)
}

func (c *CampaignController) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var upd model.CampaignUpdate
	if !DecodeJSON(w, r, &upd) {
		return
	}
	campaign, err := c.CampaignService.UpdateCampaign(r.Context(), id, upd)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, campaign)
}

func (c *CampaignController) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if !DecodeJSON(w, r, &body) {
		return
	}
	if err := c.CampaignService.UpdateStatus(r.Context(), id, body.Status); err != nil {
		c.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *CampaignController) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	phonebooks, contacts, err := c.Cascade.DeleteCampaignCascade(r.Context(), id)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]int{
		"phonebooks_deleted": phonebooks,
		"contacts_deleted":   contacts,
	})
}

func (c *CampaignController) CreatePhonebook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if !DecodeJSON(w, r, &body) {
		return
	}
	pb, err := c.CampaignService.CreatePhonebook(r.Context(), id, body.Name, body.Description)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, pb)
}

func (c *CampaignController) AttachPhonebook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	phonebookID, ok := pathID(w, r, "phonebookID")
	if !ok {
		return
	}
	if err := c.CampaignService.AttachPhonebook(r.Context(), id, phonebookID); err != nil {
		c.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *CampaignController) ListSubscribers(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	subs, err := c.CampaignService.ListSubscribers(r.Context(), id, r.URL.Query().Get("contact"))
	if err != nil {
		c.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"data": subs})
}

// UpdateSubscriber changes the status of the subscriber holding {contact} in the campaign
func (c *CampaignController) UpdateSubscriber(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if !DecodeJSON(w, r, &body) {
		return
	}
	sub, err := c.Subscribers.UpdateSubscriberStatus(r.Context(), id, chi.URLParam(r, "contact"), body.Status)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, sub)
}
