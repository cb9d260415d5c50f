package controller

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/dialer-campaign-backend/internal/model"
	"github.com/unclebandit/dialer-campaign-backend/internal/service"
)

type ContactService interface {
	CreateContact(ctx context.Context, c *model.Contact) (*model.Contact, error)
	BulkImport(ctx context.Context, phonebookID int, numbers string) (*service.BulkImportResult, error)
}

type ContactController struct {
	ContactService ContactService
}

func (c *ContactController) Routes(r chi.Router) {
	r.Post("/phonebooks/{id}/contacts", c.CreateContact)
	r.Post("/phonebooks/{id}/contacts/bulk", c.BulkImport)
}

func (c *ContactController) CreateContact(w http.ResponseWriter, r *http.Request) {
	phonebookID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var contact model.Contact
	if !DecodeJSON(w, r, &contact) {
		return
	}
	contact.PhonebookID = phonebookID

	created, err := c.ContactService.CreateContact(r.Context(), &contact)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, created)
}

func (c *ContactController) BulkImport(w http.ResponseWriter, r *http.Request) {
	phonebookID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		PhoneNumbers string `json:"phoneno_list"`
	}
	if !DecodeJSON(w, r, &body) {
		return
	}

	result, err := c.ContactService.BulkImport(r.Context(), phonebookID, body.PhoneNumbers)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, result)
}
