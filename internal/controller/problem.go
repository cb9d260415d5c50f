package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/unclebandit/dialer-campaign-backend/internal/errors"
)

type Problem struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title,omitempty"`
	Status int    `json:"status,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func WriteProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Problem{Title: title, Status: status, Detail: detail})
}

// WriteError maps the engine's error taxonomy onto HTTP statuses
func WriteError(w http.ResponseWriter, err error) {
	var (
		conflict   *appErrors.ErrConflict
		transition *appErrors.ErrInvalidTransition
		capacity   *appErrors.ErrCapacityExceeded
		validation *appErrors.ErrValidation
	)
	switch {
	case appErrors.IsNotFound(err):
		WriteProblem(w, http.StatusNotFound, "not found", err.Error())
	case errors.As(err, &conflict):
		WriteProblem(w, http.StatusConflict, "conflict", err.Error())
	case errors.As(err, &transition):
		WriteProblem(w, http.StatusConflict, "invalid status transition", err.Error())
	case appErrors.IsStaleReport(err):
		WriteProblem(w, http.StatusConflict, "stale attempt report", err.Error())
	case errors.As(err, &capacity):
		WriteProblem(w, http.StatusUnprocessableEntity, "capacity exceeded", err.Error())
	case errors.As(err, &validation), errors.Is(err, appErrors.ErrInvalidStatus):
		WriteProblem(w, http.StatusBadRequest, "invalid request", err.Error())
	default:
		WriteProblem(w, http.StatusInternalServerError, "internal error", "")
	}
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeJSON decodes the body into v, writing a 400 on failure
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteProblem(w, http.StatusBadRequest, "invalid body", err.Error())
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id < 1 {
		WriteProblem(w, http.StatusBadRequest, "invalid "+name, chi.URLParam(r, name))
		return 0, false
	}
	return id, true
}

// accountID reads the caller's account from X-Account-ID
func accountID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.Header.Get("X-Account-ID"))
	if err != nil || id < 1 {
		WriteProblem(w, http.StatusUnauthorized, "missing account", "X-Account-ID header is required")
		return 0, false
	}
	return id, true
}
