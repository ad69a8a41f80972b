package service

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/openjms/biometric-gateway/pkg/app/errors"
	apphttp "github.com/openjms/biometric-gateway/pkg/app/http"
	"github.com/openjms/biometric-gateway/pkg/subject"
)

// HTTP wraps the Service to provide HTTP endpoints
type HTTP struct {
	service Service
	logger  *zap.Logger
}

// RegisterRoutes registers HTTP endpoints for the person service on the given chi router
func RegisterRoutes(r chi.Router, service Service, logger *zap.Logger) {
	h := &HTTP{
		service: service,
		logger:  logger,
	}

	r.Route("/persons", func(r chi.Router) {
		r.Post("/", apphttp.HandleError(h.create))
		r.Get("/", apphttp.HandleError(h.list))
		r.Get("/{id}", apphttp.HandleError(h.get))
		r.Put("/{id}", apphttp.HandleError(h.update))
		r.Delete("/{id}", apphttp.HandleError(h.delete))
		r.Get("/{id}/enrollments", apphttp.HandleError(h.enrollments))
	})
}

func (h *HTTP) create(w http.ResponseWriter, r *http.Request) error {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apperrors.BadRequestError(err, "invalid JSON")
	}

	person, err := h.service.Create(r.Context(), req)
	if err != nil {
		return err
	}

	h.writeJSON(w, http.StatusCreated, person)
	return nil
}

func (h *HTTP) get(w http.ResponseWriter, r *http.Request) error {
	person, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return err
	}

	h.writeJSON(w, http.StatusOK, person)
	return nil
}

func (h *HTTP) list(w http.ResponseWriter, r *http.Request) error {
	kind := subject.Kind(r.URL.Query().Get("kind"))

	persons, err := h.service.List(r.Context(), kind)
	if err != nil {
		return err
	}

	h.writeJSON(w, http.StatusOK, persons)
	return nil
}

func (h *HTTP) update(w http.ResponseWriter, r *http.Request) error {
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apperrors.BadRequestError(err, "invalid JSON")
	}

	person, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		return err
	}

	h.writeJSON(w, http.StatusOK, person)
	return nil
}

func (h *HTTP) delete(w http.ResponseWriter, r *http.Request) error {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		return err
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *HTTP) enrollments(w http.ResponseWriter, r *http.Request) error {
	records, err := h.service.Enrollments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return err
	}

	h.writeJSON(w, http.StatusOK, records)
	return nil
}

func (h *HTTP) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
