package service

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/openjms/biometric-gateway/pkg/app/errors"
	apphttp "github.com/openjms/biometric-gateway/pkg/app/http"
)

// HTTP wraps the Service to provide HTTP endpoints
type HTTP struct {
	service Service
	logger  *zap.Logger
}

// RegisterRoutes registers HTTP endpoints for the visit log service on the given chi router
func RegisterRoutes(r chi.Router, service Service, logger *zap.Logger) {
	h := &HTTP{
		service: service,
		logger:  logger,
	}

	r.Route("/visits", func(r chi.Router) {
		r.Post("/", apphttp.HandleError(h.checkIn))
		r.Post("/checkout", apphttp.HandleError(h.checkOut))
		r.Get("/active", apphttp.HandleError(h.listActive))
		r.Get("/qr/{code}", apphttp.HandleError(h.lookup))
	})
}

func (h *HTTP) checkIn(w http.ResponseWriter, r *http.Request) error {
	var req CheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apperrors.BadRequestError(err, "invalid JSON")
	}

	visit, err := h.service.CheckIn(r.Context(), req)
	if err != nil {
		return err
	}

	h.writeJSON(w, http.StatusCreated, visit)
	return nil
}

type checkOutRequest struct {
	QRCode string `json:"qr_code"`
}

func (h *HTTP) checkOut(w http.ResponseWriter, r *http.Request) error {
	var req checkOutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apperrors.BadRequestError(err, "invalid JSON")
	}

	visit, err := h.service.CheckOutByQRCode(r.Context(), req.QRCode)
	if err != nil {
		return err
	}

	h.writeJSON(w, http.StatusOK, visit)
	return nil
}

func (h *HTTP) lookup(w http.ResponseWriter, r *http.Request) error {
	visit, err := h.service.LookupByQRCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		return err
	}

	h.writeJSON(w, http.StatusOK, visit)
	return nil
}

func (h *HTTP) listActive(w http.ResponseWriter, r *http.Request) error {
	visits, err := h.service.ListActive(r.Context())
	if err != nil {
		return err
	}

	h.writeJSON(w, http.StatusOK, visits)
	return nil
}

func (h *HTTP) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
