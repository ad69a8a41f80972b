package service

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/openjms/biometric-gateway/pkg/app/errors"
	apphttp "github.com/openjms/biometric-gateway/pkg/app/http"
	"github.com/openjms/biometric-gateway/pkg/biometric"
	"github.com/openjms/biometric-gateway/pkg/bridge"
)

// HTTP wraps the Service to provide HTTP endpoints
type HTTP struct {
	service Service
	logger  *zap.Logger
}

// RegisterRoutes registers HTTP endpoints for the capture service on the given chi router
func RegisterRoutes(r chi.Router, service Service, logger *zap.Logger) {
	h := &HTTP{
		service: service,
		logger:  logger,
	}

	r.Post("/capture/{modality}", apphttp.HandleError(h.capture))
	r.Get("/capture/flows/{id}", apphttp.HandleError(h.getFlow))
	r.Post("/enroll", apphttp.HandleError(h.enroll))
	r.Post("/identify", apphttp.HandleError(h.identify))
	r.Get("/devices", apphttp.HandleError(h.devices))
}

func (h *HTTP) capture(w http.ResponseWriter, r *http.Request) error {
	modality := biometric.Modality(chi.URLParam(r, "modality"))

	var opts bridge.CaptureOptions
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1MB limit
	if err != nil {
		return apperrors.BadRequestError(err, "failed to read request")
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &opts); err != nil {
			return apperrors.BadRequestError(err, "invalid JSON")
		}
	}

	flow, err := h.service.Capture(r.Context(), modality, opts)
	if err != nil {
		return err
	}

	h.writeJSON(w, http.StatusOK, flow)
	return nil
}

func (h *HTTP) getFlow(w http.ResponseWriter, r *http.Request) error {
	flow, err := h.service.GetFlow(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return err
	}

	h.writeJSON(w, http.StatusOK, flow)
	return nil
}

type enrollRequest struct {
	FlowID   string `json:"flow_id"`
	PersonID string `json:"person_id"`
}

func (h *HTTP) enroll(w http.ResponseWriter, r *http.Request) error {
	var req enrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apperrors.BadRequestError(err, "invalid JSON")
	}
	if req.FlowID == "" || req.PersonID == "" {
		return apperrors.BadRequestError(nil, "flow_id and person_id are required")
	}

	result, err := h.service.Enroll(r.Context(), req.FlowID, req.PersonID)
	if err != nil {
		return err
	}

	h.writeJSON(w, http.StatusCreated, result)
	return nil
}

type identifyRequest struct {
	FlowID string `json:"flow_id"`
}

func (h *HTTP) identify(w http.ResponseWriter, r *http.Request) error {
	var req identifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apperrors.BadRequestError(err, "invalid JSON")
	}
	if req.FlowID == "" {
		return apperrors.BadRequestError(nil, "flow_id is required")
	}

	result, err := h.service.Identify(r.Context(), req.FlowID)
	if err != nil {
		return err
	}

	h.writeJSON(w, http.StatusOK, result)
	return nil
}

func (h *HTTP) devices(w http.ResponseWriter, r *http.Request) error {
	h.writeJSON(w, http.StatusOK, h.service.Devices(r.Context()))
	return nil
}

func (h *HTTP) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
