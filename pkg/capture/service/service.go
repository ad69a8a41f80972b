// Package service implements the capture orchestration: it sequences
// device capture against the hardware bridges and template submission to
// the matching service, one flow at a time per physical device.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openjms/biometric-gateway/internal/metrics"
	apperrors "github.com/openjms/biometric-gateway/pkg/app/errors"
	"github.com/openjms/biometric-gateway/pkg/biometric"
	"github.com/openjms/biometric-gateway/pkg/bridge"
	"github.com/openjms/biometric-gateway/pkg/capture"
	"github.com/openjms/biometric-gateway/pkg/config"
	"github.com/openjms/biometric-gateway/pkg/enrollment"
	"github.com/openjms/biometric-gateway/pkg/keys"
	"github.com/openjms/biometric-gateway/pkg/subject"
	"github.com/openjms/biometric-gateway/pkg/subjectstore"
)

// DeviceStatus describes one configured capture device for operators.
type DeviceStatus struct {
	Modality biometric.Modality `json:"modality"`
	// SessionManaged reports whether the device has an init/release
	// lifecycle. Face capture does not.
	SessionManaged bool   `json:"session_managed"`
	Model          string `json:"model,omitempty"`
	Serial         string `json:"serial,omitempty"`
	Status         string `json:"status"`
	Error          string `json:"error,omitempty"`
}

// Service orchestrates capture-and-submit flows.
type Service interface {
	// Capture acquires a sample from the modality's device and opens a flow
	// holding the captured template until it is submitted or expires.
	Capture(ctx context.Context, modality biometric.Modality, opts bridge.CaptureOptions) (*capture.Flow, error)

	// Enroll submits a captured flow's template for enrollment under a
	// person. A flow can be submitted at most once.
	Enroll(ctx context.Context, flowID, personID string) (*biometric.EnrollmentResult, error)

	// Identify submits a captured flow's template for a one-to-many search.
	// A flow can be submitted at most once.
	Identify(ctx context.Context, flowID string) (*biometric.IdentificationResult, error)

	// GetFlow returns the current state of a flow.
	GetFlow(ctx context.Context, flowID string) (*capture.Flow, error)

	// Devices reports the status of every configured capture device.
	Devices(ctx context.Context) []DeviceStatus

	// Close releases devices whose release policy defers teardown to
	// gateway shutdown.
	Close(ctx context.Context) error
}

type service struct {
	devices     map[biometric.Modality]bridge.Device
	guard       *bridge.Guard
	submitter   biometric.Submitter
	sessions    capture.SessionStore
	persons     subject.Store
	enrollments enrollment.Store
	cipher      *keys.TemplateCipher
	logger      *zap.Logger
}

// New creates the capture orchestration service.
func New(
	devices map[biometric.Modality]bridge.Device,
	guard *bridge.Guard,
	submitter biometric.Submitter,
	sessions capture.SessionStore,
	persons subject.Store,
	enrollments enrollment.Store,
	cipher *keys.TemplateCipher,
	logger *zap.Logger,
) Service {
	return &service{
		devices:     devices,
		guard:       guard,
		submitter:   submitter,
		sessions:    sessions,
		persons:     persons,
		enrollments: enrollments,
		cipher:      cipher,
		logger:      logger,
	}
}

func (s *service) Capture(ctx context.Context, modality biometric.Modality, opts bridge.CaptureOptions) (*capture.Flow, error) {
	if !modality.Valid() {
		return nil, apperrors.BadRequestError(
			fmt.Errorf("unknown modality %q", modality), "unknown capture modality")
	}
	device, ok := s.devices[modality]
	if !ok {
		return nil, apperrors.DeviceUnavailableError(
			fmt.Errorf("no device configured for %s", modality),
			fmt.Sprintf("no %s device configured", modality))
	}

	release, err := s.guard.Acquire(modality)
	if err != nil {
		metrics.DeviceBusyTotal.WithLabelValues(string(modality)).Inc()
		return nil, err
	}
	defer release()

	start := time.Now()
	flow := capture.NewFlow(modality)
	if err := flow.MarkCapturing(); err != nil {
		return nil, err
	}

	// Scanner bridges hold the physical device across calls. Probe the
	// session first so "scanner unplugged" surfaces as device-unavailable
	// instead of a failed acquisition.
	sessionDevice, hasSession := device.(bridge.SessionDevice)
	if hasSession {
		if _, err := sessionDevice.Info(ctx); err != nil {
			return nil, s.failFlow(ctx, flow, "capture", err)
		}
	}

	result, err := device.Capture(ctx, opts)
	if err != nil {
		metrics.CapturesTotal.WithLabelValues(string(modality), "failed").Inc()
		return nil, s.failFlow(ctx, flow, "capture", err)
	}
	if err := flow.MarkCaptured(result); err != nil {
		return nil, err
	}

	// Device teardown never invalidates the template already captured.
	if hasSession && sessionDevice.ReleasePolicy() == config.ReleaseAfterCapture {
		if err := sessionDevice.Release(ctx); err != nil {
			s.logger.Warn("Failed to release scanner after capture",
				zap.String("modality", string(modality)),
				zap.Error(err),
			)
		}
	}

	if err := s.sessions.Put(ctx, flow); err != nil {
		return nil, err
	}

	metrics.CapturesTotal.WithLabelValues(string(modality), "success").Inc()
	metrics.CaptureDuration.WithLabelValues(string(modality)).Observe(time.Since(start).Seconds())
	return flow, nil
}

func (s *service) Enroll(ctx context.Context, flowID, personID string) (*biometric.EnrollmentResult, error) {
	flow, err := s.beginSubmission(ctx, flowID)
	if err != nil {
		return nil, err
	}

	if _, err := s.persons.Get(ctx, personID); err != nil {
		if errors.Is(err, subjectstore.ErrPersonNotFound) {
			return nil, s.failFlow(ctx, flow, "enroll", apperrors.ResourceNotFoundError(err, "person not found"))
		}
		return nil, s.failFlow(ctx, flow, "enroll", apperrors.GeneralError(err))
	}

	// Seal the template before it leaves the flow; the audit record never
	// sees plaintext.
	sealed, err := s.cipher.Encrypt(flow.Modality, []byte(flow.Template))
	if err != nil {
		return nil, s.failFlow(ctx, flow, "enroll", apperrors.GeneralError(err))
	}

	start := time.Now()
	result, err := s.submitter.Enroll(ctx, biometric.EnrollmentRequest{
		Template: flow.Template,
		Type:     flow.Modality,
		PersonID: personID,
	})
	metrics.SubmissionDuration.WithLabelValues("enroll", string(flow.Modality)).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.EnrollmentsTotal.WithLabelValues(string(flow.Modality), "failed").Inc()
		return nil, s.failFlow(ctx, flow, "enroll", err)
	}

	record := &enrollment.Record{
		ID:                uuid.NewString(),
		PersonID:          personID,
		Modality:          flow.Modality,
		ReferenceID:       result.ReferenceID,
		EncryptedTemplate: sealed,
		Quality:           flow.Quality,
		DeviceSerial:      flow.DeviceSerial,
		CreatedAt:         time.Now().UTC(),
	}
	if err := s.enrollments.Save(ctx, record); err != nil {
		// The matching service already accepted the template; losing the
		// local audit row is logged, not surfaced as an enrollment failure.
		s.logger.Error("Failed to save enrollment audit record",
			zap.String("person_id", personID),
			zap.String("modality", string(flow.Modality)),
			zap.Error(err),
		)
	}

	if err := s.finishFlow(ctx, flow); err != nil {
		return nil, err
	}
	metrics.EnrollmentsTotal.WithLabelValues(string(flow.Modality), "success").Inc()
	return result, nil
}

func (s *service) Identify(ctx context.Context, flowID string) (*biometric.IdentificationResult, error) {
	flow, err := s.beginSubmission(ctx, flowID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := s.submitter.Identify(ctx, biometric.IdentificationRequest{
		Template: flow.Template,
		Type:     flow.Modality,
	})
	metrics.SubmissionDuration.WithLabelValues("identify", string(flow.Modality)).Observe(time.Since(start).Seconds())
	if err != nil {
		outcome := "error"
		if apperrors.Is(err, apperrors.CategoryNoMatch) {
			outcome = "no_match"
		}
		metrics.IdentificationsTotal.WithLabelValues(string(flow.Modality), outcome).Inc()
		return nil, s.failFlow(ctx, flow, "identify", err)
	}

	if err := s.finishFlow(ctx, flow); err != nil {
		return nil, err
	}
	metrics.IdentificationsTotal.WithLabelValues(string(flow.Modality), "match").Inc()
	return result, nil
}

func (s *service) GetFlow(ctx context.Context, flowID string) (*capture.Flow, error) {
	return s.sessions.Get(ctx, flowID)
}

func (s *service) Devices(ctx context.Context) []DeviceStatus {
	statuses := make([]DeviceStatus, 0, len(s.devices))
	for _, modality := range []biometric.Modality{
		biometric.ModalityFingerprint,
		biometric.ModalityIris,
		biometric.ModalityFace,
	} {
		device, ok := s.devices[modality]
		if !ok {
			continue
		}

		status := DeviceStatus{Modality: modality, Status: "ready"}
		if sessionDevice, hasSession := device.(bridge.SessionDevice); hasSession {
			status.SessionManaged = true
			info, err := sessionDevice.Info(ctx)
			if err != nil {
				status.Status = "unavailable"
				status.Error = err.Error()
			} else {
				status.Model = info.Model
				status.Serial = info.Serial
				if info.Status != "" {
					status.Status = info.Status
				}
			}
		}
		statuses = append(statuses, status)
	}
	return statuses
}

func (s *service) Close(ctx context.Context) error {
	for modality, device := range s.devices {
		sessionDevice, hasSession := device.(bridge.SessionDevice)
		if !hasSession || sessionDevice.ReleasePolicy() != config.ReleaseOnClose {
			continue
		}
		if err := sessionDevice.Release(ctx); err != nil {
			s.logger.Warn("Failed to release scanner on shutdown",
				zap.String("modality", string(modality)),
				zap.Error(err),
			)
		}
	}
	return nil
}

// beginSubmission claims a flow for submission. The claim is a single
// conditional update in the session store, so two overlapping submits for
// the same flow resolve to one winner even across gateway instances; the
// loser gets a conflict. A flow that was already submitted, or that
// expired, cannot begin again.
func (s *service) beginSubmission(ctx context.Context, flowID string) (*capture.Flow, error) {
	return s.sessions.Consume(ctx, flowID)
}

func (s *service) finishFlow(ctx context.Context, flow *capture.Flow) error {
	if err := flow.MarkDone(); err != nil {
		return err
	}
	return s.sessions.Put(ctx, flow)
}

// failFlow records cause on the flow, persists it, and returns cause so
// callers can propagate the original error unchanged.
func (s *service) failFlow(ctx context.Context, flow *capture.Flow, component string, cause error) error {
	category := "unknown"
	var svcErr *apperrors.ServiceError
	if errors.As(cause, &svcErr) {
		category = svcErr.Category.String()
	}
	metrics.ErrorsTotal.WithLabelValues(component, category).Inc()

	if err := flow.MarkFailed(cause); err != nil {
		s.logger.Warn("Failed to mark flow failed", zap.String("flow_id", flow.ID), zap.Error(err))
	} else if err := s.sessions.Put(ctx, flow); err != nil {
		s.logger.Warn("Failed to persist failed flow", zap.String("flow_id", flow.ID), zap.Error(err))
	}
	return cause
}
