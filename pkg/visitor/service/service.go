// Package service implements the visit log: checking visitors in and out
// of the facility and resolving the QR code printed on a visitor pass.
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
	"github.com/openjms/biometric-gateway/pkg/subject"
	"github.com/openjms/biometric-gateway/pkg/subjectstore"
	"github.com/openjms/biometric-gateway/pkg/visitor"
	"github.com/openjms/biometric-gateway/pkg/visitorstore"
)

// CheckInRequest opens a new visit.
type CheckInRequest struct {
	VisitorID string `json:"visitor_id"`
	PDLID     string `json:"pdl_id"`
	Purpose   string `json:"purpose,omitempty"`
}

// Service manages the visit log.
type Service interface {
	// CheckIn opens a visit and issues the pass QR code.
	CheckIn(ctx context.Context, req CheckInRequest) (*visitor.Visit, error)

	// CheckOutByQRCode closes the visit carrying the scanned pass code.
	// A pass that was already used to check out is rejected.
	CheckOutByQRCode(ctx context.Context, qrCode string) (*visitor.Visit, error)

	// LookupByQRCode resolves a scanned pass code to its visit.
	LookupByQRCode(ctx context.Context, qrCode string) (*visitor.Visit, error)

	// ListActive returns visitors currently inside the facility.
	ListActive(ctx context.Context) ([]*visitor.Visit, error)
}

type service struct {
	visits  visitor.Store
	persons subject.Store
	logger  *zap.Logger
}

// New creates the visit log service.
func New(visits visitor.Store, persons subject.Store, logger *zap.Logger) Service {
	return &service{
		visits:  visits,
		persons: persons,
		logger:  logger,
	}
}

func (s *service) CheckIn(ctx context.Context, req CheckInRequest) (*visitor.Visit, error) {
	if req.VisitorID == "" || req.PDLID == "" {
		return nil, apperrors.BadRequestError(nil, "visitor_id and pdl_id are required")
	}

	if err := s.requireKind(ctx, req.VisitorID, subject.KindVisitor); err != nil {
		return nil, err
	}
	if err := s.requireKind(ctx, req.PDLID, subject.KindPDL); err != nil {
		return nil, err
	}

	visit := &visitor.Visit{
		ID:          uuid.NewString(),
		VisitorID:   req.VisitorID,
		PDLID:       req.PDLID,
		QRCode:      uuid.NewString(),
		Purpose:     req.Purpose,
		CheckedInAt: time.Now().UTC(),
	}
	if err := s.visits.Create(ctx, visit); err != nil {
		return nil, apperrors.GeneralError(err)
	}

	metrics.VisitsTotal.WithLabelValues("check_in").Inc()
	return visit, nil
}

func (s *service) CheckOutByQRCode(ctx context.Context, qrCode string) (*visitor.Visit, error) {
	visit, err := s.LookupByQRCode(ctx, qrCode)
	if err != nil {
		return nil, err
	}
	if !visit.Active() {
		return nil, apperrors.ConflictError(
			fmt.Errorf("visit %s already checked out", visit.ID),
			"visitor already checked out")
	}

	now := time.Now().UTC()
	visit.CheckedOutAt = &now
	if err := s.visits.Update(ctx, visit); err != nil {
		return nil, apperrors.GeneralError(err)
	}

	metrics.VisitsTotal.WithLabelValues("check_out").Inc()
	return visit, nil
}

func (s *service) LookupByQRCode(ctx context.Context, qrCode string) (*visitor.Visit, error) {
	if qrCode == "" {
		return nil, apperrors.BadRequestError(nil, "qr code is required")
	}

	visit, err := s.visits.FindByQRCode(ctx, qrCode)
	if err != nil {
		if errors.Is(err, visitorstore.ErrVisitNotFound) {
			return nil, apperrors.ResourceNotFoundError(err, "no visit found for this pass")
		}
		return nil, apperrors.GeneralError(err)
	}
	return visit, nil
}

func (s *service) ListActive(ctx context.Context) ([]*visitor.Visit, error) {
	visits, err := s.visits.ListActive(ctx)
	if err != nil {
		return nil, apperrors.GeneralError(err)
	}
	return visits, nil
}

func (s *service) requireKind(ctx context.Context, personID string, kind subject.Kind) error {
	person, err := s.persons.Get(ctx, personID)
	if err != nil {
		if errors.Is(err, subjectstore.ErrPersonNotFound) {
			return apperrors.ResourceNotFoundError(err, fmt.Sprintf("%s record not found", kind))
		}
		return apperrors.GeneralError(err)
	}
	if person.Kind != kind {
		return apperrors.BadRequestError(
			fmt.Errorf("person %s is %s, expected %s", personID, person.Kind, kind),
			fmt.Sprintf("person is not a %s", kind))
	}
	return nil
}
