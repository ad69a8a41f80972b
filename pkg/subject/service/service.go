// Package service implements person record management: the minimal CRUD
// surface needed to give enrollments and visits a subject to reference.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/openjms/biometric-gateway/pkg/app/errors"
	"github.com/openjms/biometric-gateway/pkg/enrollment"
	"github.com/openjms/biometric-gateway/pkg/subject"
	"github.com/openjms/biometric-gateway/pkg/subjectstore"
)

// CreateRequest carries the fields for a new person record.
type CreateRequest struct {
	Kind      subject.Kind `json:"kind"`
	FirstName string       `json:"first_name"`
	LastName  string       `json:"last_name"`
	Birthdate *time.Time   `json:"birthdate,omitempty"`
}

// UpdateRequest carries the mutable fields of a person record.
type UpdateRequest struct {
	Kind      subject.Kind `json:"kind"`
	FirstName string       `json:"first_name"`
	LastName  string       `json:"last_name"`
	Birthdate *time.Time   `json:"birthdate,omitempty"`
}

// Service manages person records.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*subject.Person, error)
	Get(ctx context.Context, id string) (*subject.Person, error)
	List(ctx context.Context, kind subject.Kind) ([]*subject.Person, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*subject.Person, error)
	Delete(ctx context.Context, id string) error
	// Enrollments returns the person's enrollment audit records.
	Enrollments(ctx context.Context, id string) ([]*enrollment.Record, error)
}

type service struct {
	store       subject.Store
	enrollments enrollment.Store
	logger      *zap.Logger
}

// New creates the person service.
func New(store subject.Store, enrollments enrollment.Store, logger *zap.Logger) Service {
	return &service{
		store:       store,
		enrollments: enrollments,
		logger:      logger,
	}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*subject.Person, error) {
	if err := validatePerson(req.Kind, req.FirstName, req.LastName); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	person := &subject.Person{
		ID:        uuid.NewString(),
		Kind:      req.Kind,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Birthdate: req.Birthdate,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, person); err != nil {
		return nil, apperrors.GeneralError(err)
	}

	s.logger.Info("Person created",
		zap.String("person_id", person.ID),
		zap.String("kind", string(person.Kind)),
	)
	return person, nil
}

func (s *service) Get(ctx context.Context, id string) (*subject.Person, error) {
	person, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, subjectstore.ErrPersonNotFound) {
			return nil, apperrors.ResourceNotFoundError(err, "person not found")
		}
		return nil, apperrors.GeneralError(err)
	}
	return person, nil
}

func (s *service) List(ctx context.Context, kind subject.Kind) ([]*subject.Person, error) {
	if kind != "" && !kind.Valid() {
		return nil, apperrors.BadRequestError(
			fmt.Errorf("unknown kind %q", kind), "unknown person kind")
	}

	persons, err := s.store.List(ctx, kind)
	if err != nil {
		return nil, apperrors.GeneralError(err)
	}
	return persons, nil
}

func (s *service) Update(ctx context.Context, id string, req UpdateRequest) (*subject.Person, error) {
	if err := validatePerson(req.Kind, req.FirstName, req.LastName); err != nil {
		return nil, err
	}

	person, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	person.Kind = req.Kind
	person.FirstName = req.FirstName
	person.LastName = req.LastName
	person.Birthdate = req.Birthdate
	if err := s.store.Update(ctx, person); err != nil {
		if errors.Is(err, subjectstore.ErrPersonNotFound) {
			return nil, apperrors.ResourceNotFoundError(err, "person not found")
		}
		return nil, apperrors.GeneralError(err)
	}
	return person, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return apperrors.GeneralError(err)
	}

	s.logger.Info("Person deleted", zap.String("person_id", id))
	return nil
}

func (s *service) Enrollments(ctx context.Context, id string) ([]*enrollment.Record, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	records, err := s.enrollments.ListByPerson(ctx, id)
	if err != nil {
		return nil, apperrors.GeneralError(err)
	}
	return records, nil
}

func validatePerson(kind subject.Kind, firstName, lastName string) error {
	if !kind.Valid() {
		return apperrors.BadRequestError(
			fmt.Errorf("unknown kind %q", kind), "unknown person kind")
	}
	if firstName == "" || lastName == "" {
		return apperrors.BadRequestError(nil, "first_name and last_name are required")
	}
	return nil
}
