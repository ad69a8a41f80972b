// Package subjectstore is the PostgreSQL implementation of the person store.
package subjectstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/openjms/biometric-gateway/pkg/subject"
)

// ErrPersonNotFound is returned when no person matches the lookup.
var ErrPersonNotFound = errors.New("person not found")

type pgStore struct {
	db *bun.DB
}

var _ subject.Store = (*pgStore)(nil)

// NewStore creates a new postgres implementation of the person store
func NewStore(db *bun.DB) *pgStore {
	return &pgStore{db: db}
}

func (s *pgStore) Create(ctx context.Context, person *subject.Person) error {
	dao := toPersonDao(person)

	_, err := s.db.NewInsert().
		Model(dao).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create person: %w", err)
	}
	return nil
}

func (s *pgStore) Get(ctx context.Context, id string) (*subject.Person, error) {
	dao := new(PersonDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPersonNotFound
		}
		return nil, fmt.Errorf("failed to get person: %w", err)
	}
	return toPerson(dao), nil
}

func (s *pgStore) List(ctx context.Context, kind subject.Kind) ([]*subject.Person, error) {
	var daos []PersonDao
	query := s.db.NewSelect().Model(&daos).Order("created_at DESC")
	if kind != "" {
		query = query.Where("kind = ?", string(kind))
	}

	if err := query.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list persons: %w", err)
	}

	persons := make([]*subject.Person, len(daos))
	for i := range daos {
		persons[i] = toPerson(&daos[i])
	}
	return persons, nil
}

func (s *pgStore) Update(ctx context.Context, person *subject.Person) error {
	dao := toPersonDao(person)

	res, err := s.db.NewUpdate().
		Model(dao).
		Column("kind", "first_name", "last_name", "birthdate").
		Set("updated_at = NOW()").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update person: %w", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return ErrPersonNotFound
	}
	return nil
}

func (s *pgStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.NewDelete().
		Model((*PersonDao)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete person: %w", err)
	}
	return nil
}
