// Package visitorstore is the PostgreSQL implementation of the visit log store.
package visitorstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/openjms/biometric-gateway/pkg/visitor"
)

// ErrVisitNotFound is returned when no visit matches the lookup.
var ErrVisitNotFound = errors.New("visit not found")

type pgStore struct {
	db *bun.DB
}

var _ visitor.Store = (*pgStore)(nil)

// NewStore creates a new postgres implementation of the visit log store
func NewStore(db *bun.DB) *pgStore {
	return &pgStore{db: db}
}

func (s *pgStore) Create(ctx context.Context, visit *visitor.Visit) error {
	dao := toVisitDao(visit)

	_, err := s.db.NewInsert().
		Model(dao).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create visit: %w", err)
	}
	return nil
}

func (s *pgStore) Get(ctx context.Context, id string) (*visitor.Visit, error) {
	dao := new(VisitDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVisitNotFound
		}
		return nil, fmt.Errorf("failed to get visit: %w", err)
	}
	return toVisit(dao), nil
}

func (s *pgStore) FindByQRCode(ctx context.Context, qrCode string) (*visitor.Visit, error) {
	dao := new(VisitDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("qr_code = ?", qrCode).
		Order("checked_in_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVisitNotFound
		}
		return nil, fmt.Errorf("failed to find visit by qr code: %w", err)
	}
	return toVisit(dao), nil
}

func (s *pgStore) ListActive(ctx context.Context) ([]*visitor.Visit, error) {
	var daos []VisitDao
	err := s.db.NewSelect().
		Model(&daos).
		Where("checked_out_at IS NULL").
		Order("checked_in_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active visits: %w", err)
	}

	visits := make([]*visitor.Visit, len(daos))
	for i := range daos {
		visits[i] = toVisit(&daos[i])
	}
	return visits, nil
}

func (s *pgStore) Update(ctx context.Context, visit *visitor.Visit) error {
	dao := toVisitDao(visit)

	res, err := s.db.NewUpdate().
		Model(dao).
		Column("purpose", "checked_out_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update visit: %w", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return ErrVisitNotFound
	}
	return nil
}
