// Package enrollmentstore is the PostgreSQL implementation of the
// enrollment audit store.
package enrollmentstore

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/openjms/biometric-gateway/pkg/enrollment"
)

type pgStore struct {
	db *bun.DB
}

var _ enrollment.Store = (*pgStore)(nil)

// NewStore creates a new postgres implementation of the enrollment store
func NewStore(db *bun.DB) *pgStore {
	return &pgStore{db: db}
}

func (s *pgStore) Save(ctx context.Context, record *enrollment.Record) error {
	dao := toRecordDao(record)

	_, err := s.db.NewInsert().
		Model(dao).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save enrollment: %w", err)
	}
	return nil
}

func (s *pgStore) ListByPerson(ctx context.Context, personID string) ([]*enrollment.Record, error) {
	var daos []RecordDao
	err := s.db.NewSelect().
		Model(&daos).
		Where("person_id = ?", personID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}

	records := make([]*enrollment.Record, len(daos))
	for i := range daos {
		records[i] = toRecord(&daos[i])
	}
	return records, nil
}
