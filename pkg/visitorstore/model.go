package visitorstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/openjms/biometric-gateway/pkg/visitor"
)

// VisitDao is a data access object that maps directly to the 'visitor_logs' table in PostgreSQL.
type VisitDao struct {
	bun.BaseModel `bun:"table:visitor_logs,alias:v"`
	ID            string     `bun:"id,pk,type:uuid"`
	VisitorID     string     `bun:"visitor_id,notnull,type:uuid"`
	PDLID         string     `bun:"pdl_id,notnull,type:uuid"`
	QRCode        string     `bun:"qr_code,notnull,type:varchar(64)"`
	Purpose       *string    `bun:"purpose,type:varchar(500)"`
	CheckedInAt   time.Time  `bun:"checked_in_at,nullzero,default:current_timestamp"`
	CheckedOutAt  *time.Time `bun:"checked_out_at"`
}

// toVisitDao converts a visitor.Visit to VisitDao.
func toVisitDao(visit *visitor.Visit) *VisitDao {
	dao := &VisitDao{
		ID:           visit.ID,
		VisitorID:    visit.VisitorID,
		PDLID:        visit.PDLID,
		QRCode:       visit.QRCode,
		CheckedInAt:  visit.CheckedInAt,
		CheckedOutAt: visit.CheckedOutAt,
	}
	if visit.Purpose != "" {
		dao.Purpose = &visit.Purpose
	}
	return dao
}

// toVisit converts a VisitDao to visitor.Visit.
func toVisit(dao *VisitDao) *visitor.Visit {
	visit := &visitor.Visit{
		ID:           dao.ID,
		VisitorID:    dao.VisitorID,
		PDLID:        dao.PDLID,
		QRCode:       dao.QRCode,
		CheckedInAt:  dao.CheckedInAt,
		CheckedOutAt: dao.CheckedOutAt,
	}
	if dao.Purpose != nil {
		visit.Purpose = *dao.Purpose
	}
	return visit
}
