package enrollmentstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/openjms/biometric-gateway/pkg/biometric"
	"github.com/openjms/biometric-gateway/pkg/enrollment"
)

// RecordDao is a data access object that maps directly to the 'enrollments' table in PostgreSQL.
type RecordDao struct {
	bun.BaseModel     `bun:"table:enrollments,alias:e"`
	ID                string    `bun:"id,pk,type:uuid"`
	PersonID          string    `bun:"person_id,notnull,type:uuid"`
	Modality          string    `bun:"modality,notnull,type:varchar(16)"`
	ReferenceID       *string   `bun:"reference_id,type:varchar(255)"`
	EncryptedTemplate string    `bun:"encrypted_template,notnull,type:text"`
	Quality           *int      `bun:"quality"`
	DeviceSerial      *string   `bun:"device_serial,type:varchar(128)"`
	CreatedAt         time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

// toRecordDao converts an enrollment.Record to RecordDao.
func toRecordDao(record *enrollment.Record) *RecordDao {
	dao := &RecordDao{
		ID:                record.ID,
		PersonID:          record.PersonID,
		Modality:          string(record.Modality),
		EncryptedTemplate: record.EncryptedTemplate,
		CreatedAt:         record.CreatedAt,
	}
	if record.ReferenceID != "" {
		dao.ReferenceID = &record.ReferenceID
	}
	if record.Quality != 0 {
		dao.Quality = &record.Quality
	}
	if record.DeviceSerial != "" {
		dao.DeviceSerial = &record.DeviceSerial
	}
	return dao
}

// toRecord converts a RecordDao to enrollment.Record.
func toRecord(dao *RecordDao) *enrollment.Record {
	record := &enrollment.Record{
		ID:                dao.ID,
		PersonID:          dao.PersonID,
		Modality:          biometric.Modality(dao.Modality),
		EncryptedTemplate: dao.EncryptedTemplate,
		CreatedAt:         dao.CreatedAt,
	}
	if dao.ReferenceID != nil {
		record.ReferenceID = *dao.ReferenceID
	}
	if dao.Quality != nil {
		record.Quality = *dao.Quality
	}
	if dao.DeviceSerial != nil {
		record.DeviceSerial = *dao.DeviceSerial
	}
	return record
}
