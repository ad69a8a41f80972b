package subjectstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/openjms/biometric-gateway/pkg/subject"
)

// PersonDao is a data access object that maps directly to the 'persons' table in PostgreSQL.
type PersonDao struct {
	bun.BaseModel `bun:"table:persons,alias:p"`
	ID            string     `bun:"id,pk,type:uuid"`
	Kind          string     `bun:"kind,notnull,type:varchar(16)"`
	FirstName     string     `bun:"first_name,notnull,type:varchar(255)"`
	LastName      string     `bun:"last_name,notnull,type:varchar(255)"`
	Birthdate     *time.Time `bun:"birthdate"`
	CreatedAt     time.Time  `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt     time.Time  `bun:"updated_at,nullzero,default:current_timestamp"`
}

// toPersonDao converts a subject.Person to PersonDao.
func toPersonDao(person *subject.Person) *PersonDao {
	return &PersonDao{
		ID:        person.ID,
		Kind:      string(person.Kind),
		FirstName: person.FirstName,
		LastName:  person.LastName,
		Birthdate: person.Birthdate,
		CreatedAt: person.CreatedAt,
		UpdatedAt: person.UpdatedAt,
	}
}

// toPerson converts a PersonDao to subject.Person.
func toPerson(dao *PersonDao) *subject.Person {
	return &subject.Person{
		ID:        dao.ID,
		Kind:      subject.Kind(dao.Kind),
		FirstName: dao.FirstName,
		LastName:  dao.LastName,
		Birthdate: dao.Birthdate,
		CreatedAt: dao.CreatedAt,
		UpdatedAt: dao.UpdatedAt,
	}
}
