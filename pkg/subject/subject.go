// Package subject defines the person records biometric templates are
// enrolled against: detainees (PDL), visitors, and facility personnel.
package subject

import (
	"context"
	"time"
)

// Kind classifies a person record.
type Kind string

const (
	// KindPDL is a Person Deprived of Liberty, the facility's term for a
	// detainee record subject.
	KindPDL       Kind = "pdl"
	KindVisitor   Kind = "visitor"
	KindPersonnel Kind = "personnel"
)

// Valid reports whether k is a known person kind.
func (k Kind) Valid() bool {
	switch k {
	case KindPDL, KindVisitor, KindPersonnel:
		return true
	}
	return false
}

// Person is a record biometric templates can be enrolled against.
type Person struct {
	ID        string     `json:"id"`
	Kind      Kind       `json:"kind"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Birthdate *time.Time `json:"birthdate,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Store persists person records.
type Store interface {
	Create(ctx context.Context, person *Person) error
	Get(ctx context.Context, id string) (*Person, error)
	// List returns persons of the given kind; an empty kind returns all.
	List(ctx context.Context, kind Kind) ([]*Person, error)
	Update(ctx context.Context, person *Person) error
	Delete(ctx context.Context, id string) error
}
