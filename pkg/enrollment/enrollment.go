// Package enrollment defines the audit record the gateway keeps for every
// successful template enrollment. The matching service owns the searchable
// template gallery; the gateway's copy exists so the facility can answer
// "who was enrolled, when, from which device" without asking the matcher,
// and it is stored encrypted.
package enrollment

import (
	"context"
	"time"

	"github.com/openjms/biometric-gateway/pkg/biometric"
)

// Record is one successful enrollment.
type Record struct {
	ID string `json:"id"`
	// PersonID references the enrolled subject.
	PersonID string             `json:"person_id"`
	Modality biometric.Modality `json:"modality"`
	// ReferenceID is the matching service's identifier for the stored template.
	ReferenceID string `json:"reference_id,omitempty"`
	// EncryptedTemplate is the captured template sealed by the template
	// cipher. Never populated with plaintext.
	EncryptedTemplate string    `json:"-"`
	Quality           int       `json:"quality,omitempty"`
	DeviceSerial      string    `json:"device_serial,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// Store persists enrollment records.
type Store interface {
	Save(ctx context.Context, record *Record) error
	ListByPerson(ctx context.Context, personID string) ([]*Record, error)
}
