// Package visitor defines the visit log: the record of a visitor entering
// and leaving the facility. Each active visit carries a QR code printed on
// the visitor's pass; scanning the code at the exit gate looks the visit up
// and closes it.
package visitor

import (
	"context"
	"time"
)

// Visit is one visitor's stay, from check-in to check-out.
type Visit struct {
	ID string `json:"id"`
	// VisitorID references the visiting person record.
	VisitorID string `json:"visitor_id"`
	// PDLID references the detainee being visited.
	PDLID string `json:"pdl_id"`
	// QRCode is the pass code issued at check-in, unique among active visits.
	QRCode       string     `json:"qr_code"`
	Purpose      string     `json:"purpose,omitempty"`
	CheckedInAt  time.Time  `json:"checked_in_at"`
	CheckedOutAt *time.Time `json:"checked_out_at,omitempty"`
}

// Active reports whether the visitor is still inside the facility.
func (v *Visit) Active() bool {
	return v.CheckedOutAt == nil
}

// Store persists visit logs.
type Store interface {
	Create(ctx context.Context, visit *Visit) error
	Get(ctx context.Context, id string) (*Visit, error)
	// FindByQRCode returns the visit carrying the given pass code.
	FindByQRCode(ctx context.Context, qrCode string) (*Visit, error)
	// ListActive returns visits that have not checked out yet.
	ListActive(ctx context.Context) ([]*Visit, error)
	Update(ctx context.Context, visit *Visit) error
}
