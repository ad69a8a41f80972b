// Package capture models a capture-and-submit flow: one attempt to acquire
// a biometric sample from a device and submit it for enrollment or
// identification. Each flow is a small state machine persisted in a session
// store so the capture step and the submit step can arrive as separate
// HTTP requests.
package capture

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/openjms/biometric-gateway/pkg/app/errors"
	"github.com/openjms/biometric-gateway/pkg/biometric"
	"github.com/openjms/biometric-gateway/pkg/bridge"
)

// State is a capture flow's position in its lifecycle.
type State string

const (
	StateIdle       State = "idle"
	StateCapturing  State = "capturing"
	StateCaptured   State = "captured"
	StateSubmitting State = "submitting"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// validTransitions lists the forward edges of the flow lifecycle. Every
// non-terminal state may additionally transition to StateFailed.
var validTransitions = map[State][]State{
	StateIdle:       {StateCapturing},
	StateCapturing:  {StateCaptured},
	StateCaptured:   {StateSubmitting},
	StateSubmitting: {StateDone},
}

// Flow is one capture-and-submit attempt. Done and Failed are terminal:
// a failed attempt is restarted from a fresh flow, never resumed.
type Flow struct {
	ID           string             `json:"id"`
	Modality     biometric.Modality `json:"modality"`
	State        State              `json:"state"`
	Template     string             `json:"template,omitempty"`
	Quality      int                `json:"quality,omitempty"`
	DeviceSerial string             `json:"device_serial,omitempty"`
	Error        string             `json:"error,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
	FinishedAt   *time.Time         `json:"finished_at,omitempty"`
}

// NewFlow creates an idle flow for the given modality.
func NewFlow(modality biometric.Modality) *Flow {
	now := time.Now().UTC()
	return &Flow{
		ID:        uuid.NewString(),
		Modality:  modality,
		State:     StateIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Terminal reports whether the flow can no longer change state.
func (f *Flow) Terminal() bool {
	return f.State == StateDone || f.State == StateFailed
}

func (f *Flow) transition(to State) error {
	if f.Terminal() {
		return apperrors.ConflictError(
			fmt.Errorf("flow %s is already %s", f.ID, f.State),
			fmt.Sprintf("capture flow already %s", f.State))
	}
	if to == StateFailed {
		f.setState(to)
		return nil
	}
	for _, next := range validTransitions[f.State] {
		if next == to {
			f.setState(to)
			return nil
		}
	}
	return apperrors.ConflictError(
		fmt.Errorf("invalid flow transition %s -> %s", f.State, to),
		fmt.Sprintf("capture flow is %s, cannot move to %s", f.State, to))
}

func (f *Flow) setState(to State) {
	f.State = to
	f.UpdatedAt = time.Now().UTC()
	if f.Terminal() {
		t := f.UpdatedAt
		f.FinishedAt = &t
	}
}

// MarkCapturing moves the flow from idle to capturing.
func (f *Flow) MarkCapturing() error {
	return f.transition(StateCapturing)
}

// MarkCaptured records a successful acquisition.
func (f *Flow) MarkCaptured(result *bridge.CaptureResult) error {
	if err := f.transition(StateCaptured); err != nil {
		return err
	}
	f.Template = result.Template
	f.Quality = result.Quality
	f.DeviceSerial = result.DeviceSerial
	return nil
}

// MarkSubmitting moves the flow into submission. A flow can be submitted at
// most once: once it leaves captured it never returns.
func (f *Flow) MarkSubmitting() error {
	return f.transition(StateSubmitting)
}

// MarkDone records a successful submission.
func (f *Flow) MarkDone() error {
	return f.transition(StateDone)
}

// MarkFailed records the failure that ended this attempt. It is valid from
// any non-terminal state.
func (f *Flow) MarkFailed(cause error) error {
	if err := f.transition(StateFailed); err != nil {
		return err
	}
	if cause != nil {
		f.Error = cause.Error()
	}
	return nil
}
