// Package bridge contains clients for the hardware capture devices: the
// local fingerprint and iris scanner bridges and the remote face-capture
// service. All three are exposed behind a uniform Device interface; the
// scanner bridges additionally carry an init/release session lifecycle,
// which face capture does not have.
package bridge

import (
	"context"
	"time"

	"github.com/openjms/biometric-gateway/pkg/biometric"
	"github.com/openjms/biometric-gateway/pkg/config"
)

// CaptureOptions carries modality-specific capture parameters.
type CaptureOptions struct {
	// Fingers selects which finger positions the fingerprint bridge should
	// acquire. Ignored by the iris and face devices.
	Fingers []string `json:"fingers,omitempty"`
}

// CaptureResult is a successfully acquired biometric sample.
type CaptureResult struct {
	Modality     biometric.Modality `json:"modality"`
	Template     string             `json:"template"`
	Quality      int                `json:"quality,omitempty"`
	DeviceSerial string             `json:"device_serial,omitempty"`
	CapturedAt   time.Time          `json:"captured_at"`
}

// DeviceInfo describes a scanner bridge's device/session state.
type DeviceInfo struct {
	Model  string `json:"model,omitempty"`
	Serial string `json:"serial,omitempty"`
	Status string `json:"status,omitempty"`
}

// Device is a biometric capture source.
type Device interface {
	// Modality reports which kind of sample this device produces.
	Modality() biometric.Modality

	// Capture performs one acquisition and returns the resulting template.
	Capture(ctx context.Context, opts CaptureOptions) (*CaptureResult, error)
}

// SessionDevice is a Device with an explicit device session: the bridge
// holds the physical scanner between calls and must eventually be told to
// release it. Face capture does not implement this interface; callers that
// need the lifecycle must check for it rather than assume it.
type SessionDevice interface {
	Device

	// Info queries the bridge's device/session descriptor, initializing the
	// device if the bridge requires it.
	Info(ctx context.Context) (*DeviceInfo, error)

	// Release tells the bridge to let go of the physical device.
	Release(ctx context.Context) error

	// ReleasePolicy reports when the owning flow should call Release.
	ReleasePolicy() config.ReleasePolicy
}
