package bridge

import (
	"fmt"
	"sync"

	apperrors "github.com/openjms/biometric-gateway/pkg/app/errors"
	"github.com/openjms/biometric-gateway/pkg/biometric"
)

// Guard serializes access to the physical capture devices. The bridges
// themselves do nothing to stop two overlapping capture calls from racing
// against the same scanner, so the gateway enforces single-flight per
// device: a second capture attempt while one is in progress is rejected
// immediately rather than queued.
type Guard struct {
	mu    sync.Mutex
	inUse map[biometric.Modality]bool
}

// NewGuard creates an empty device guard.
func NewGuard() *Guard {
	return &Guard{
		inUse: make(map[biometric.Modality]bool),
	}
}

// Acquire claims the device for one capture attempt. It returns a release
// function to be called when the attempt finishes, or a device-busy error
// if the device is already claimed. The release function is idempotent.
func (g *Guard) Acquire(modality biometric.Modality) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.inUse[modality] {
		return nil, apperrors.DeviceBusyError(nil,
			fmt.Sprintf("%s device is busy with another capture", modality))
	}
	g.inUse[modality] = true

	var once sync.Once
	release := func() {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			delete(g.inUse, modality)
		})
	}
	return release, nil
}
