package capture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/openjms/biometric-gateway/internal/metrics"
	apperrors "github.com/openjms/biometric-gateway/pkg/app/errors"
)

// SessionStore persists in-progress capture flows between the capture
// request and the submit request. Entries expire after the configured TTL:
// a captured template the operator never submits must not outlive the
// session window.
type SessionStore interface {
	// Put stores or replaces a flow.
	Put(ctx context.Context, flow *Flow) error

	// Get retrieves a flow by ID. An expired or unknown ID returns a
	// resource-not-found error.
	Get(ctx context.Context, id string) (*Flow, error)

	// Consume atomically moves a captured flow into submitting and persists
	// it. When two submits race for the same flow, exactly one wins; the
	// loser gets a conflict error. Callers must use this, not Get+Put, to
	// claim a flow for submission.
	Consume(ctx context.Context, id string) (*Flow, error)

	// Delete removes a flow. Deleting an unknown ID is not an error.
	Delete(ctx context.Context, id string) error
}

type memoryEntry struct {
	flow      Flow
	expiresAt time.Time
}

// MemoryStore is an in-process SessionStore used for single-instance
// deployments and tests. Entries are pruned lazily on access.
//
// The store also owns the active-flows gauge: an entry counts while it sits
// in captured state, and is uncounted when it is consumed, replaced,
// deleted, or pruned on expiry.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

var _ SessionStore = (*MemoryStore)(nil)

// NewMemoryStore creates a memory-backed session store with the given TTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Put implements SessionStore. The flow is copied so later mutation by the
// caller cannot bypass the store.
func (s *MemoryStore) Put(_ context.Context, flow *Flow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.entries[flow.ID]; ok {
		s.uncount(&prev.flow)
	}
	s.count(flow)

	s.entries[flow.ID] = memoryEntry{
		flow:      *flow,
		expiresAt: s.now().Add(s.ttl),
	}
	return nil
}

// Get implements SessionStore.
func (s *MemoryStore) Get(_ context.Context, id string) (*Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.loadLocked(id)
	if !ok {
		return nil, apperrors.ResourceNotFoundError(
			fmt.Errorf("flow %s not found", id), "capture flow not found or expired")
	}

	flow := entry.flow
	return &flow, nil
}

// Consume implements SessionStore. The captured-to-submitting transition is
// a check-and-set under the store lock, so overlapping submits cannot both
// claim the same template.
func (s *MemoryStore) Consume(_ context.Context, id string) (*Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.loadLocked(id)
	if !ok {
		return nil, apperrors.ResourceNotFoundError(
			fmt.Errorf("flow %s not found", id), "capture flow not found or expired")
	}

	if err := entry.flow.MarkSubmitting(); err != nil {
		return nil, err
	}
	// MarkSubmitting only succeeds out of captured, so the entry was counted.
	metrics.ActiveFlows.WithLabelValues(string(entry.flow.Modality)).Dec()

	entry.expiresAt = s.now().Add(s.ttl)
	s.entries[id] = entry

	flow := entry.flow
	return &flow, nil
}

// Delete implements SessionStore.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.entries[id]; ok {
		s.uncount(&entry.flow)
	}
	delete(s.entries, id)
	return nil
}

// loadLocked returns the live entry for id, pruning it when expired. Caller
// holds s.mu.
func (s *MemoryStore) loadLocked(id string) (memoryEntry, bool) {
	entry, ok := s.entries[id]
	if !ok {
		return memoryEntry{}, false
	}
	if s.now().After(entry.expiresAt) {
		s.uncount(&entry.flow)
		delete(s.entries, id)
		return memoryEntry{}, false
	}
	return entry, true
}

func (s *MemoryStore) count(flow *Flow) {
	if flow.State == StateCaptured {
		metrics.ActiveFlows.WithLabelValues(string(flow.Modality)).Inc()
	}
}

func (s *MemoryStore) uncount(flow *Flow) {
	if flow.State == StateCaptured {
		metrics.ActiveFlows.WithLabelValues(string(flow.Modality)).Dec()
	}
}
