// Package resources tracks per-clip ephemeral handles and guarantees each is released once.
package resources

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/stwalsh4118/reel/internal/logger"
)

// Kind labels what a handle backs, for logging
type Kind string

// Handle kinds
const (
	KindEphemeralFile Kind = "ephemeral_file" // temp directory or processed media file
	KindVideoElement  Kind = "video_element"  // detached decoded video element
	KindAudioBuffer   Kind = "audio_buffer"   // decoded sample buffer
	KindGainUnit      Kind = "gain_unit"      // per-clip volume bus
)

// Handle is anything that holds a resource until released
type Handle interface {
	Release() error
}

// HandleFunc adapts a function into a Handle
type HandleFunc func() error

// Release calls f
func (f HandleFunc) Release() error {
	return f()
}

type entry struct {
	kind     Kind
	handle   Handle
	released bool
}

// Manager owns every acquired handle, grouped by owner (a clip id)
type Manager struct {
	mu     sync.Mutex
	owners map[uuid.UUID][]*entry
	order  []uuid.UUID
}

// NewManager creates an empty Manager
func NewManager() *Manager {
	return &Manager{
		owners: make(map[uuid.UUID][]*entry),
	}
}

// Acquire registers handle as owned by owner. Nil handles are ignored.
func (m *Manager) Acquire(owner uuid.UUID, kind Kind, handle Handle) {
	if handle == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.owners[owner]; !exists {
		m.order = append(m.order, owner)
	}
	m.owners[owner] = append(m.owners[owner], &entry{kind: kind, handle: handle})

	logger.Log.Debug().
		Str("owner", owner.String()).
		Str("kind", string(kind)).
		Msg("Resource acquired")
}

// Release releases every handle owned by owner in reverse acquisition order.
// Releasing an unknown or already released owner is a no-op.
func (m *Manager) Release(owner uuid.UUID) error {
	m.mu.Lock()
	entries, exists := m.owners[owner]
	if exists {
		delete(m.owners, owner)
		m.order = removeOwner(m.order, owner)
	}
	m.mu.Unlock()

	if !exists {
		return nil
	}

	return releaseEntries(owner, entries)
}

// ReleaseAll releases every owner, newest first
func (m *Manager) ReleaseAll() error {
	m.mu.Lock()
	owners := m.order
	snapshot := m.owners
	m.order = nil
	m.owners = make(map[uuid.UUID][]*entry)
	m.mu.Unlock()

	var errs []error
	for i := len(owners) - 1; i >= 0; i-- {
		if err := releaseEntries(owners[i], snapshot[owners[i]]); err != nil {
			errs = append(errs, err)
		}
	}

	if len(owners) > 0 {
		logger.Log.Info().
			Int("owners", len(owners)).
			Int("failures", len(errs)).
			Msg("Released all resources")
	}

	return errors.Join(errs...)
}

// Owned returns how many live handles owner holds
func (m *Manager) Owned(owner uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.owners[owner])
}

// Len returns the number of owners with live handles
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.owners)
}

func releaseEntries(owner uuid.UUID, entries []*entry) error {
	var errs []error
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.released {
			continue
		}
		e.released = true

		if err := e.handle.Release(); err != nil {
			logger.Log.Warn().
				Err(err).
				Str("owner", owner.String()).
				Str("kind", string(e.kind)).
				Msg("Failed to release resource")
			errs = append(errs, err)
			continue
		}

		logger.Log.Debug().
			Str("owner", owner.String()).
			Str("kind", string(e.kind)).
			Msg("Resource released")
	}
	return errors.Join(errs...)
}

func removeOwner(order []uuid.UUID, owner uuid.UUID) []uuid.UUID {
	for i, id := range order {
		if id == owner {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}
