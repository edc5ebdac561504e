package storage

import (
	"context"
	"sync"
)

// Memory is an in-process Slot, used in tests and when no database is wanted.
type Memory struct {
	mu      sync.Mutex
	data    []byte
	set     bool
	saves   int
	SaveErr error
}

// NewMemory returns an empty memory slot.
func NewMemory() *Memory {
	return &Memory{}
}

// NewMemoryWith returns a memory slot preloaded with data.
func NewMemoryWith(data []byte) *Memory {
	return &Memory{data: append([]byte(nil), data...), set: true}
}

// Load returns a copy of the stored bytes, or ErrEmpty before the first save.
func (m *Memory) Load(_ context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set {
		return nil, ErrEmpty
	}
	return append([]byte(nil), m.data...), nil
}

// Save stores a copy of data. It returns SaveErr instead when that is set.
func (m *Memory) Save(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.data = append([]byte(nil), data...)
	m.set = true
	m.saves++
	return nil
}

// Saves returns how many successful saves happened.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
