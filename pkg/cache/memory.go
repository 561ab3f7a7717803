package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type memoryEntry struct {
	raw     []byte
	expires time.Time
}

// Memory is an in-process Cache used by the memory store and tests.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	gens    map[string]int64
	now     func() time.Time
}

// NewMemory creates an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry), gens: make(map[string]int64), now: time.Now}
}

// Get loads key into dest.
func (m *Memory) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if ok && !e.expires.IsZero() && m.now().After(e.expires) {
		delete(m.entries, key)
		ok = false
	}
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(e.raw, dest); err != nil {
		return false, nil
	}
	return true, nil
}

// Set stores value as JSON. A zero ttl never expires.
func (m *Memory) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	e, err := m.entry(value, ttl)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

func (m *Memory) entry(value interface{}, ttl time.Duration) (memoryEntry, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return memoryEntry{}, err
	}
	e := memoryEntry{raw: raw}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	return e, nil
}

// Generation returns the invalidation counter for key.
func (m *Memory) Generation(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gens[key], nil
}

// SetIfGeneration stores value when key's generation is still gen.
func (m *Memory) SetIfGeneration(_ context.Context, key string, gen int64, value interface{}, ttl time.Duration) (bool, error) {
	e, err := m.entry(value, ttl)
	if err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gens[key] != gen {
		return false, nil
	}
	m.entries[key] = e
	return true, nil
}

// Delete removes keys and advances their generations.
func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	for _, k := range keys {
		delete(m.entries, k)
		m.gens[k]++
	}
	m.mu.Unlock()
	return nil
}

// Has reports whether key is present and unexpired.
func (m *Memory) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	return ok && (e.expires.IsZero() || !m.now().After(e.expires))
}
