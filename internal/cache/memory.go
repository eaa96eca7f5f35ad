package cache

import (
	"context"
	"sync"
)

// Memory is an in-process Cache.
type Memory struct {
	mu      sync.RWMutex
	epoch   uint64
	entries map[string][]byte
	// dropped records the epoch at which each key was last invalidated.
	dropped map[string]uint64
}

func NewMemory() *Memory {
	return &Memory{entries: map[string][]byte{}, dropped: map[string]uint64{}}
}

func (m *Memory) Stamp(_ context.Context) uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.epoch
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	if !ok {
		recordLookup(false)
		return nil, false
	}
	recordLookup(true)
	return append([]byte(nil), v...), true
}

func (m *Memory) Set(_ context.Context, key string, stamp uint64, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range lineage(key) {
		if m.dropped[k] > stamp {
			recordStaleWrite()
			return
		}
	}
	m.entries[key] = append([]byte(nil), value...)
}

func (m *Memory) Invalidate(_ context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.epoch++
	m.dropped[key] = m.epoch
	for k := range m.entries {
		if covers(key, k) {
			delete(m.entries, k)
		}
	}
	recordInvalidation(key)
}

// Len is the number of cached entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
