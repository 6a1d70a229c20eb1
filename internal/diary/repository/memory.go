package repository

import (
	"context"
	"sync"

	"github.com/couplediary/diary/internal/diary"
)

// MemoryRepo keeps the Index and payloads in process memory. It implements
// both IndexStore and PayloadStore and is used in development and tests.
type MemoryRepo struct {
	mu       sync.RWMutex
	entries  diary.Index
	revision int64
	payloads map[string][]byte
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{entries: diary.Index{}, payloads: make(map[string][]byte)}
}

func (m *MemoryRepo) FetchIndex(ctx context.Context) (diary.Index, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entries.Clone(), formatRevision(m.revision), nil
}

func (m *MemoryRepo) WriteIndex(ctx context.Context, idx diary.Index, prevRevision string) (string, error) {
	prev, err := parseRevision(prevRevision)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev != m.revision {
		return "", ErrConflict
	}
	m.entries = idx.Clone()
	m.revision++
	return formatRevision(m.revision), nil
}

func (m *MemoryRepo) WritePayload(ctx context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return ErrInvalidKey
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payloads[key] = buf
	return nil
}

func (m *MemoryRepo) FetchPayload(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.payloads[key]
	if !ok {
		return nil, ErrPayloadMissing
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (m *MemoryRepo) DeletePayload(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.payloads, key)
	return nil
}
