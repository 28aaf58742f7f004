package settings

import (
	"context"
	"sync"
)

// Memory is the default store when no persistence is configured. Settings
// survive for the process lifetime only.
type Memory struct {
	mu sync.Mutex
	s  Settings
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Load(ctx context.Context) (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s, nil
}

func (m *Memory) Save(ctx context.Context, s Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = s
	return nil
}

func (m *Memory) Close() error { return nil }
