package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryGateway is a process-local gateway. It stores marshaled JSON so
// readers and writers never share live values; the default backend and
// the one the tests use.
type MemoryGateway struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{data: make(map[string][]byte)}
}

func (g *MemoryGateway) Get(ctx context.Context, key string, out any) (bool, error) {
	g.mu.RLock()
	raw, ok := g.data[key]
	g.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (g *MemoryGateway) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	g.mu.Lock()
	g.data[key] = raw
	g.mu.Unlock()
	return nil
}
