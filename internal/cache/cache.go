// Package cache memoizes oracle measurements by sequence and environment.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"

	"enzyflow/internal/model"
)

type Cache interface {
	Get(ctx context.Context, key string) (model.Measurement, bool, error)
	Set(ctx context.Context, key string, m model.Measurement) error
}

// Key derives a stable cache key from the sequence and every environment
// field that reaches the rate laws.
func Key(sequence string, env model.Environment) string {
	h := sha256.New()
	h.Write([]byte(sequence))
	h.Write([]byte{0})
	data, _ := json.Marshal(env)
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

type Memory struct {
	mu      sync.RWMutex
	entries map[string]model.Measurement
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]model.Measurement)}
}

func (c *Memory) Get(_ context.Context, key string) (model.Measurement, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m, ok := c.entries[key]
	return m, ok, nil
}

func (c *Memory) Set(_ context.Context, key string, m model.Measurement) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = m
	return nil
}

func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
