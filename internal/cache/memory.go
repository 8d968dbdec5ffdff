package cache

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

type entry struct {
	Data      json.RawMessage
	Timestamp time.Time
	TTL       time.Duration
}

// Memory is the default in-process Store. Values are stored as JSON so
// Get returns an independent copy, never a shared pointer.
type Memory struct {
	entries map[string]entry
	mu      sync.RWMutex
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]entry)}
}

func (c *Memory) Get(key string, target interface{}) (bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.RUnlock()
		return false, nil
	}

	expired := e.TTL > 0 && time.Since(e.Timestamp) > e.TTL
	if !expired {
		err := json.Unmarshal(e.Data, target)
		c.mu.RUnlock()
		if err != nil {
			return false, fmt.Errorf("unmarshal cache entry: %w", err)
		}
		return true, nil
	}
	c.mu.RUnlock()

	// Entry expired, need the write lock to delete.
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && e.TTL > 0 && time.Since(e.Timestamp) > e.TTL {
		delete(c.entries, key)
	}
	c.mu.Unlock()

	return false, nil
}

func (c *Memory) Put(key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value: %w", err)
	}

	c.mu.Lock()
	c.entries[key] = entry{
		Data:      data,
		Timestamp: time.Now(),
		TTL:       ttl,
	}
	c.mu.Unlock()

	return nil
}

func (c *Memory) Remove(key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

func (c *Memory) Clear() error {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
	return nil
}
