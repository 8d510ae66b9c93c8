// Package testutil provides archive fixtures and cache doubles for tests.
package testutil

import (
	"sync"
	"sync/atomic"
)

// MockCache implements cache.Cache in memory and counts calls.
type MockCache struct {
	mu   sync.RWMutex
	data map[string][]byte

	// PutErr, when set, is returned by every Put.
	PutErr error

	gets    atomic.Int64
	puts    atomic.Int64
	deletes atomic.Int64
}

// NewMockCache constructs an empty in-memory cache.
func NewMockCache() *MockCache {
	return &MockCache{data: make(map[string][]byte)}
}

func mockKey(archivePath, entryName string) string {
	return archivePath + "\x00" + entryName
}

// Get retrieves cached bytes.
func (c *MockCache) Get(archivePath, entryName string) ([]byte, bool) {
	c.gets.Add(1)
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, ok := c.data[mockKey(archivePath, entryName)]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

// Put stores bytes unless PutErr is set.
func (c *MockCache) Put(archivePath, entryName string, content []byte) error {
	c.puts.Add(1)
	if c.PutErr != nil {
		return c.PutErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[mockKey(archivePath, entryName)] = append([]byte(nil), content...)
	return nil
}

// Delete removes a record.
func (c *MockCache) Delete(archivePath, entryName string) error {
	c.deletes.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, mockKey(archivePath, entryName))
	return nil
}

// Purge removes every record for archivePath.
func (c *MockCache) Purge(archivePath string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := archivePath + "\x00"
	for k := range c.data {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(c.data, k)
		}
	}
	return nil
}

// Len returns the number of cached records.
func (c *MockCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Gets returns the number of Get calls.
func (c *MockCache) Gets() int64 { return c.gets.Load() }

// Puts returns the number of Put calls.
func (c *MockCache) Puts() int64 { return c.puts.Load() }

// Deletes returns the number of Delete calls.
func (c *MockCache) Deletes() int64 { return c.deletes.Load() }
