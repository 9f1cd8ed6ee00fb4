package storage

import (
	"context"
	"io"
	"sort"
	"sync"
)

// Memory keeps files in a map. Used by tests and the "memory" driver.
type Memory struct {
	mu      sync.Mutex
	baseURL string
	files   map[string][]byte
}

func NewMemory(baseURL string) *Memory {
	return &Memory{baseURL: baseURL, files: make(map[string][]byte)}
}

func (m *Memory) Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	key, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.files[key] = data
	m.mu.Unlock()
	return key, nil
}

func (m *Memory) URL(storedPath string) string {
	if storedPath == "" || IsAbsoluteURL(storedPath) {
		return storedPath
	}
	return joinURL(m.baseURL, storedPath)
}

func (m *Memory) Delete(ctx context.Context, storedPath string) error {
	m.mu.Lock()
	delete(m.files, storedPath)
	m.mu.Unlock()
	return nil
}

// Get returns the bytes stored at key.
func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.files[key]
	return b, ok
}

// Keys lists stored keys in sorted order.
func (m *Memory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.files))
	for k := range m.files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
