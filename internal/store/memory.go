package store

import (
	"context"
	"sync"

	"scanreport/internal/ocr"
)

// Memory is a concurrency-safe in-memory Repository.
type Memory struct {
	mu      sync.RWMutex
	results map[string]ocr.ExtractionResult
}

// NewMemory returns an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{results: make(map[string]ocr.ExtractionResult)}
}

// SaveResult stores or replaces the result for an image.
func (m *Memory) SaveResult(_ context.Context, imageID string, result ocr.ExtractionResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[imageID] = result
	return nil
}

// Result returns the stored result, or ErrNotFound.
func (m *Memory) Result(_ context.Context, imageID string) (ocr.ExtractionResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result, ok := m.results[imageID]
	if !ok {
		return ocr.ExtractionResult{}, ErrNotFound
	}
	return result, nil
}

// Results returns a copy of all stored results keyed by image ID.
func (m *Memory) Results(_ context.Context) (map[string]ocr.ExtractionResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]ocr.ExtractionResult, len(m.results))
	for id, result := range m.results {
		out[id] = result
	}
	return out, nil
}

// Clear removes every stored result.
func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = make(map[string]ocr.ExtractionResult)
	return nil
}
