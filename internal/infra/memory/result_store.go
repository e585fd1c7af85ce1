package memory

import (
	"context"
	"sync"

	"learnpath-service/internal/domain"
)

// ResultStore is an in-memory implementation of app.ResultRepository.
type ResultStore struct {
	mu      sync.RWMutex
	results []domain.AttemptResult
}

func NewResultStore() *ResultStore {
	return &ResultStore{}
}

func (s *ResultStore) SaveResult(_ context.Context, result domain.AttemptResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
	return nil
}

// Results returns saved results, for tests.
func (s *ResultStore) Results() []domain.AttemptResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AttemptResult, len(s.results))
	copy(out, s.results)
	return out
}
