package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/adapters/storage/runrecord"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/domain"
)

// HistoryStore is an in-memory implementation of domain.HistoryStore.
// It is NOT persistent and is only suitable for development / tests.
// Runs are kept in their stored form so callers never share state with
// the store.
type HistoryStore struct {
	mu      sync.RWMutex
	records map[domain.RunID]*runrecord.Record
}

func NewHistoryStore() *HistoryStore {
	return &HistoryStore{
		records: make(map[domain.RunID]*runrecord.Record),
	}
}

func (s *HistoryStore) Save(_ context.Context, run *domain.PipelineRun) (domain.RunID, error) {
	if run == nil {
		return "", &domain.PersistenceError{Op: "save", Err: errors.New("nil run")}
	}

	id := runrecord.NewID(run.Timestamp)
	rec := runrecord.FromRun(id, run)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = rec
	return id, nil
}

func (s *HistoryStore) List(_ context.Context) ([]*domain.PipelineRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.PipelineRun, 0, len(s.records))
	for _, rec := range s.records {
		run, err := rec.ToRun()
		if err != nil {
			continue
		}
		out = append(out, run)
	}
	runrecord.SortNewestFirst(out)
	return out, nil
}

func (s *HistoryStore) Get(_ context.Context, id domain.RunID) (*domain.PipelineRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	return rec.ToRun()
}

func (s *HistoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[domain.RunID]*runrecord.Record)
	return nil
}
