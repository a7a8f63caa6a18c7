package storage

import (
	"context"
	"sync"

	"prdchat/app/model"

	"github.com/elliotchance/pie/v2"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps sessions in process memory. Useful for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]record
	order   []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]record),
	}
}

func (s *MemoryStore) Create(_ context.Context, session *model.Session) error {
	rec, err := toRecord(session)
	if err != nil {
		return unavailable(err, "create", session.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.RowKey]; ok {
		return unavailable(errAlreadyExists, "create", session.ID)
	}

	s.records[rec.RowKey] = rec
	s.order = append(s.order, rec.RowKey)

	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, notFound(id)
	}

	return rec.toSession(), nil
}

func (s *MemoryStore) List(_ context.Context) ([]model.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]model.Summary, 0, len(s.order))
	for _, id := range s.order {
		rec := s.records[id]
		result = append(result, model.Summary{ID: rec.RowKey, Name: rec.Name})
	}

	return result, nil
}

func (s *MemoryStore) Update(_ context.Context, id string, update model.SessionUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return notFound(id)
	}

	updated, err := rec.apply(update)
	if err != nil {
		return unavailable(err, "update", id)
	}
	s.records[id] = updated

	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return nil
	}

	delete(s.records, id)
	s.order = pie.Filter(s.order, func(existing string) bool {
		return existing != id
	})

	return nil
}
