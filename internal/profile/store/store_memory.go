package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"atatek/internal/profile/models"
)

// InMemoryStore is a process-local user store for tests and local runs.
type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[int64]models.Profile
	deleted  map[int64]bool
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		profiles: make(map[int64]models.Profile),
		deleted:  make(map[int64]bool),
	}
}

// Seed stores p, replacing any existing profile with the same id.
func (s *InMemoryStore) Seed(p models.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.ID] = p
}

// Delete soft-deletes a user.
func (s *InMemoryStore) Delete(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted[id] = true
}

func (s *InMemoryStore) FindByID(_ context.Context, id int64) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok || s.deleted[id] {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return &p, nil
}

func (s *InMemoryStore) UpdateName(_ context.Context, id int64, name models.NameUpdate, _ time.Time) error {
	return s.update(id, func(p *models.Profile) {
		p.FirstName, p.LastName, p.MiddleName = name.FirstName, name.LastName, name.MiddleName
	})
}

func (s *InMemoryStore) AssignPage(_ context.Context, id, pageID int64, _ time.Time) error {
	return s.update(id, func(p *models.Profile) {
		p.PageID = &pageID
	})
}

func (s *InMemoryStore) MarkVerified(_ context.Context, id int64, _ time.Time) error {
	return s.update(id, func(p *models.Profile) {
		p.IsVerified = true
	})
}

func (s *InMemoryStore) update(id int64, apply func(*models.Profile)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok || s.deleted[id] {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	apply(&p)
	s.profiles[id] = p
	return nil
}
