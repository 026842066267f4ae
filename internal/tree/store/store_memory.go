package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"atatek/internal/tree/models"
	"atatek/pkg/platform/sentinel"
)

// InMemoryStore is a process-local node store for tests and local runs.
// It enforces the same external_id uniqueness as the PostgreSQL index.
type InMemoryStore struct {
	mu         sync.RWMutex
	nextID     int64
	nodes      map[int64]*models.Node
	byExternal map[int64]int64
	users      map[int64]User
}

// User is the slice of a user record the detail view needs.
type User struct {
	ID        int64
	FirstName string
	LastName  string
}

// NewInMemory constructs an empty in-memory store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		nodes:      make(map[int64]*models.Node),
		byExternal: make(map[int64]int64),
		users:      make(map[int64]User),
	}
}

// Seed inserts n as-is, assigning an id when n.ID is zero. It returns the stored id.
func (s *InMemoryStore) Seed(n models.Node) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(&n)
}

// AddUser registers a user referenced by created_by/updated_by.
func (s *InMemoryStore) AddUser(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// Count returns the number of stored nodes, deleted included.
func (s *InMemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// defaultCreatedBy matches the created_by column default.
const defaultCreatedBy int64 = 1

func (s *InMemoryStore) insertLocked(n *models.Node) (int64, error) {
	if n.ExternalID != nil {
		if _, taken := s.byExternal[*n.ExternalID]; taken {
			return 0, fmt.Errorf("external id %d: %w", *n.ExternalID, sentinel.ErrConflict)
		}
	}
	if n.ParentID != nil {
		if _, ok := s.nodes[*n.ParentID]; !ok {
			return 0, fmt.Errorf("parent %d: %w", *n.ParentID, sentinel.ErrInvalidState)
		}
	}
	if n.CreatedBy == 0 {
		n.CreatedBy = defaultCreatedBy
	}
	if n.ID == 0 {
		s.nextID++
		n.ID = s.nextID
	} else if n.ID > s.nextID {
		s.nextID = n.ID
	}
	stored := cloneNode(n)
	s.nodes[n.ID] = stored
	if n.ExternalID != nil {
		s.byExternal[*n.ExternalID] = n.ID
	}
	return n.ID, nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id int64) (*models.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node %d: %w", id, ErrNotFound)
	}
	return cloneNode(n), nil
}

func (s *InMemoryStore) FindDetail(_ context.Context, id int64) (*models.NodeDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node %d: %w", id, ErrNotFound)
	}
	return &models.NodeDetail{
		ID:        n.ID,
		Name:      n.Name,
		MiniIcon:  n.MiniIcon,
		MainIcon:  n.MainIcon,
		Birth:     n.BirthYear,
		Death:     n.DeathYear,
		Bio:       n.Biography,
		IsDeleted: n.IsDeleted,
		CreatedBy: s.userRefLocked(&n.CreatedBy),
		UpdatedBy: s.userRefLocked(n.UpdatedBy),
	}, nil
}

func (s *InMemoryStore) userRefLocked(id *int64) models.UserRef {
	if id == nil {
		return models.UserRef{}
	}
	u, ok := s.users[*id]
	if !ok {
		return models.UserRef{}
	}
	uid, first, last := u.ID, u.FirstName, u.LastName
	return models.UserRef{ID: &uid, FirstName: &first, LastName: &last}
}

func (s *InMemoryStore) ListVisibleChildren(_ context.Context, parentID int64) ([]*models.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Node
	for _, n := range s.nodes {
		if n.ParentID != nil && *n.ParentID == parentID && !n.IsDeleted {
			out = append(out, cloneNode(n))
		}
	}
	sortByID(out)
	return out, nil
}

func (s *InMemoryStore) ExistingExternalIDs(_ context.Context, ids []int64) (map[int64]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	found := make(map[int64]struct{}, len(ids))
	for _, ext := range ids {
		if _, ok := s.byExternal[ext]; ok {
			found[ext] = struct{}{}
		}
	}
	return found, nil
}

// InsertNodes mirrors the PostgreSQL semantics: all-or-nothing for real
// failures, silent skip for external ids that already exist.
func (s *InMemoryStore) InsertNodes(_ context.Context, nodes []*models.Node) ([]*models.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []*models.Node
	seen := make(map[int64]struct{})
	for _, n := range nodes {
		if n.ExternalID != nil {
			if _, taken := s.byExternal[*n.ExternalID]; taken {
				continue
			}
			if _, dup := seen[*n.ExternalID]; dup {
				continue
			}
			seen[*n.ExternalID] = struct{}{}
		}
		if n.ParentID != nil {
			if _, ok := s.nodes[*n.ParentID]; !ok {
				return nil, fmt.Errorf("insert node %q: parent %d: %w", n.Name, *n.ParentID, sentinel.ErrInvalidState)
			}
		}
		pending = append(pending, n)
	}

	inserted := make([]*models.Node, 0, len(pending))
	for _, n := range pending {
		saved := cloneNode(n)
		saved.ID = 0
		if _, err := s.insertLocked(saved); err != nil {
			return nil, err
		}
		inserted = append(inserted, cloneNode(saved))
	}
	return inserted, nil
}

func (s *InMemoryStore) SetDeleted(_ context.Context, id int64, deleted bool, actorID int64, now time.Time) (*models.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node %d: %w", id, ErrNotFound)
	}
	n.IsDeleted = deleted
	if actorID > 0 {
		actor := actorID
		n.UpdatedBy = &actor
	}
	n.UpdatedAt = now
	return cloneNode(n), nil
}

func (s *InMemoryStore) SearchByName(_ context.Context, query string) ([]*models.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	needle := strings.ToLower(query)
	var out []*models.Node
	for _, n := range s.nodes {
		if !n.IsDeleted && strings.Contains(strings.ToLower(n.Name), needle) {
			out = append(out, cloneNode(n))
		}
	}
	sortByID(out)
	return out, nil
}

func sortByID(nodes []*models.Node) {
	slices.SortFunc(nodes, func(a, b *models.Node) int { return cmp.Compare(a.ID, b.ID) })
}

func cloneNode(n *models.Node) *models.Node {
	c := *n
	c.ExternalID = clonePtr(n.ExternalID)
	c.BirthYear = clonePtr(n.BirthYear)
	c.DeathYear = clonePtr(n.DeathYear)
	c.Biography = clonePtr(n.Biography)
	c.MiniIcon = clonePtr(n.MiniIcon)
	c.MainIcon = clonePtr(n.MainIcon)
	c.ParentID = clonePtr(n.ParentID)
	c.UpdatedBy = clonePtr(n.UpdatedBy)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
