package sections

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/models"
)

// MemoryRepository keeps sections in process memory; everything is lost on
// restart. Each owner gets an independent, individually locked collection,
// so owners never contend.
type MemoryRepository struct {
	mu     sync.Mutex // guards the owners map only
	owners map[int64]*ownerSpace
}

type ownerSpace struct {
	mu     sync.Mutex
	nextID int64
	items  []*models.Section // insertion order
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{owners: make(map[int64]*ownerSpace)}
}

func (r *MemoryRepository) space(ownerID int64) *ownerSpace {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.owners[ownerID]
	if !ok {
		s = &ownerSpace{nextID: 1}
		r.owners[ownerID] = s
	}
	return s
}

func (r *MemoryRepository) Create(ctx context.Context, ownerID int64, title, content string) (*models.Section, error) {
	s := r.space(ownerID)
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	sec := &models.Section{
		ID:        s.nextID,
		OwnerID:   ownerID,
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.nextID++
	s.items = append(s.items, sec)

	out := *sec
	return &out, nil
}

func (r *MemoryRepository) List(ctx context.Context, ownerID int64, includeDeleted bool) ([]models.Section, error) {
	s := r.space(ownerID)
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]models.Section, 0, len(s.items))
	for _, sec := range s.items {
		if sec.Deleted && !includeDeleted {
			continue
		}
		result = append(result, *sec)
	}
	return result, nil
}

func (r *MemoryRepository) Get(ctx context.Context, ownerID, id int64) (*models.Section, error) {
	s := r.space(ownerID)
	s.mu.Lock()
	defer s.mu.Unlock()

	sec, err := s.find(id)
	if err != nil {
		return nil, err
	}
	out := *sec
	return &out, nil
}

func (r *MemoryRepository) Update(ctx context.Context, ownerID, id int64, newTitle, newContent *string) (*models.Section, error) {
	s := r.space(ownerID)
	s.mu.Lock()
	defer s.mu.Unlock()

	sec, err := s.find(id)
	if err != nil {
		return nil, err
	}

	if newTitle != nil {
		sec.Title = *newTitle
	}
	if newContent != nil {
		sec.Content = *newContent
	}
	sec.UpdatedAt = time.Now().UTC()

	out := *sec
	return &out, nil
}

func (r *MemoryRepository) SoftDelete(ctx context.Context, ownerID, id int64) error {
	s := r.space(ownerID)
	s.mu.Lock()
	defer s.mu.Unlock()

	sec, err := s.find(id)
	if err != nil {
		return err
	}
	sec.Deleted = true
	sec.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryRepository) ToggleFavorite(ctx context.Context, ownerID, id int64) (*models.Section, error) {
	s := r.space(ownerID)
	s.mu.Lock()
	defer s.mu.Unlock()

	sec, err := s.find(id)
	if err != nil {
		return nil, err
	}
	sec.Favorite = !sec.Favorite
	sec.UpdatedAt = time.Now().UTC()

	out := *sec
	return &out, nil
}

// find returns the live record. The caller must hold s.mu. Soft-deleted
// sections stay addressable (ids are never renumbered).
func (s *ownerSpace) find(id int64) (*models.Section, error) {
	for _, sec := range s.items {
		if sec.ID == id {
			return sec, nil
		}
	}
	return nil, common.ErrNotFound
}
