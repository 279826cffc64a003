package storage

import (
	"context"
	"sync"

	"github.com/terra-clan/daywise/internal/models"
)

// MemoryRepository implements Repository with an in-process map.
// Order is tracked separately so LoadAll reflects insertion order.
type MemoryRepository struct {
	mu       sync.RWMutex
	roadmaps map[string]*models.Roadmap
	order    []string
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		roadmaps: make(map[string]*models.Roadmap),
	}
}

// Save stores a copy of the roadmap
func (r *MemoryRepository) Save(ctx context.Context, roadmap *models.Roadmap) error {
	if err := validateForSave(roadmap); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.putLocked(roadmap.Clone())
	return nil
}

func (r *MemoryRepository) putLocked(roadmap *models.Roadmap) {
	if _, exists := r.roadmaps[roadmap.ID]; !exists {
		r.order = append(r.order, roadmap.ID)
	}
	r.roadmaps[roadmap.ID] = roadmap
}

// Load returns a copy of the roadmap, or nil if absent
func (r *MemoryRepository) Load(ctx context.Context, id string) (*models.Roadmap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.roadmaps[id].Clone(), nil
}

// LoadAll returns copies of all roadmaps in insertion order
func (r *MemoryRepository) LoadAll(ctx context.Context) ([]*models.Roadmap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.Roadmap, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.roadmaps[id].Clone())
	}
	return result, nil
}

// Delete removes a roadmap
func (r *MemoryRepository) Delete(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.roadmaps[id]; !exists {
		return false, nil
	}
	delete(r.roadmaps, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true, nil
}

// Update applies fn under the write lock
func (r *MemoryRepository) Update(ctx context.Context, id string, fn UpdateFunc) (*models.Roadmap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.roadmaps[id]
	if !exists {
		return nil, nil
	}

	next, err := fn(current.Clone())
	if err != nil {
		return nil, err
	}
	if next == nil {
		return current.Clone(), nil
	}
	next = next.Clone()
	next.ID = id
	r.roadmaps[id] = next
	return next.Clone(), nil
}

// Ping always succeeds
func (r *MemoryRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op
func (r *MemoryRepository) Close() error {
	return nil
}
