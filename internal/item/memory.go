package item

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository keeps items in process memory.
type MemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]Item
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[int64]Item)}
}

func (r *MemoryRepository) GetByID(ctx context.Context, id int64) (*Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	it, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &it, nil
}

func (r *MemoryRepository) Create(ctx context.Context, it *Item) error {
	if it.OwnerID <= 0 {
		return ErrOwnerNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	it.ID = r.nextID
	it.CreatedAt = time.Now().UTC()
	r.items[it.ID] = *it
	return nil
}

// SetAvailable flips the availability flag, as the listing service would.
func (r *MemoryRepository) SetAvailable(id int64, available bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	it, ok := r.items[id]
	if !ok {
		return ErrNotFound
	}
	it.Available = available
	r.items[id] = it
	return nil
}
