package comment

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository keeps comments in process memory. AuthorName is stored as given.
type MemoryRepository struct {
	mu       sync.RWMutex
	nextID   int64
	comments []Comment
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Create(ctx context.Context, c *Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	c.ID = r.nextID
	c.CreatedAt = time.Now().UTC()
	r.comments = append(r.comments, *c)
	return nil
}

func (r *MemoryRepository) ListByItem(ctx context.Context, itemID int64) ([]*Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Comment
	for _, stored := range r.comments {
		if stored.ItemID == itemID {
			c := stored
			result = append(result, &c)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}
