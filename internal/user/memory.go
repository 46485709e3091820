package user

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryRepository keeps users in process memory.
type MemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]User
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[int64]User)}
}

func (r *MemoryRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *MemoryRepository) Create(ctx context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range r.users {
		if email != "" && existing.Email == email {
			return ErrEmailAlreadyUsed
		}
	}

	r.nextID++
	u.ID = r.nextID
	u.Email = email
	u.CreatedAt = time.Now().UTC()
	r.users[u.ID] = *u
	return nil
}
