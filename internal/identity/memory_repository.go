package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/congo-pay/walletledger/internal/storage"
)

type memoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]User
}

// NewMemoryRepository builds an in-memory user store for development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{users: make(map[int64]User)}
}

func (r *memoryRepository) Create(ctx context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return ErrEmailTaken
		}
	}
	r.nextID++
	user.ID = r.nextID
	user.CreatedAt = time.Now().UTC()
	r.users[user.ID] = *user

	if u := storage.MemoryUnitFrom(ctx); u != nil {
		id := user.ID
		u.OnRollback(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			delete(r.users, id)
		})
	}
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id int64) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (r *memoryRepository) GetMany(_ context.Context, ids []int64) (map[int64]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make(map[int64]User, len(ids))
	for _, id := range ids {
		if user, ok := r.users[id]; ok {
			users[id] = user
		}
	}
	return users, nil
}

func (r *memoryRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	delete(r.users, id)

	if u := storage.MemoryUnitFrom(ctx); u != nil {
		u.OnRollback(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.users[id] = user
		})
	}
	return nil
}
