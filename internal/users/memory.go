package users

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/yangjihun/FM-COMMIT/internal/models"
)

// MemoryRepository is an in-process Repository used by tests and by the
// server when no MongoDB URI is configured.
type MemoryRepository struct {
	mu      sync.RWMutex
	users   map[string]*models.User
	byEmail map[string]string
	blocked map[string]*models.BlockedUser
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:   map[string]*models.User{},
		byEmail: map[string]string{},
		blocked: map[string]*models.BlockedUser{},
	}
}

func (r *MemoryRepository) Insert(ctx context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[u.Email]; ok {
		return errDuplicateEmail
	}
	cp := *u
	r.users[u.ID] = &cp
	r.byEmail[u.Email] = u.ID
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	id, ok := r.byEmail[email]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

func (r *MemoryRepository) List(ctx context.Context) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		cp := *u
		cp.PasswordHash = ""
		out = append(out, cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepository) UpdateRole(ctx context.Context, id string, role models.Role) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	u.Role = role
	u.UpdatedAt = time.Now().UTC()
	cp := *u
	return &cp, nil
}

func (r *MemoryRepository) SetPassword(ctx context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.PasswordHash = hash
		u.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (r *MemoryRepository) UpsertBlock(ctx context.Context, email, reason string) (*models.BlockedUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	b, ok := r.blocked[email]
	if !ok {
		b = &models.BlockedUser{Email: email, CreatedAt: now}
		r.blocked[email] = b
	}
	b.Reason = reason
	b.UpdatedAt = now
	cp := *b
	return &cp, nil
}

func (r *MemoryRepository) DeleteBlock(ctx context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.blocked[email]
	delete(r.blocked, email)
	return ok, nil
}

func (r *MemoryRepository) GetBlock(ctx context.Context, email string) (*models.BlockedUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.blocked[email]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (r *MemoryRepository) ListBlocks(ctx context.Context) ([]models.BlockedUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.BlockedUser, 0, len(r.blocked))
	for _, b := range r.blocked {
		out = append(out, *b)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Email < out[j].Email
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// DeleteUser removes a user. Only used by tests to simulate a user vanishing
// while their session token is still live.
func (r *MemoryRepository) DeleteUser(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		delete(r.byEmail, u.Email)
		delete(r.users, id)
	}
}
