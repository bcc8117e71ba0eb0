// Package user holds the account entity backing event ownership and
// login sessions. Accounts are provisioned on first login from the
// directory provider; there is no self-service registration.
package user

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrUserNotFound is returned when a lookup misses.
var ErrUserNotFound = errors.New("user not found")

// User is an account provisioned from the enterprise directory.
// DingTalkID is the unique external identity key.
type User struct {
	ID         int64     `json:"id"`
	DingTalkID string    `json:"dingtalkId"`
	Name       string    `json:"name"`
	Avatar     string    `json:"avatar,omitempty"`
	Email      string    `json:"email,omitempty"`
	Mobile     string    `json:"mobile,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Profile is the directory-sourced subset of User refreshed on each login.
type Profile struct {
	DingTalkID string
	Name       string
	Avatar     string
	Email      string
	Mobile     string
}

// Repository is the persistence contract for users. Upsert keys on the
// external identity: a known DingTalkID refreshes the profile fields in
// place, an unknown one provisions a new row.
type Repository interface {
	// Upsert creates or refreshes the account for the given directory
	// profile and returns the stored row.
	Upsert(ctx context.Context, p Profile) (*User, error)

	// GetByID retrieves a user by internal id.
	GetByID(ctx context.Context, id int64) (*User, error)

	// GetByDingTalkID retrieves a user by external identity key.
	GetByDingTalkID(ctx context.Context, dingtalkID string) (*User, error)
}

// InMemoryRepository is a map-backed Repository for tests and
// development. Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu     sync.RWMutex
	users  map[int64]*User
	nextID int64
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		users:  make(map[int64]*User),
		nextID: 1,
	}
}

// Upsert creates or refreshes the account keyed by DingTalkID.
func (r *InMemoryRepository) Upsert(_ context.Context, p Profile) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()

	// Deterministic iteration keeps behavior stable if duplicate external
	// ids ever sneak in.
	ids := make([]int64, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		u := r.users[id]
		if u.DingTalkID == p.DingTalkID {
			u.Name = p.Name
			u.Avatar = p.Avatar
			u.Email = p.Email
			u.Mobile = p.Mobile
			u.UpdatedAt = now
			copied := *u
			return &copied, nil
		}
	}

	u := &User{
		ID:         r.nextID,
		DingTalkID: p.DingTalkID,
		Name:       p.Name,
		Avatar:     p.Avatar,
		Email:      p.Email,
		Mobile:     p.Mobile,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	r.nextID++
	r.users[u.ID] = u
	copied := *u
	return &copied, nil
}

// GetByID retrieves a user by internal id.
func (r *InMemoryRepository) GetByID(_ context.Context, id int64) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

// GetByDingTalkID retrieves a user by external identity key.
func (r *InMemoryRepository) GetByDingTalkID(_ context.Context, dingtalkID string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.DingTalkID == dingtalkID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, ErrUserNotFound
}
