package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/arena"
	"github.com/google/uuid"
)

// Memory is an in-process UserStore for development and tests. Returned
// users are copies; mutating them does not change the store.
type Memory struct {
	mu         sync.RWMutex
	users      map[string]*arena.User
	byEmail    map[string]string
	byGoogle   map[string]string
	byUsername map[string]string
	now        func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		users:      make(map[string]*arena.User),
		byEmail:    make(map[string]string),
		byGoogle:   make(map[string]string),
		byUsername: make(map[string]string),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) GetByID(_ context.Context, id string) (*arena.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, arena.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (m *Memory) GetByEmail(_ context.Context, email string) (*arena.User, error) {
	return m.lookup(m.byEmail, strings.ToLower(email))
}

func (m *Memory) GetByGoogleID(_ context.Context, googleID string) (*arena.User, error) {
	return m.lookup(m.byGoogle, googleID)
}

func (m *Memory) lookup(index map[string]string, key string) (*arena.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := index[key]
	if !ok || key == "" {
		return nil, arena.ErrUserNotFound
	}
	return cloneUser(m.users[id]), nil
}

func (m *Memory) Create(_ context.Context, in arena.NewUser) (*arena.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := strings.ToLower(in.Email)
	if _, ok := m.byEmail[email]; ok {
		return nil, arena.ErrDuplicateAccount
	}
	if in.Username != "" {
		if _, ok := m.byUsername[strings.ToLower(in.Username)]; ok {
			return nil, arena.ErrDuplicateAccount
		}
	}
	if in.GoogleID != "" {
		if _, ok := m.byGoogle[in.GoogleID]; ok {
			return nil, arena.ErrDuplicateAccount
		}
	}

	role := in.Role
	if role == "" {
		role = arena.RoleUser
	}
	now := m.now()
	u := &arena.User{
		ID:            uuid.NewString(),
		Email:         email,
		Name:          in.Name,
		Username:      in.Username,
		Role:          role,
		EmailVerified: in.EmailVerified,
		PasswordHash:  in.PasswordHash,
		GoogleID:      in.GoogleID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	m.users[u.ID] = u
	m.byEmail[email] = u.ID
	if u.Username != "" {
		m.byUsername[strings.ToLower(u.Username)] = u.ID
	}
	if u.GoogleID != "" {
		m.byGoogle[u.GoogleID] = u.ID
	}
	return cloneUser(u), nil
}

func (m *Memory) LinkGoogle(_ context.Context, userID, googleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return arena.ErrUserNotFound
	}
	if other, ok := m.byGoogle[googleID]; ok && other != userID {
		return arena.ErrDuplicateAccount
	}
	if u.GoogleID != "" {
		delete(m.byGoogle, u.GoogleID)
	}
	u.GoogleID = googleID
	u.EmailVerified = true
	u.UpdatedAt = m.now()
	m.byGoogle[googleID] = userID
	return nil
}

func (m *Memory) UpdatePasswordHash(_ context.Context, userID, hash string) error {
	return m.update(userID, func(u *arena.User) { u.PasswordHash = hash })
}

// SetRole changes a user's role. It does not touch sessions; use
// arena.Engine.SetRole to revoke them as well.
func (m *Memory) SetRole(_ context.Context, userID string, role arena.Role) error {
	if !role.Valid() {
		return arena.ErrValidation
	}
	return m.update(userID, func(u *arena.User) { u.Role = role })
}

func (m *Memory) update(userID string, fn func(*arena.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return arena.ErrUserNotFound
	}
	fn(u)
	u.UpdatedAt = m.now()
	return nil
}

func (m *Memory) CompleteOnboarding(_ context.Context, userID string, data arena.OnboardingData) (*arena.User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return nil, false, arena.ErrUserNotFound
	}
	if u.OnboardingComplete {
		return cloneUser(u), false, nil
	}

	u.Profile = cloneProfile(&data)
	u.OnboardingComplete = true
	u.UpdatedAt = m.now()
	return cloneUser(u), true, nil
}

// Users returns copies of all stored users, for the memory searcher.
func (m *Memory) Users() []arena.User {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]arena.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *cloneUser(u))
	}
	return out
}

func cloneUser(u *arena.User) *arena.User {
	cp := *u
	cp.Profile = cloneProfile(u.Profile)
	return &cp
}

func cloneProfile(p *arena.OnboardingData) *arena.OnboardingData {
	if p == nil {
		return nil
	}
	cp := *p
	cp.PreferredLanguages = append([]string(nil), p.PreferredLanguages...)
	cp.Interests = append([]string(nil), p.Interests...)
	return &cp
}
