package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/seatpass/internal/apperrors"
	"github.com/nkiryanov/seatpass/internal/models"
	"github.com/nkiryanov/seatpass/internal/repository"
)

// memUsers is in memory repository.UserRepo for the state machine tests
type memUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]models.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[uuid.UUID]models.User)}
}

func (m *memUsers) CreateUser(_ context.Context, p repository.CreateUserParams) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == p.Email {
			return models.User{}, apperrors.ErrUserAlreadyExists
		}
	}

	now := time.Now()
	u := models.User{
		ID:             uuid.New(),
		CreatedAt:      now,
		UpdatedAt:      now,
		Name:           p.Name,
		Email:          p.Email,
		Phone:          p.Phone,
		Role:           p.Role,
		HashedPassword: p.HashedPassword,
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *memUsers) GetUserByID(_ context.Context, id uuid.UUID) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return u, apperrors.ErrUserNotFound
	}
	return u, nil
}

func (m *memUsers) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, apperrors.ErrUserNotFound
}

func (m *memUsers) UpdatePassword(_ context.Context, id uuid.UUID, hash string, changedAt time.Time) (models.User, error) {
	return m.update(id, func(u *models.User) {
		u.HashedPassword = hash
		u.PasswordChangedAt = &changedAt
		u.TokenVersion++
	})
}

func (m *memUsers) IncrementTokenVersion(_ context.Context, id uuid.UUID) (models.User, error) {
	return m.update(id, func(u *models.User) { u.TokenVersion++ })
}

func (m *memUsers) SetCurrentSubscription(_ context.Context, id uuid.UUID, subID *uuid.UUID) error {
	_, err := m.update(id, func(u *models.User) { u.CurrentSubscriptionID = subID })
	return err
}

func (m *memUsers) update(id uuid.UUID, fn func(u *models.User)) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return u, apperrors.ErrUserNotFound
	}
	fn(&u)
	u.UpdatedAt = time.Now()
	m.users[id] = u
	return u, nil
}

func (m *memUsers) delete(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
}
