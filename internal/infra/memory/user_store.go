package memory

import (
	"context"
	"strings"
	"sync"

	"learnpath-service/internal/domain"
)

// UserStore is an in-memory implementation of app.UserRepository.
type UserStore struct {
	mu      sync.RWMutex
	byEmail map[string]domain.User
}

func NewUserStore() *UserStore {
	return &UserStore{byEmail: make(map[string]domain.User)}
}

func (s *UserStore) GetUserByEmail(_ context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

// Replace overwrites the stored user with the same email, inserting if
// absent. Useful for seeding account states.
func (s *UserStore) Replace(user domain.User) {
	s.mu.Lock()
	s.byEmail[strings.ToLower(user.Email)] = user
	s.mu.Unlock()
}

func (s *UserStore) CreateUser(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(user.Email)
	if _, exists := s.byEmail[key]; exists {
		return domain.ErrEmailTaken
	}
	s.byEmail[key] = user
	return nil
}
