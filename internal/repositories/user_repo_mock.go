package repositories

import (
	"context"
	"fmt"
	"sync"

	"userbook/internal/models"

	"github.com/google/uuid"
)

// MockUserRepository is an in-memory implementation of UserRepository.
// Records are kept in insertion order, which stands in for the natural
// order of a document collection.
type MockUserRepository struct {
	users map[string]models.User
	order []string
	mu    sync.RWMutex
}

// NewMockUserRepository creates a new instance of MockUserRepository.
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users: make(map[string]models.User),
	}
}

// Save adds a new user and assigns it a fresh ID.
func (r *MockUserRepository) Save(_ context.Context, user *models.User) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user.ID = uuid.New().String()
	r.users[user.ID] = *user
	r.order = append(r.order, user.ID)
	return user.ID, nil
}

// FindAll returns all users.
func (r *MockUserRepository) FindAll(_ context.Context) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.filter(func(models.User) bool { return true }), nil
}

// FindByID returns a user by its ID.
func (r *MockUserRepository) FindByID(_ context.Context, id string) (models.User, bool, error) {
	if err := validateUUID(id); err != nil {
		return models.User{}, false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	return user, ok, nil
}

// FindByName returns every user whose name equals name.
func (r *MockUserRepository) FindByName(_ context.Context, name string) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.filter(func(u models.User) bool { return u.Name == name }), nil
}

// FindByEmail returns every user whose email equals email.
func (r *MockUserRepository) FindByEmail(_ context.Context, email string) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.filter(func(u models.User) bool { return u.Email == email }), nil
}

// Update overwrites name and password of the first user with a matching email.
func (r *MockUserRepository) Update(_ context.Context, user *models.User) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.order {
		stored := r.users[id]
		if stored.Email != user.Email {
			continue
		}
		stored.Name = user.Name
		stored.Password = user.Password
		r.users[id] = stored
		return 1, nil
	}
	return 0, nil
}

// Delete removes a user by its ID.
func (r *MockUserRepository) Delete(_ context.Context, id string) (int64, error) {
	if err := validateUUID(id); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return 0, nil
	}
	delete(r.users, id)
	for i, stored := range r.order {
		if stored == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return 1, nil
}

// Ping always succeeds.
func (r *MockUserRepository) Ping(_ context.Context) error {
	return nil
}

func (r *MockUserRepository) filter(keep func(models.User) bool) []models.User {
	userList := make([]models.User, 0, len(r.order))
	for _, id := range r.order {
		if u := r.users[id]; keep(u) {
			userList = append(userList, u)
		}
	}
	return userList
}

func validateUUID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}
