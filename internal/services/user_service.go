package services

import (
	"context"
	"log/slog"
	"time"

	"userbook/internal/models"
	"userbook/internal/repositories"
	"userbook/pkg/rabbitmq"
)

// EventPublisher publishes user change events.
type EventPublisher interface {
	PublishUserEvent(event rabbitmq.UserEvent) error
}

// UserService assembles user records from form values and hands them to the
// repository. Errors from the repository are returned unchanged.
type UserService struct {
	repo        repositories.UserRepository
	credentials CredentialEncoder
	publisher   EventPublisher
	logger      *slog.Logger
	now         func() time.Time
}

// Option configures a UserService.
type Option func(*UserService)

// WithCredentialEncoder sets how passwords are encoded before storage.
func WithCredentialEncoder(enc CredentialEncoder) Option {
	return func(s *UserService) { s.credentials = enc }
}

// WithEventPublisher enables change events.
func WithEventPublisher(p EventPublisher) Option {
	return func(s *UserService) { s.publisher = p }
}

// WithLogger sets the logger used for publish warnings.
func WithLogger(l *slog.Logger) Option {
	return func(s *UserService) { s.logger = l }
}

// NewUserService creates a new UserService. Passwords are stored as given
// unless a different CredentialEncoder is supplied.
func NewUserService(repo repositories.UserRepository, opts ...Option) *UserService {
	s := &UserService{
		repo:        repo,
		credentials: PlainCredentials{},
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateUser builds a new user from the given fields and saves it,
// returning the ID assigned by the store.
func (s *UserService) CreateUser(ctx context.Context, name, email, password string) (string, error) {
	credential, err := s.credentials.Encode(password)
	if err != nil {
		return "", err
	}
	user := &models.User{
		Name:     name,
		Email:    email,
		Password: credential,
	}
	id, err := s.repo.Save(ctx, user)
	if err != nil {
		return "", err
	}
	s.publish(ctx, rabbitmq.UserEvent{Type: rabbitmq.UserCreated, UserID: id, Email: email, Affected: 1})
	return id, nil
}

// UpdateUser overwrites the fields of user in place and updates the stored
// record that has the same email. It returns the number of records affected.
// When the new email belongs to another record, that record is the one
// overwritten and the record identified by user.ID is left unchanged.
func (s *UserService) UpdateUser(ctx context.Context, user *models.User, name, email, password string) (int64, error) {
	credential, err := s.credentials.Encode(password)
	if err != nil {
		return 0, err
	}
	user.Name = name
	user.Email = email
	user.Password = credential

	affected, err := s.repo.Update(ctx, user)
	if err != nil {
		return 0, err
	}
	if affected > 0 {
		// The store matched by email, which may belong to a record other
		// than user.ID, so the event names only the email.
		s.publish(ctx, rabbitmq.UserEvent{Type: rabbitmq.UserUpdated, Email: email, Affected: affected})
	}
	return affected, nil
}

// DeleteUser deletes a user by ID, returning the number of records removed.
func (s *UserService) DeleteUser(ctx context.Context, id string) (int64, error) {
	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return 0, err
	}
	if affected > 0 {
		s.publish(ctx, rabbitmq.UserEvent{Type: rabbitmq.UserDeleted, UserID: id, Affected: affected})
	}
	return affected, nil
}

// ListUsers retrieves all users.
func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.repo.FindAll(ctx)
}

// GetUser retrieves a single user by its ID.
func (s *UserService) GetUser(ctx context.Context, id string) (models.User, bool, error) {
	return s.repo.FindByID(ctx, id)
}

// FindUsersByName retrieves the users with exactly the given name.
func (s *UserService) FindUsersByName(ctx context.Context, name string) ([]models.User, error) {
	return s.repo.FindByName(ctx, name)
}

// FindUsersByEmail retrieves the users with exactly the given email.
func (s *UserService) FindUsersByEmail(ctx context.Context, email string) ([]models.User, error) {
	return s.repo.FindByEmail(ctx, email)
}

// Ping reports whether the store is reachable.
func (s *UserService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *UserService) publish(ctx context.Context, event rabbitmq.UserEvent) {
	if s.publisher == nil {
		return
	}
	event.OccurredAt = s.now().UTC()
	if err := s.publisher.PublishUserEvent(event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish user event", "type", event.Type, "user_id", event.UserID, "error", err)
	}
}
