package repositories

import (
	"context"

	"userbook/internal/models"
)

// UserRepository defines the interface for user data access.
//
// Lookups that match nothing are not errors: FindByID reports absence through
// its bool result and the list lookups return an empty slice. Update and
// Delete return the number of records they affected, zero when nothing
// matched.
type UserRepository interface {
	Save(ctx context.Context, user *models.User) (string, error)
	FindAll(ctx context.Context) ([]models.User, error)
	FindByID(ctx context.Context, id string) (models.User, bool, error)
	FindByName(ctx context.Context, name string) ([]models.User, error)
	FindByEmail(ctx context.Context, email string) ([]models.User, error)
	// Update matches the stored record by email and overwrites its name and
	// password.
	Update(ctx context.Context, user *models.User) (int64, error)
	Delete(ctx context.Context, id string) (int64, error)
	Ping(ctx context.Context) error
}
