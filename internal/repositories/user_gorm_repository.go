package repositories

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"userbook/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// userRow is the relational shape of a user record.
type userRow struct {
	ID       string `gorm:"primaryKey;type:varchar(36)"`
	Name     string `gorm:"type:varchar(255);index"`
	Email    string `gorm:"type:varchar(255);index"` // Deliberately not unique
	Password string `gorm:"type:varchar(255)"`
}

func (userRow) TableName() string { return "users" }

func (row userRow) toModel() models.User {
	return models.User{
		ID:       row.ID,
		Name:     row.Name,
		Email:    row.Email,
		Password: models.Credential(row.Password),
	}
}

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// Migrate creates the users table if it does not exist.
func (r *GORMUserRepository) Migrate() error {
	if err := r.db.AutoMigrate(&userRow{}); err != nil {
		return fmt.Errorf("failed to migrate users table: %w", err)
	}
	return nil
}

// Save creates a new user in the database.
func (r *GORMUserRepository) Save(ctx context.Context, user *models.User) (string, error) {
	row := userRow{
		ID:       uuid.New().String(),
		Name:     user.Name,
		Email:    user.Email,
		Password: user.Password.Value(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", gormError("failed to save user", err)
	}
	user.ID = row.ID
	return row.ID, nil
}

// FindAll retrieves all users from the database.
func (r *GORMUserRepository) FindAll(ctx context.Context) ([]models.User, error) {
	var rows []userRow
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, gormError("failed to get all users", err)
	}
	return rowsToModels(rows), nil
}

// FindByID retrieves a user by their ID from the database.
func (r *GORMUserRepository) FindByID(ctx context.Context, id string) (models.User, bool, error) {
	if err := validateUUID(id); err != nil {
		return models.User{}, false, err
	}

	var row userRow
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, false, nil
		}
		return models.User{}, false, gormError(fmt.Sprintf("failed to get user by ID %s", id), err)
	}
	return row.toModel(), true, nil
}

// FindByName retrieves the users with the given name.
func (r *GORMUserRepository) FindByName(ctx context.Context, name string) ([]models.User, error) {
	var rows []userRow
	if err := r.db.WithContext(ctx).Where("name = ?", name).Find(&rows).Error; err != nil {
		return nil, gormError(fmt.Sprintf("failed to get users by name %s", name), err)
	}
	return rowsToModels(rows), nil
}

// FindByEmail retrieves the users with the given email.
func (r *GORMUserRepository) FindByEmail(ctx context.Context, email string) ([]models.User, error) {
	var rows []userRow
	if err := r.db.WithContext(ctx).Where("email = ?", email).Find(&rows).Error; err != nil {
		return nil, gormError(fmt.Sprintf("failed to get users by email %s", email), err)
	}
	return rowsToModels(rows), nil
}

// Update overwrites name and password of a single user matched by email.
// Like a document store's updateOne, at most one row is touched even when
// several users share the email.
func (r *GORMUserRepository) Update(ctx context.Context, user *models.User) (int64, error) {
	db := r.db.WithContext(ctx)
	target := db.Model(&userRow{}).Select("id").Where("email = ?", user.Email).Limit(1)
	res := db.Model(&userRow{}).
		Where("id = (?)", target).
		Updates(map[string]any{
			"name":     user.Name,
			"password": user.Password.Value(),
		})
	if res.Error != nil {
		return 0, gormError(fmt.Sprintf("failed to update user with email %s", user.Email), res.Error)
	}
	return res.RowsAffected, nil
}

// Delete deletes a user by its ID from the database.
func (r *GORMUserRepository) Delete(ctx context.Context, id string) (int64, error) {
	if err := validateUUID(id); err != nil {
		return 0, err
	}

	res := r.db.WithContext(ctx).Delete(&userRow{}, "id = ?", id)
	if res.Error != nil {
		return 0, gormError(fmt.Sprintf("failed to delete user %s", id), res.Error)
	}
	return res.RowsAffected, nil
}

// Ping checks that the underlying database is reachable.
func (r *GORMUserRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}
	return nil
}

func rowsToModels(rows []userRow) []models.User {
	users := make([]models.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toModel())
	}
	return users
}

// gormError wraps err, tagging broken connections and network failures with
// ErrConnection the same way mongoError does.
func gormError(msg string, err error) error {
	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.As(err, &netErr) {
		return fmt.Errorf("%s: %w: %w", msg, ErrConnection, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
