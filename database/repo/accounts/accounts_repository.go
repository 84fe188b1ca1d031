package accounts

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/adamwrona/galleria/database/models"
	"github.com/adamwrona/galleria/database/repo"
	"github.com/adamwrona/galleria/utils/crypto"
)

// Repository wraps all user-related database operations.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// DB returns the underlying database handle.
func (r *Repository) DB() *gorm.DB {
	return r.db
}

// EnsureAdmin bootstraps the reserved admin account and applies the one-time
// role migration: any pre-existing "admin" user gets the admin role. Returns
// the generated password when a fresh admin account was created.
func (r *Repository) EnsureAdmin(initialPassword string) (string, error) {
	var admin models.User
	err := r.db.Where("username = ?", models.AdminUsername).First(&admin).Error

	switch {
	case err == nil:
		if admin.Role != models.RoleAdmin {
			admin.Role = models.RoleAdmin
			if err := r.db.Save(&admin).Error; err != nil {
				return "", fmt.Errorf("failed to migrate admin role: %w", err)
			}
			log.Printf("Migrated role of reserved user %q to admin", models.AdminUsername)
		}
		return "", nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		password := initialPassword
		if password == "" {
			generated, err := crypto.GenerateRandomToken(16)
			if err != nil {
				return "", fmt.Errorf("failed to generate admin password: %w", err)
			}
			password = generated
		}

		hashed, err := crypto.GenerateFromPassword(password)
		if err != nil {
			return "", fmt.Errorf("failed to hash admin password: %w", err)
		}

		user := &models.User{
			Username: models.AdminUsername,
			Name:     "Administrator",
			Password: hashed,
			Role:     models.RoleAdmin,
		}
		if err := r.db.Create(user).Error; err != nil {
			return "", fmt.Errorf("failed to create admin user: %w", err)
		}
		return password, nil
	default:
		return "", fmt.Errorf("failed to check admin user existence: %w", err)
	}
}

// GetByUsername looks a user up by exact username match.
func (r *Repository) GetByUsername(username string) (*models.User, error) {
	var user models.User
	err := r.db.Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repo.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByID looks a user up by primary key.
func (r *Repository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repo.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Create inserts a user. The unique index over the username collation key
// turns case-insensitive duplicates into ErrConflict.
func (r *Repository) Create(user *models.User) error {
	if err := r.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return repo.ErrConflict
		}
		return err
	}
	return nil
}

// Delete removes a user by ID.
func (r *Repository) Delete(id uint) error {
	result := r.db.Delete(&models.User{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// List returns all users ordered by surname.
func (r *Repository) List() ([]*models.User, error) {
	var users []*models.User
	err := r.db.Order("surname asc, username asc").Find(&users).Error
	return users, err
}

// WithContext returns a context-bound copy of the repository.
func (r *Repository) WithContext(ctx context.Context) *Repository {
	return &Repository{db: r.db.WithContext(ctx)}
}
