package galleries

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/adamwrona/galleria/database/models"
	"github.com/adamwrona/galleria/database/repo"
)

// Repository wraps all gallery-related database operations.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a gallery. The (name key, owner) unique index turns
// case-insensitive duplicates for the same owner into ErrConflict; the same
// name under a different owner is allowed.
func (r *Repository) Create(gallery *models.Gallery) error {
	if err := r.db.Create(gallery).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return repo.ErrConflict
		}
		return fmt.Errorf("failed to create gallery: %w", err)
	}
	return nil
}

// GetByID fetches a gallery with its owner preloaded.
func (r *Repository) GetByID(id uint) (*models.Gallery, error) {
	var gallery models.Gallery
	err := r.db.Preload("User").First(&gallery, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repo.ErrNotFound
		}
		return nil, err
	}
	return &gallery, nil
}

// ListAll returns every gallery with owners preloaded.
func (r *Repository) ListAll() ([]*models.Gallery, error) {
	var galleries []*models.Gallery
	err := r.db.Preload("User").Order("name asc").Find(&galleries).Error
	return galleries, err
}

// ListByOwner returns the galleries owned by the given user.
func (r *Repository) ListByOwner(userID uint) ([]*models.Gallery, error) {
	var galleries []*models.Gallery
	err := r.db.Preload("User").Where("user_id = ?", userID).Order("name asc").Find(&galleries).Error
	return galleries, err
}

// Update saves the gallery. Renaming into an existing (name, owner) pair
// yields ErrConflict. Associations are omitted so a preloaded (stale) owner
// cannot overwrite a reassigned UserID.
func (r *Repository) Update(gallery *models.Gallery) error {
	if err := r.db.Omit(clause.Associations).Save(gallery).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return repo.ErrConflict
		}
		return fmt.Errorf("failed to update gallery %d: %w", gallery.ID, err)
	}
	return nil
}

// CountImages returns the number of images stored in the gallery.
func (r *Repository) CountImages(galleryID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Image{}).Where("gallery_id = ?", galleryID).Count(&count).Error
	return count, err
}

// Delete removes an empty gallery. The image-count guard runs inside the
// delete transaction; a gallery holding images yields ErrGalleryNotEmpty for
// every caller regardless of role.
func (r *Repository) Delete(galleryID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var gallery models.Gallery
		if err := tx.First(&gallery, galleryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repo.ErrNotFound
			}
			return err
		}

		var imageCount int64
		if err := tx.Model(&models.Image{}).Where("gallery_id = ?", galleryID).Count(&imageCount).Error; err != nil {
			return err
		}
		if imageCount > 0 {
			return repo.ErrGalleryNotEmpty
		}

		if err := tx.Delete(&gallery).Error; err != nil {
			return fmt.Errorf("failed to delete gallery %d: %w", galleryID, err)
		}
		return nil
	})
}

// WithContext returns a context-bound copy of the repository.
func (r *Repository) WithContext(ctx context.Context) *Repository {
	return &Repository{db: r.db.WithContext(ctx)}
}
