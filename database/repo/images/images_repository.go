package images

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/adamwrona/galleria/database/models"
	"github.com/adamwrona/galleria/database/repo"
)

// Repository wraps all image-related database operations.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts an image. The (name key, gallery) unique index turns
// case-insensitive duplicates within the same gallery into ErrConflict.
func (r *Repository) Create(image *models.Image) error {
	if err := r.db.Create(image).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return repo.ErrConflict
		}
		return fmt.Errorf("failed to create image: %w", err)
	}
	return nil
}

// GetByID fetches an image with its gallery (and the gallery's owner)
// preloaded, so the effective owner is reachable without further queries.
func (r *Repository) GetByID(id uint) (*models.Image, error) {
	var image models.Image
	err := r.db.Preload("Gallery").Preload("Gallery.User").First(&image, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repo.ErrNotFound
		}
		return nil, err
	}
	return &image, nil
}

// ListAll returns every image with galleries preloaded.
func (r *Repository) ListAll() ([]*models.Image, error) {
	var images []*models.Image
	err := r.db.Preload("Gallery").Order("name asc").Find(&images).Error
	return images, err
}

// ListByOwner returns all images in galleries owned by the given user.
func (r *Repository) ListByOwner(userID uint) ([]*models.Image, error) {
	var images []*models.Image
	err := r.db.Preload("Gallery").
		Joins("JOIN galleries ON galleries.id = images.gallery_id").
		Where("galleries.user_id = ?", userID).
		Order("images.name asc").
		Find(&images).Error
	return images, err
}

// ListByGallery returns the images of one gallery.
func (r *Repository) ListByGallery(galleryID uint) ([]*models.Image, error) {
	var images []*models.Image
	err := r.db.Where("gallery_id = ?", galleryID).Order("name asc").Find(&images).Error
	return images, err
}

// Update saves the image. Renaming into an existing (name, gallery) pair
// yields ErrConflict.
func (r *Repository) Update(image *models.Image) error {
	if err := r.db.Omit(clause.Associations).Save(image).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return repo.ErrConflict
		}
		return fmt.Errorf("failed to update image %d: %w", image.ID, err)
	}
	return nil
}

// Delete removes an image and its comments in one transaction.
func (r *Repository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&models.Image{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return repo.ErrNotFound
		}
		return tx.Where("image_id = ?", id).Delete(&models.Comment{}).Error
	})
}

// WithContext returns a context-bound copy of the repository.
func (r *Repository) WithContext(ctx context.Context) *Repository {
	return &Repository{db: r.db.WithContext(ctx)}
}
