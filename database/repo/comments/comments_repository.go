package comments

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/adamwrona/galleria/database/models"
	"github.com/adamwrona/galleria/database/repo"
)

// Repository wraps all comment-related database operations.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a comment.
func (r *Repository) Create(comment *models.Comment) error {
	if err := r.db.Create(comment).Error; err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

// GetByID fetches a comment with its author preloaded.
func (r *Repository) GetByID(id uint) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.Preload("Author").First(&comment, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repo.ErrNotFound
		}
		return nil, err
	}
	return &comment, nil
}

// ListByImage returns an image's comments, newest first.
func (r *Repository) ListByImage(imageID uint) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.db.Preload("Author").
		Where("image_id = ?", imageID).
		Order("created_at desc").
		Find(&comments).Error
	return comments, err
}

// Update saves the comment.
func (r *Repository) Update(comment *models.Comment) error {
	if err := r.db.Omit(clause.Associations).Save(comment).Error; err != nil {
		return fmt.Errorf("failed to update comment %d: %w", comment.ID, err)
	}
	return nil
}

// Delete removes a comment by ID.
func (r *Repository) Delete(id uint) error {
	result := r.db.Delete(&models.Comment{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// WithContext returns a context-bound copy of the repository.
func (r *Repository) WithContext(ctx context.Context) *Repository {
	return &Repository{db: r.db.WithContext(ctx)}
}
