package stats

import (
	"context"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/adamwrona/galleria/database/models"
)

// Repository computes aggregate statistics.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Overview holds the site-wide entity counts.
type Overview struct {
	Users     int64
	Galleries int64
	Images    int64
}

// GetOverview counts users, galleries and images; the three counts run
// concurrently.
func (r *Repository) GetOverview(ctx context.Context) (*Overview, error) {
	var overview Overview

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.db.WithContext(ctx).Model(&models.User{}).Count(&overview.Users).Error
	})
	g.Go(func() error {
		return r.db.WithContext(ctx).Model(&models.Gallery{}).Count(&overview.Galleries).Error
	})
	g.Go(func() error {
		return r.db.WithContext(ctx).Model(&models.Image{}).Count(&overview.Images).Error
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &overview, nil
}
