package models

import "time"

// MaxCommentLength bounds comment content.
const MaxCommentLength = 250

type Comment struct {
	ID        uint `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time
	UpdatedAt time.Time

	ImageID uint  `gorm:"not null;index"`
	Image   Image `gorm:"foreignKey:ImageID"`
	// GalleryID is denormalized from the image for convenient filtering.
	GalleryID uint `gorm:"not null;index"`

	AuthorID uint   `gorm:"not null;index"`
	Author   User   `gorm:"foreignKey:AuthorID"`
	Content  string `gorm:"size:250;not null"`
}
