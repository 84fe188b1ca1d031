package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/adamwrona/galleria/utils/collate"
)

type Image struct {
	ID        uint `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Name string `gorm:"size:100;not null"`
	// (NameKey, GalleryID) is unique under the locale comparison.
	NameKey     string `gorm:"not null;uniqueIndex:idx_image_gallery_name"`
	Description string `gorm:"size:255"`
	// Path is the web path produced by the upload step, e.g. /uploads/<file>.
	Path string `gorm:"size:255;not null"`

	GalleryID uint    `gorm:"not null;index;uniqueIndex:idx_image_gallery_name"`
	Gallery   Gallery `gorm:"foreignKey:GalleryID"`
}

// BeforeSave keeps the collation key in sync with the image name.
func (i *Image) BeforeSave(tx *gorm.DB) error {
	i.NameKey = collate.Key(i.Name)
	return nil
}
