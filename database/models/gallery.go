package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/adamwrona/galleria/utils/collate"
)

type Gallery struct {
	ID        uint `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Name string `gorm:"size:100;not null"`
	// (NameKey, UserID) is unique: one owner cannot hold two galleries whose
	// names differ only in case.
	NameKey     string `gorm:"not null;uniqueIndex:idx_gallery_owner_name"`
	Description string `gorm:"size:255"`
	Date        time.Time

	UserID uint `gorm:"not null;index;uniqueIndex:idx_gallery_owner_name"`
	User   User `gorm:"foreignKey:UserID"`
}

// BeforeSave keeps the collation key in sync with the gallery name.
func (g *Gallery) BeforeSave(tx *gorm.DB) error {
	g.NameKey = collate.Key(g.Name)
	return nil
}
