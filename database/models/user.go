package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/adamwrona/galleria/utils/collate"
)

// User roles. The role is an explicit column; the reserved "admin" username is
// mapped onto RoleAdmin once, at migration time, instead of being re-derived
// by string comparison on every request.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// AdminUsername is the reserved administrator account name.
const AdminUsername = "admin"

type User struct {
	ID        uint `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Username string `gorm:"size:100;not null"`
	// UsernameKey is the locale collation key of Username; the unique index
	// lives here so that usernames differing only in case collide.
	UsernameKey string `gorm:"uniqueIndex;not null"`
	Name        string `gorm:"size:100"`
	Surname     string `gorm:"size:100"`
	Password    string `gorm:"not null" json:"-"`
	Role        string `gorm:"size:16;not null;default:user"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// BeforeSave keeps the collation key in sync with the username.
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.UsernameKey = collate.Key(u.Username)
	return nil
}
