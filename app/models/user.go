package models

import "gorm.io/gorm"

// User owns a grocery list. Users are created from the CLI or the seeder.
type User struct {
	gorm.Model
	Name     string    `gorm:"size:255;not null" json:"name"`
	Email    string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password string    `gorm:"size:255;not null" json:"-"` // bcrypt hash, never serialised
	Products []Product `gorm:"foreignKey:OwnerID" json:"-"`
}
