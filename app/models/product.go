package models

import "gorm.io/gorm"

// Product is one line on a user's grocery list.
//
// OwnerID has no form tag: binding can never move a product to another user.
type Product struct {
	gorm.Model
	OwnerID  uint   `gorm:"not null;index" json:"owner_id"`
	Owner    User   `gorm:"foreignKey:OwnerID" json:"-"`
	Name     string `gorm:"size:255;not null" json:"name" form:"name" validate:"required,max=255"`
	Quantity int    `gorm:"not null;default:1" json:"quantity" form:"quantity" validate:"required,gte=1,lte=9999"`
}

// OwnedBy reports whether userID owns p.
func (p *Product) OwnedBy(userID uint) bool { return p.OwnerID == userID }
