package seeders

import (
	"context"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/grocerylist/app/models"
	"github.com/shashiranjanraj/grocerylist/pkg/auth"
)

// Demo credentials printed by the seed command.
const (
	DemoEmail    = "demo@example.com"
	DemoPassword = "grocerylist"
)

func init() {
	Register("demo", SeedDemo)
}

// SeedDemo creates the demo user and a starter list. Running it twice is
// harmless.
func SeedDemo(_ context.Context, db *gorm.DB) error {
	hash, err := auth.HashPassword(DemoPassword)
	if err != nil {
		return err
	}

	user := models.User{Name: "Demo", Email: DemoEmail}
	if err := db.Where(models.User{Email: DemoEmail}).
		Attrs(models.User{Password: hash}).
		FirstOrCreate(&user).Error; err != nil {
		return err
	}

	var n int64
	if err := db.Model(&models.Product{}).Where("owner_id = ?", user.ID).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	starter := []models.Product{
		{OwnerID: user.ID, Name: "Milk", Quantity: 2},
		{OwnerID: user.ID, Name: "Eggs", Quantity: 12},
		{OwnerID: user.ID, Name: "Bread", Quantity: 1},
	}
	return db.Omit("Owner").Create(&starter).Error
}
