package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/grocerylist/app/models"
	"github.com/shashiranjanraj/grocerylist/pkg/orm"
)

// ProductRepository loads products. Writes go through an orm.Session.
type ProductRepository struct {
	q *orm.Query
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{q: orm.New(db)}
}

// Find loads a product by id regardless of owner; callers check ownership.
// A missing row is orm.ErrNotFound.
func (r *ProductRepository) Find(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := r.q.WithContext(ctx).Where("id = ?", id).First(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ForOwner lists the products of ownerID, oldest first.
func (r *ProductRepository) ForOwner(ctx context.Context, ownerID uint) ([]models.Product, error) {
	var out []models.Product
	err := r.q.WithContext(ctx).Where("owner_id = ?", ownerID).Order("created_at, id").Get(&out)
	return out, err
}
