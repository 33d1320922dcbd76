// Package graphql exposes the caller's grocery list read-only over GraphQL:
//
//	{ groceries { id name quantity } }
//	{ product(id: 3) { name quantity createdAt } }
package graphql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/graphql-go/graphql"

	"github.com/shashiranjanraj/grocerylist/app/models"
	"github.com/shashiranjanraj/grocerylist/pkg/auth"
	gql "github.com/shashiranjanraj/grocerylist/pkg/graphql"
	"github.com/shashiranjanraj/grocerylist/pkg/orm"
)

var (
	errUnauthenticated = errors.New("Unauthorized")
	errNotOwner        = errors.New("User does not have permission to view this")
	errNotFound        = errors.New("Product not found")
)

// ProductStore loads products.
type ProductStore interface {
	Find(ctx context.Context, id uint) (*models.Product, error)
	ForOwner(ctx context.Context, ownerID uint) ([]models.Product, error)
}

var productType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Product",
	Fields: graphql.Fields{
		"id":        &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"name":      &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"quantity":  &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"createdAt": &graphql.Field{Type: graphql.String},
		"updatedAt": &graphql.Field{Type: graphql.String},
	},
})

// NewSchema builds the query-only schema over products.
func NewSchema(products ProductStore) (graphql.Schema, error) {
	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"groceries": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(productType))),
				Description: "The caller's products, oldest first.",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					userID, ok := auth.UserID(p.Context)
					if !ok {
						return nil, errUnauthenticated
					}
					list, err := products.ForOwner(p.Context, userID)
					if err != nil {
						return nil, fmt.Errorf("list products: %w", err)
					}
					out := make([]map[string]interface{}, 0, len(list))
					for i := range list {
						out = append(out, productFields(&list[i]))
					}
					return out, nil
				},
			},
			"product": &graphql.Field{
				Type: productType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					userID, ok := auth.UserID(p.Context)
					if !ok {
						return nil, errUnauthenticated
					}
					id, _ := p.Args["id"].(int)
					if id <= 0 {
						return nil, errNotFound
					}
					product, err := products.Find(p.Context, uint(id))
					if err != nil {
						if orm.IsNotFound(err) {
							return nil, errNotFound
						}
						return nil, fmt.Errorf("load product %d: %w", id, err)
					}
					if !product.OwnedBy(userID) {
						return nil, errNotOwner
					}
					return productFields(product), nil
				},
			},
		},
	})
	return gql.NewSchema(query)
}

func productFields(p *models.Product) map[string]interface{} {
	return map[string]interface{}{
		"id":        int(p.ID),
		"name":      p.Name,
		"quantity":  p.Quantity,
		"createdAt": p.CreatedAt.UTC().Format(time.RFC3339),
		"updatedAt": p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
