// Package security resolves the authenticated user of a request.
package security

import (
	"context"
	"fmt"

	"github.com/shashiranjanraj/grocerylist/app/models"
	"github.com/shashiranjanraj/grocerylist/pkg/auth"
	"github.com/shashiranjanraj/grocerylist/pkg/orm"
)

// UserFinder loads users by id.
type UserFinder interface {
	FindByID(ctx context.Context, id uint) (*models.User, error)
}

// Provider turns the user id set by auth.Middleware into a User.
type Provider struct {
	users UserFinder
}

func NewProvider(users UserFinder) *Provider {
	return &Provider{users: users}
}

// CurrentUser returns the request's user, or nil for anonymous requests.
// An id whose user no longer exists counts as anonymous.
func (p *Provider) CurrentUser(ctx context.Context) (*models.User, error) {
	id, ok := auth.UserID(ctx)
	if !ok {
		return nil, nil
	}
	u, err := p.users.FindByID(ctx, id)
	if err != nil {
		if orm.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load current user: %w", err)
	}
	return u, nil
}
