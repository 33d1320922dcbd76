package security_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/grocerylist/app/models"
	"github.com/shashiranjanraj/grocerylist/app/security"
	"github.com/shashiranjanraj/grocerylist/pkg/auth"
	"github.com/shashiranjanraj/grocerylist/pkg/orm"
)

type finder map[uint]*models.User

func (f finder) FindByID(_ context.Context, id uint) (*models.User, error) {
	if id == 99 {
		return nil, errors.New("connection reset")
	}
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, orm.ErrNotFound
}

func TestCurrentUser(t *testing.T) {
	ann := &models.User{Model: gorm.Model{ID: 1}, Email: "ann@example.com"}
	p := security.NewProvider(finder{1: ann})

	u, err := p.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Nil(t, u)

	u, err = p.CurrentUser(auth.WithUserID(context.Background(), 1))
	require.NoError(t, err)
	assert.Same(t, ann, u)

	u, err = p.CurrentUser(auth.WithUserID(context.Background(), 2))
	require.NoError(t, err)
	assert.Nil(t, u, "deleted users are anonymous")

	_, err = p.CurrentUser(auth.WithUserID(context.Background(), 99))
	assert.Error(t, err)
}
