package httperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/grocerylist/pkg/httperr"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err  *httperr.Error
		want int
	}{
		{httperr.NewUnauthenticated(0), http.StatusFound},
		{httperr.NewUnauthenticated(http.StatusUnauthorized), http.StatusUnauthorized},
		{httperr.NewForbidden(""), http.StatusForbidden},
		{httperr.NewNotFound("", nil), http.StatusNotFound},
		{httperr.NewValidation("bad body", nil), http.StatusBadRequest},
		{httperr.Wrap(errors.New("boom")), http.StatusInternalServerError},
	}
	for _, c := range cases {
		t.Run(c.err.Kind.String(), func(t *testing.T) {
			assert.Equal(t, c.want, c.err.Status())
		})
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	base := httperr.NewForbidden("User does not have permission to view this")
	wrapped := fmt.Errorf("show product: %w", base)

	assert.Equal(t, httperr.Forbidden, httperr.KindOf(wrapped))
	assert.True(t, httperr.Is(wrapped, httperr.Forbidden))
	assert.Same(t, base, httperr.Wrap(wrapped))
}

func TestForeignErrorsAreInternal(t *testing.T) {
	err := errors.New("disk on fire")
	assert.Equal(t, httperr.Internal, httperr.KindOf(err))
	assert.ErrorIs(t, httperr.Wrap(err), err)
	assert.Nil(t, httperr.Wrap(nil))
}
