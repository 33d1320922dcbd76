package controllers_test

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/grocerylist/app/controllers"
	"github.com/shashiranjanraj/grocerylist/app/events"
	"github.com/shashiranjanraj/grocerylist/app/models"
	"github.com/shashiranjanraj/grocerylist/pkg/testkit"
)

func TestAnonymousIsSentToLogin(t *testing.T) {
	a := newApp(t)
	id := a.store.add(ann, "Milk", 1)
	b := a.browser(t, "", "")

	cases := []struct {
		name   string
		res    *testkit.Response
		status int
	}{
		{"list", b.Get("/grocerylist"), http.StatusFound},
		{"show", b.Get(productURL(id, "")), http.StatusFound},
		{"create", b.Get("/grocerylist/create"), http.StatusUnauthorized},
		{"create post", b.Post("/grocerylist/create", url.Values{"product[name]": {"Eggs"}}), http.StatusUnauthorized},
		{"update", b.Get(productURL(id, "update")), http.StatusUnauthorized},
		{"delete", b.Post(productURL(id, "delete"), url.Values{"confirm[_token]": {"x"}}), http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			testkit.AssertRedirect(t, tc.res, tc.status, "/login")
		})
	}

	_, ok := a.store.get(id)
	assert.True(t, ok)
	assert.Zero(t, a.store.flushes)
}

func TestOtherUsersProductIsForbidden(t *testing.T) {
	a := newApp(t)
	id := a.store.add(ann, "Milk", 1)
	b := a.browser(t, "bob@example.com", "bob-pw")

	for _, res := range []*testkit.Response{
		b.Get(productURL(id, "")),
		b.Get(productURL(id, "update")),
		b.Post(productURL(id, "update"), url.Values{"product[name]": {"Stolen"}, "product[quantity]": {"1"}}),
		b.Get(productURL(id, "delete")),
		b.Post(productURL(id, "delete"), url.Values{"confirm[_token]": {"x"}}),
	} {
		assert.Equal(t, http.StatusForbidden, res.Code)
		assert.Contains(t, res.Text(), "User does not have permission to view this")
	}

	p, ok := a.store.get(id)
	require.True(t, ok)
	assert.Equal(t, "Milk", p.Name)
	assert.Zero(t, a.store.flushes)
}

func TestUnknownProductIsNotFound(t *testing.T) {
	a := newApp(t)
	b := a.browser(t, "ann@example.com", "ann-pw")

	assert.Equal(t, http.StatusNotFound, b.Get("/grocerylist/999").Code)
	assert.Equal(t, http.StatusNotFound, b.Get("/grocerylist/999/update").Code)
	assert.Equal(t, http.StatusNotFound, b.Get("/grocerylist/milk").Code)
}

func TestListShowsOnlyOwnProducts(t *testing.T) {
	a := newApp(t)
	a.store.add(ann, "Milk", 2)
	a.store.add(bob, "Caviar", 1)
	b := a.browser(t, "ann@example.com", "ann-pw")

	res := b.Get("/grocerylist")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Text(), "Milk")
	assert.NotContains(t, res.Text(), "Caviar")
}

func TestCreateStoresProductForCurrentUser(t *testing.T) {
	a := newApp(t)
	b := a.browser(t, "ann@example.com", "ann-pw")

	res := b.Submit("/grocerylist/create", "product", url.Values{
		"name":     {"Milk"},
		"quantity": {"2"},
		"owner_id": {"2"},
	})
	testkit.AssertRedirect(t, res, http.StatusFound, "/grocerylist/1")

	p, ok := a.store.get(1)
	require.True(t, ok)
	assert.Equal(t, ann, p.OwnerID)
	assert.Equal(t, "Milk", p.Name)
	assert.Equal(t, 2, p.Quantity)
	assert.Equal(t, []string{events.ProductCreated}, a.events.names())

	show := b.Get(res.Location())
	require.Equal(t, http.StatusOK, show.Code)
	assert.Contains(t, show.Text(), controllers.MsgAdded)
	assert.Contains(t, show.Text(), "Milk")

	// The flash is shown once.
	assert.NotContains(t, b.Get(res.Location()).Text(), controllers.MsgAdded)
}

func TestCreateFormDefaults(t *testing.T) {
	a := newApp(t)
	b := a.browser(t, "ann@example.com", "ann-pw")

	res := b.Get("/grocerylist/create")
	require.Equal(t, http.StatusOK, res.Code)
	qty, ok := res.Input("product[quantity]")
	require.True(t, ok)
	assert.Equal(t, "1", qty)
}

func TestInvalidCreateRendersErrors(t *testing.T) {
	a := newApp(t)
	b := a.browser(t, "ann@example.com", "ann-pw")

	res := b.Submit("/grocerylist/create", "product", url.Values{"name": {""}, "quantity": {"0"}})
	assert.Equal(t, http.StatusUnprocessableEntity, res.Code)
	assert.Contains(t, res.Text(), "The name field is required.")
	assert.Zero(t, a.store.flushes)
	assert.Empty(t, a.events.names())
}

func TestCreateRejectsBadCSRFToken(t *testing.T) {
	a := newApp(t)
	b := a.browser(t, "ann@example.com", "ann-pw")

	res := b.Post("/grocerylist/create", url.Values{
		"product[_token]":   {"forged"},
		"product[name]":     {"Milk"},
		"product[quantity]": {"1"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, res.Code)
	assert.Contains(t, res.Text(), "The CSRF token is invalid.")
	assert.Zero(t, a.store.flushes)
}

func TestUpdateChangesProduct(t *testing.T) {
	a := newApp(t)
	id := a.store.add(ann, "Milk", 1)
	b := a.browser(t, "ann@example.com", "ann-pw")

	form := b.Get(productURL(id, "update"))
	require.Equal(t, http.StatusOK, form.Code)
	name, _ := form.Input("product[name]")
	assert.Equal(t, "Milk", name)

	res := b.Submit(productURL(id, "update"), "product", url.Values{"name": {"Oat milk"}, "quantity": {"3"}})
	testkit.AssertRedirect(t, res, http.StatusFound, productURL(id, ""))

	p, _ := a.store.get(id)
	assert.Equal(t, "Oat milk", p.Name)
	assert.Equal(t, 3, p.Quantity)
	assert.Equal(t, ann, p.OwnerID)
	assert.Equal(t, []string{events.ProductUpdated}, a.events.names())
	assert.Contains(t, b.Get(res.Location()).Text(), controllers.MsgUpdated)
}

func TestUpdateOfProductDeletedMeanwhileIsNotFound(t *testing.T) {
	a := newApp(t)
	id := a.store.add(ann, "Milk", 1)
	b := a.browser(t, "ann@example.com", "ann-pw")
	a.store.beforeFlush = func(rows map[uint]models.Product) { delete(rows, id) }

	res := b.Submit(productURL(id, "update"), "product", url.Values{"name": {"Oat milk"}, "quantity": {"3"}})
	assert.Equal(t, http.StatusNotFound, res.Code)

	_, ok := a.store.get(id)
	assert.False(t, ok)
	assert.Empty(t, a.events.names())
}

func TestInvalidUpdateRerendersWithoutFlush(t *testing.T) {
	a := newApp(t)
	id := a.store.add(ann, "Milk", 1)
	b := a.browser(t, "ann@example.com", "ann-pw")

	res := b.Submit(productURL(id, "update"), "product", url.Values{"name": {""}, "quantity": {"10000"}})
	require.Equal(t, http.StatusUnprocessableEntity, res.Code)
	assert.Contains(t, res.Text(), `action="`+productURL(id, "update")+`"`)
	assert.Contains(t, res.Text(), "The name field is required.")
	assert.Contains(t, res.Text(), "The quantity must be less than or equal to 9999.")

	p, _ := a.store.get(id)
	assert.Equal(t, "Milk", p.Name)
	assert.Equal(t, 1, p.Quantity)
	assert.Zero(t, a.store.flushes)
	assert.Empty(t, a.events.names())
}

func TestDeleteRemovesProduct(t *testing.T) {
	a := newApp(t)
	id := a.store.add(ann, "Milk", 1)
	keep := a.store.add(ann, "Bread", 1)
	b := a.browser(t, "ann@example.com", "ann-pw")

	res := b.Submit(productURL(id, "delete"), "confirm", nil)
	testkit.AssertRedirect(t, res, http.StatusFound, "/grocerylist")

	_, ok := a.store.get(id)
	assert.False(t, ok)
	_, ok = a.store.get(keep)
	assert.True(t, ok)
	assert.Equal(t, []string{events.ProductDeleted}, a.events.names())

	list := b.Get("/grocerylist")
	require.Equal(t, http.StatusOK, list.Code)
	assert.Contains(t, list.Text(), controllers.MsgRemoved)
	assert.NotContains(t, list.Text(), "Milk")
	assert.Contains(t, list.Text(), "Bread")
}

func TestDeleteNeedsValidConfirmation(t *testing.T) {
	a := newApp(t)
	id := a.store.add(ann, "Milk", 1)
	b := a.browser(t, "ann@example.com", "ann-pw")

	assert.Equal(t, http.StatusOK, b.Get(productURL(id, "delete")).Code)

	res := b.Post(productURL(id, "delete"), url.Values{"confirm[_token]": {"forged"}})
	assert.Equal(t, http.StatusUnprocessableEntity, res.Code)

	_, ok := a.store.get(id)
	assert.True(t, ok)
	assert.Zero(t, a.store.flushes)
}
