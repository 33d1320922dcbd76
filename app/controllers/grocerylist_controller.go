package controllers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/shashiranjanraj/grocerylist/app/events"
	"github.com/shashiranjanraj/grocerylist/app/models"
	"github.com/shashiranjanraj/grocerylist/pkg/ctx"
	"github.com/shashiranjanraj/grocerylist/pkg/form"
	"github.com/shashiranjanraj/grocerylist/pkg/httperr"
	"github.com/shashiranjanraj/grocerylist/pkg/orm"
)

// Flash messages shown after a successful change.
const (
	MsgAdded   = "Successfully added product to your grocery list!"
	MsgUpdated = "Successfully updated product from your grocery list!"
	MsgRemoved = "Successfully removed product from your grocery list!"

	msgNotOwner = "User does not have permission to view this"
)

// AuthProvider resolves the user of a request; nil means anonymous.
type AuthProvider interface {
	CurrentUser(ctx context.Context) (*models.User, error)
}

// ProductStore loads products.
type ProductStore interface {
	Find(ctx context.Context, id uint) (*models.Product, error)
	ForOwner(ctx context.Context, ownerID uint) ([]models.Product, error)
}

// Dispatcher announces flushed changes.
type Dispatcher interface {
	Fire(ctx context.Context, event string, payload interface{})
}

// GroceryListController serves the signed-in user's grocery list.
type GroceryListController struct {
	auth       AuthProvider
	products   ProductStore
	newSession func() orm.Manager
	events     Dispatcher
}

// NewGroceryListController wires the controller. newSession returns a fresh
// unit of work per request.
func NewGroceryListController(auth AuthProvider, products ProductStore, newSession func() orm.Manager, events Dispatcher) *GroceryListController {
	return &GroceryListController{auth: auth, products: products, newSession: newSession, events: events}
}

// requireUser returns the current user or an Unauthenticated error that
// redirects to the login page with status.
func (gc *GroceryListController) requireUser(c *ctx.Context, status int) (*models.User, error) {
	user, err := gc.auth.CurrentUser(c.Context())
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, httperr.NewUnauthenticated(status)
	}
	return user, nil
}

// ownedProduct loads the {id} product and checks it belongs to user.
func (gc *GroceryListController) ownedProduct(c *ctx.Context, user *models.User) (*models.Product, error) {
	id, err := c.ParamUint("id")
	if err != nil {
		return nil, err
	}
	p, err := gc.products.Find(c.Context(), id)
	if err != nil {
		if orm.IsNotFound(err) {
			return nil, httperr.NewNotFound("Product not found", err)
		}
		return nil, fmt.Errorf("load product %d: %w", id, err)
	}
	if !p.OwnedBy(user.ID) {
		return nil, httperr.NewForbidden(msgNotOwner)
	}
	return p, nil
}

// List renders the user's products.
func (gc *GroceryListController) List(c *ctx.Context) error {
	user, err := gc.requireUser(c, http.StatusFound)
	if err != nil {
		return err
	}

	groceries, err := gc.products.ForOwner(c.Context(), user.ID)
	if err != nil {
		return fmt.Errorf("list products: %w", err)
	}

	return c.Render(http.StatusOK, "grocerylist/list", ctx.Data{
		"user":      user,
		"groceries": groceries,
	})
}

// Show renders one product of the user.
func (gc *GroceryListController) Show(c *ctx.Context) error {
	user, err := gc.requireUser(c, http.StatusFound)
	if err != nil {
		return err
	}
	product, err := gc.ownedProduct(c, user)
	if err != nil {
		return err
	}

	return c.Render(http.StatusOK, "grocerylist/show", ctx.Data{
		"user":    user,
		"product": product,
	})
}

// Create adds a product to the user's list.
func (gc *GroceryListController) Create(c *ctx.Context) error {
	user, err := gc.requireUser(c, http.StatusUnauthorized)
	if err != nil {
		return err
	}

	product := &models.Product{OwnerID: user.ID, Quantity: 1}
	f := form.New("product", product)
	if err := f.Handle(c.R); err != nil {
		return err
	}
	if f.IsSubmitted() && f.IsValid() {
		if err := gc.commit(c.Context(), func(m orm.Manager) { m.Persist(product) }); err != nil {
			return fmt.Errorf("create product: %w", err)
		}
		gc.events.Fire(c.Context(), events.ProductCreated, events.Changed("created", product))

		c.Flash("notice", MsgAdded)
		return c.RedirectToRoute("app_grocerylist_product", idParam(product.ID), http.StatusFound)
	}

	return c.Render(formStatus(f.IsSubmitted()), "grocerylist/create", ctx.Data{
		"user": user,
		"form": f,
	})
}

// Update edits a product of the user.
func (gc *GroceryListController) Update(c *ctx.Context) error {
	user, err := gc.requireUser(c, http.StatusUnauthorized)
	if err != nil {
		return err
	}
	product, err := gc.ownedProduct(c, user)
	if err != nil {
		return err
	}

	f := form.New("product", product)
	if err := f.Handle(c.R); err != nil {
		return err
	}
	if f.IsSubmitted() && f.IsValid() {
		if err := gc.commit(c.Context(), func(m orm.Manager) { m.Persist(product) }); err != nil {
			if orm.IsNotFound(err) {
				return httperr.NewNotFound("Product not found", err)
			}
			return fmt.Errorf("update product %d: %w", product.ID, err)
		}
		gc.events.Fire(c.Context(), events.ProductUpdated, events.Changed("updated", product))

		c.Flash("notice", MsgUpdated)
		return c.RedirectToRoute("app_grocerylist_product", idParam(product.ID), http.StatusFound)
	}

	return c.Render(formStatus(f.IsSubmitted()), "grocerylist/update", ctx.Data{
		"user":    user,
		"product": product,
		"form":    f,
	})
}

// Delete removes a product of the user after confirmation.
func (gc *GroceryListController) Delete(c *ctx.Context) error {
	user, err := gc.requireUser(c, http.StatusUnauthorized)
	if err != nil {
		return err
	}
	product, err := gc.ownedProduct(c, user)
	if err != nil {
		return err
	}

	f := form.New("confirm", &form.Confirm{})
	if err := f.Handle(c.R); err != nil {
		return err
	}
	if f.IsSubmitted() && f.IsValid() {
		if err := gc.commit(c.Context(), func(m orm.Manager) { m.Remove(product) }); err != nil {
			return fmt.Errorf("delete product %d: %w", product.ID, err)
		}
		gc.events.Fire(c.Context(), events.ProductDeleted, events.Changed("deleted", product))

		c.Flash("notice", MsgRemoved)
		return c.RedirectToRoute("app_grocerylist", nil, http.StatusFound)
	}

	return c.Render(formStatus(f.IsSubmitted()), "grocerylist/delete", ctx.Data{
		"user":    user,
		"product": product,
		"form":    f,
	})
}

func (gc *GroceryListController) commit(ctx context.Context, queue func(m orm.Manager)) error {
	m := gc.newSession()
	queue(m)
	return m.Flush(ctx)
}

func idParam(id uint) map[string]string {
	return map[string]string{"id": strconv.FormatUint(uint64(id), 10)}
}

// formStatus is 422 for a rejected submission, 200 for a first display.
func formStatus(submitted bool) int {
	if submitted {
		return http.StatusUnprocessableEntity
	}
	return http.StatusOK
}
