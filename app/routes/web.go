// Package routes registers every named grocerylist route.
package routes

import (
	"net/http"

	"github.com/shashiranjanraj/grocerylist/app/controllers"
	"github.com/shashiranjanraj/grocerylist/pkg/ctx"
	"github.com/shashiranjanraj/grocerylist/pkg/httperr"
	"github.com/shashiranjanraj/grocerylist/pkg/middleware"
	"github.com/shashiranjanraj/grocerylist/pkg/router"
)

var getPost = []string{http.MethodGet, http.MethodPost}

// Web holds what the routes dispatch to. Nil handlers are registered as
// 404 placeholders so route:list still shows them.
type Web struct {
	Engine      *ctx.Engine
	GroceryList *controllers.GroceryListController
	Auth        *controllers.AuthController
	Live        *controllers.LiveController
	GraphQL     http.Handler
	Metrics     http.Handler

	// LoginLimit throttles credential checks. API wraps /graphql (CORS).
	LoginLimit router.Middleware
	API        router.Middleware
}

// Register mounts the routes on r.
func Register(r *router.Router, w Web) {
	e := w.Engine
	gc := w.GroceryList
	ac := w.Auth

	r.Get("/", "app_home", e.Wrap(controllers.Home))

	r.Match(getPost, "/login", "app_login", e.Wrap(ac.Login), optional(w.LoginLimit)...)
	r.Post("/logout", "app_logout", e.Wrap(ac.Logout))

	list := r.Group("/grocerylist")
	list.Get("/", "app_grocerylist", e.Wrap(gc.List))
	list.Get("/{id:[0-9]+}", "app_grocerylist_product", e.Wrap(gc.Show))
	list.Match(getPost, "/create", "app_grocerylist_create", e.Wrap(gc.Create))
	list.Match(getPost, "/{id:[0-9]+}/update", "app_grocerylist_update", e.Wrap(gc.Update))
	list.Match(getPost, "/{id:[0-9]+}/delete", "app_grocerylist_delete", e.Wrap(gc.Delete))

	var live http.HandlerFunc = http.NotFound
	if w.Live != nil {
		live = w.Live.Feed
	}
	list.Get("/live", "app_grocerylist_live", live, middleware.RequireUser)

	graphql := http.HandlerFunc(http.NotFound)
	if w.GraphQL != nil {
		graphql = w.GraphQL.ServeHTTP
	}
	r.Match([]string{http.MethodPost, http.MethodOptions}, "/graphql", "app_graphql", graphql,
		append(optional(w.API), middleware.RequireUser)...)

	metrics := http.HandlerFunc(http.NotFound)
	if w.Metrics != nil {
		metrics = w.Metrics.ServeHTTP
	}
	r.Get("/metrics", "metrics", metrics)

	r.NotFound(e.Wrap(func(*ctx.Context) error {
		return httperr.NewNotFound("Not Found", nil)
	}))
}

func optional(mw router.Middleware) []router.Middleware {
	if mw == nil {
		return nil
	}
	return []router.Middleware{mw}
}
