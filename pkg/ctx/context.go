// Package ctx provides the request context grocerylist handlers receive.
//
// Handlers take a single *Context and return an error; the Engine that
// wraps them turns a returned *httperr.Error into the matching response:
//
//	func (gc *GroceryListController) Show(c *ctx.Context) error {
//	    id, err := c.ParamUint("id")
//	    if err != nil {
//	        return err
//	    }
//	    ...
//	    return c.Render(http.StatusOK, "grocerylist/show", ctx.Data{"product": p})
//	}
//
//	router.Get("/grocerylist/{id:[0-9]+}", "app_grocerylist_product", engine.Wrap(gc.Show))
package ctx

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/shashiranjanraj/grocerylist/pkg/form"
	"github.com/shashiranjanraj/grocerylist/pkg/httperr"
	"github.com/shashiranjanraj/grocerylist/pkg/logger"
	"github.com/shashiranjanraj/grocerylist/pkg/metrics"
	"github.com/shashiranjanraj/grocerylist/pkg/middleware"
	"github.com/shashiranjanraj/grocerylist/pkg/session"
)

// LoginRoute is where Unauthenticated errors send the client.
const LoginRoute = "app_login"

// Data is the template data of a page.
type Data map[string]interface{}

// HandlerFunc is the grocerylist handler signature.
type HandlerFunc func(c *Context) error

// Renderer renders a named page.
type Renderer interface {
	Render(w io.Writer, name string, data map[string]interface{}) error
}

// URLGenerator builds a path from a route name.
type URLGenerator interface {
	URL(name string, params map[string]string) (string, error)
}

// Engine binds handlers to the renderer and route table.
type Engine struct {
	views Renderer
	urls  URLGenerator
}

func NewEngine(views Renderer, urls URLGenerator) *Engine {
	return &Engine{views: views, urls: urls}
}

// Wrap converts a HandlerFunc to a standard http.HandlerFunc.
func (e *Engine) Wrap(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := &Context{W: w, R: r, engine: e}
		if err := h(c); err != nil {
			e.fail(c, err)
		}
	}
}

func (e *Engine) fail(c *Context, err error) {
	he := httperr.Wrap(err)
	log := logger.WithCtx(c.Context())

	switch he.Kind {
	case httperr.Unauthenticated:
		metrics.AuthFailures.WithLabelValues("unauthenticated").Inc()
		if err := c.RedirectToRoute(LoginRoute, nil, he.Status()); err != nil {
			log.Error("login redirect failed", "error", err)
			http.Error(c.W, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		}
		return
	case httperr.Forbidden:
		metrics.AuthFailures.WithLabelValues("forbidden").Inc()
		log.Info("request forbidden", "path", c.R.URL.Path, "reason", he.Message)
	case httperr.Internal:
		log.Error("request failed", "path", c.R.URL.Path, "error", err)
	default:
		log.Info("request rejected", "path", c.R.URL.Path, "kind", he.Kind.String(), "error", err)
	}

	if c.status != 0 {
		// Too late for an error page.
		return
	}
	status := he.Status()
	msg := he.Message
	if he.Kind == httperr.Internal {
		msg = "Something went wrong. Please try again later."
	}
	if err := c.Render(status, "error", Data{
		"status":      status,
		"status_text": http.StatusText(status),
		"message":     msg,
	}); err != nil {
		log.Error("error page failed", "error", err)
		http.Error(c.W, http.StatusText(status), status)
	}
}

// Context wraps a request/response pair.
type Context struct {
	W      http.ResponseWriter
	R      *http.Request
	engine *Engine
	status int
}

// Param returns a URL path parameter.
func (c *Context) Param(key string) string {
	return chi.URLParam(c.R, key)
}

// ParamUint parses a numeric path parameter; anything else is NotFound.
func (c *Context) ParamUint(key string) (uint, error) {
	raw := c.Param(key)
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		return 0, httperr.NewNotFound("Not Found", fmt.Errorf("bad %s parameter %q", key, raw))
	}
	return uint(n), nil
}

func (c *Context) Context() context.Context { return c.R.Context() }

// ClientIP is the client address as the rate limiter sees it.
func (c *Context) ClientIP() string {
	return middleware.ClientIP(c.R)
}

// Session returns the request's session.
func (c *Context) Session() *session.Session {
	return session.FromCtx(c.Context())
}

// Flash queues a message for the next rendered page.
func (c *Context) Flash(typ, msg string) {
	c.Session().Flash(typ, msg)
}

// URL builds a path from a route name.
func (c *Context) URL(name string, params map[string]string) (string, error) {
	return c.engine.urls.URL(name, params)
}

// Render writes page name with status. Pending flashes and the logout
// token are added to data.
func (c *Context) Render(status int, name string, data Data) error {
	if data == nil {
		data = Data{}
	}
	sess := c.Session()
	data["flashes"] = sess.Flashes()
	data["logout_token"] = form.CSRFToken(sess, "logout")

	c.W.Header().Set("Content-Type", "text/html; charset=utf-8")
	var buf strings.Builder
	if err := c.engine.views.Render(&buf, name, data); err != nil {
		return err
	}
	c.Status(status)
	_, err := io.WriteString(c.W, buf.String())
	return err
}

// RedirectToRoute redirects to a named route. Non-3xx statuses (the 401
// login redirect) still carry the Location header.
func (c *Context) RedirectToRoute(name string, params map[string]string, status int) error {
	target, err := c.URL(name, params)
	if err != nil {
		return err
	}
	c.Redirect(status, target)
	return nil
}

// Redirect sends Location with status and a short HTML body.
func (c *Context) Redirect(status int, target string) {
	c.W.Header().Set("Location", target)
	c.W.Header().Set("Content-Type", "text/html; charset=utf-8")
	c.Status(status)
	esc := html.EscapeString(target)
	fmt.Fprintf(c.W, `<!DOCTYPE html><html><head><meta http-equiv="refresh" content="0;url='%s'"><title>Redirecting to %s</title></head><body>Redirecting to <a href="%s">%s</a>.</body></html>`, esc, esc, esc, esc)
}

// Status writes the status line once.
func (c *Context) Status(code int) {
	if c.status != 0 {
		return
	}
	c.status = code
	c.W.WriteHeader(code)
}
