package ctx_test

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "github.com/shashiranjanraj/grocerylist/pkg/ctx"
	"github.com/shashiranjanraj/grocerylist/pkg/httperr"
	"github.com/shashiranjanraj/grocerylist/pkg/router"
	"github.com/shashiranjanraj/grocerylist/pkg/session"
)

// pageRecorder renders "<name>|<message>" and remembers the data it got.
type pageRecorder struct {
	last map[string]interface{}
}

func (p *pageRecorder) Render(w io.Writer, name string, data map[string]interface{}) error {
	p.last = data
	_, err := fmt.Fprintf(w, "%s|%v", name, data["message"])
	return err
}

func newEngine() (*appctx.Engine, *pageRecorder) {
	r := router.New()
	noop := func(http.ResponseWriter, *http.Request) {}
	r.Get("/login", appctx.LoginRoute, noop)
	r.Get("/grocerylist/{id}", "app_grocerylist_product", noop)
	pages := &pageRecorder{}
	return appctx.NewEngine(pages, r), pages
}

func serve(h http.HandlerFunc) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/grocerylist/1", nil))
	return rec
}

func TestUnauthenticatedRedirectKeepsStatus(t *testing.T) {
	e, _ := newEngine()

	rec := serve(e.Wrap(func(c *appctx.Context) error { return httperr.NewUnauthenticated(0) }))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec = serve(e.Wrap(func(c *appctx.Context) error {
		return fmt.Errorf("create: %w", httperr.NewUnauthenticated(http.StatusUnauthorized))
	}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestForbiddenRendersErrorPage(t *testing.T) {
	e, _ := newEngine()
	rec := serve(e.Wrap(func(c *appctx.Context) error {
		return httperr.NewForbidden("User does not have permission to view this")
	}))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "error|User does not have permission to view this", rec.Body.String())
}

func TestInternalHidesCause(t *testing.T) {
	e, _ := newEngine()
	rec := serve(e.Wrap(func(c *appctx.Context) error { return errors.New("db password is hunter2") }))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "hunter2")
}

func TestRenderConsumesFlashes(t *testing.T) {
	e, pages := newEngine()
	sess := session.FromCtx(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	sess.Flash("notice", "Saved!")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(session.WithSession(req.Context(), sess))
	e.Wrap(func(c *appctx.Context) error {
		return c.Render(http.StatusOK, "grocerylist/list", appctx.Data{"user": "ann"})
	})(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string][]string{"notice": {"Saved!"}}, pages.last["flashes"])
	assert.NotEmpty(t, pages.last["logout_token"])
	assert.Empty(t, sess.Flashes())
}

func TestRedirectToRouteWithParams(t *testing.T) {
	e, _ := newEngine()
	rec := serve(e.Wrap(func(c *appctx.Context) error {
		return c.RedirectToRoute("app_grocerylist_product", map[string]string{"id": "12"}, http.StatusFound)
	}))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/grocerylist/12", rec.Header().Get("Location"))
}

func TestErrorAfterWriteKeepsResponse(t *testing.T) {
	e, _ := newEngine()
	rec := serve(e.Wrap(func(c *appctx.Context) error {
		c.Status(http.StatusAccepted)
		return errors.New("late failure")
	}))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestParamUintRejectsGarbage(t *testing.T) {
	e, _ := newEngine()
	rec := serve(e.Wrap(func(c *appctx.Context) error {
		_, err := c.ParamUint("id")
		return err
	}))
	// No chi route context here, so the param is empty.
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
