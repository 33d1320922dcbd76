package controllers_test

import (
	"context"
	"io/fs"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/grocerylist/app/controllers"
	"github.com/shashiranjanraj/grocerylist/app/models"
	"github.com/shashiranjanraj/grocerylist/app/routes"
	"github.com/shashiranjanraj/grocerylist/pkg/auth"
	"github.com/shashiranjanraj/grocerylist/pkg/cache"
	"github.com/shashiranjanraj/grocerylist/pkg/ctx"
	"github.com/shashiranjanraj/grocerylist/pkg/orm"
	"github.com/shashiranjanraj/grocerylist/pkg/router"
	"github.com/shashiranjanraj/grocerylist/pkg/session"
	"github.com/shashiranjanraj/grocerylist/pkg/testkit"
	"github.com/shashiranjanraj/grocerylist/pkg/view"
	"github.com/shashiranjanraj/grocerylist/resources"
)

// ─── Fakes ───────────────────────────────────────────────────────────────────

// users resolves the session user and checks passwords in plain text.
type users struct {
	byID map[uint]*models.User
}

func (u *users) CurrentUser(ctx context.Context) (*models.User, error) {
	id, ok := auth.UserID(ctx)
	if !ok {
		return nil, nil
	}
	return u.byID[id], nil
}

func (u *users) Attempt(_ context.Context, email, password string) (*models.User, error) {
	for _, user := range u.byID {
		if user.Email == email && user.Password == password {
			return user, nil
		}
	}
	return nil, auth.ErrBadCredentials
}

// store is an in-memory ProductStore; uow applies queued ops to it on Flush.
type store struct {
	mu      sync.Mutex
	rows    map[uint]models.Product
	nextID  uint
	flushes int
	// beforeFlush runs under the lock, ahead of the queued ops.
	beforeFlush func(rows map[uint]models.Product)
}

func (s *store) Find(_ context.Context, id uint) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[id]
	if !ok {
		return nil, orm.ErrNotFound
	}
	return &p, nil
}

func (s *store) ForOwner(_ context.Context, owner uint) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Product
	for _, p := range s.rows {
		if p.OwnerID == owner {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *store) add(owner uint, name string, qty int) uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.rows[s.nextID] = models.Product{Model: gorm.Model{ID: s.nextID, CreatedAt: time.Now()}, OwnerID: owner, Name: name, Quantity: qty}
	return s.nextID
}

func (s *store) get(id uint) (models.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[id]
	return p, ok
}

type uow struct {
	s       *store
	persist []*models.Product
	remove  []*models.Product
}

func (u *uow) Persist(e interface{}) { u.persist = append(u.persist, e.(*models.Product)) }
func (u *uow) Remove(e interface{})  { u.remove = append(u.remove, e.(*models.Product)) }

func (u *uow) Flush(context.Context) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	u.s.flushes++
	if u.s.beforeFlush != nil {
		u.s.beforeFlush(u.s.rows)
	}
	for _, p := range u.persist {
		if p.ID == 0 {
			u.s.nextID++
			p.ID = u.s.nextID
			p.CreatedAt = time.Now()
		} else if _, ok := u.s.rows[p.ID]; !ok {
			return orm.ErrNotFound
		}
		u.s.rows[p.ID] = *p
	}
	for _, p := range u.remove {
		delete(u.s.rows, p.ID)
	}
	return nil
}

type fired struct {
	mu     sync.Mutex
	events []string
}

func (f *fired) Fire(_ context.Context, event string, _ interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fired) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

// ─── Fixture ─────────────────────────────────────────────────────────────────

const (
	ann = uint(1)
	bob = uint(2)
)

type app struct {
	handler http.Handler
	store   *store
	events  *fired
}

func newApp(t *testing.T) *app {
	t.Helper()
	u := &users{byID: map[uint]*models.User{
		ann: {Model: gorm.Model{ID: ann}, Name: "Ann", Email: "ann@example.com", Password: "ann-pw"},
		bob: {Model: gorm.Model{ID: bob}, Name: "Bob", Email: "bob@example.com", Password: "bob-pw"},
	}}
	s := &store{rows: map[uint]models.Product{}}
	ev := &fired{}

	r := router.New()
	r.Use(session.NewManager(cache.NewMemoryStore(), session.DefaultOptions()).Middleware())
	r.Use(auth.Middleware())

	sub, err := fs.Sub(resources.Views, "views")
	require.NoError(t, err)
	views, err := view.New(sub, r)
	require.NoError(t, err)

	routes.Register(r, routes.Web{
		Engine:      ctx.NewEngine(views, r),
		GroceryList: controllers.NewGroceryListController(u, s, func() orm.Manager { return &uow{s: s} }, ev),
		Auth:        controllers.NewAuthController(u, u),
	})
	return &app{handler: r.Handler(), store: s, events: ev}
}

func (a *app) browser(t *testing.T, email, password string) *testkit.Browser {
	t.Helper()
	b := testkit.NewBrowser(t, a.handler)
	if email != "" {
		testkit.AssertRedirect(t, b.Login("/login", email, password), http.StatusFound, "/grocerylist")
	}
	return b
}

func productURL(id uint, action string) string {
	p := "/grocerylist/" + strconv.FormatUint(uint64(id), 10)
	if action != "" {
		p += "/" + action
	}
	return p
}
