// Package kernel builds the grocerylist HTTP application: repositories,
// controllers, routes and the global middleware stack.
package kernel

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/grocerylist/app/controllers"
	"github.com/shashiranjanraj/grocerylist/app/events"
	appgql "github.com/shashiranjanraj/grocerylist/app/graphql"
	"github.com/shashiranjanraj/grocerylist/app/repositories"
	"github.com/shashiranjanraj/grocerylist/app/routes"
	"github.com/shashiranjanraj/grocerylist/app/security"
	"github.com/shashiranjanraj/grocerylist/app/services"
	"github.com/shashiranjanraj/grocerylist/config"
	"github.com/shashiranjanraj/grocerylist/pkg/auth"
	"github.com/shashiranjanraj/grocerylist/pkg/cache"
	"github.com/shashiranjanraj/grocerylist/pkg/ctx"
	"github.com/shashiranjanraj/grocerylist/pkg/event"
	gql "github.com/shashiranjanraj/grocerylist/pkg/graphql"
	"github.com/shashiranjanraj/grocerylist/pkg/metrics"
	"github.com/shashiranjanraj/grocerylist/pkg/middleware"
	"github.com/shashiranjanraj/grocerylist/pkg/orm"
	"github.com/shashiranjanraj/grocerylist/pkg/reqid"
	"github.com/shashiranjanraj/grocerylist/pkg/router"
	"github.com/shashiranjanraj/grocerylist/pkg/session"
	"github.com/shashiranjanraj/grocerylist/pkg/view"
	"github.com/shashiranjanraj/grocerylist/pkg/workerpool"
	"github.com/shashiranjanraj/grocerylist/pkg/ws"
	"github.com/shashiranjanraj/grocerylist/resources"
)

// Kernel is the assembled application.
type Kernel struct {
	Router *router.Router
	Hub    *ws.Hub
	Bus    *event.Bus

	limiter *middleware.RateLimiter
	pool    *workerpool.Pool
	handler http.Handler
}

// New wires the application over db, keeping sessions in sessions.
func New(db *gorm.DB, sessions cache.Store) (*Kernel, error) {
	r := router.New()

	// Outermost first. The request id must exist before anything logs, and
	// auth reads the session. otelhttp wraps all of it in Handler.
	opts := session.DefaultOptions()
	opts.TTL = config.SessionTTL()
	opts.Secure = config.IsProduction()

	r.Use(metrics.Middleware())
	r.Use(middleware.Recovery)
	r.Use(reqid.Middleware())
	r.Use(middleware.Logger)
	r.Use(session.NewManager(sessions, opts).Middleware())
	r.Use(auth.Middleware())

	sub, err := fs.Sub(resources.Views, "views")
	if err != nil {
		return nil, fmt.Errorf("kernel: views: %w", err)
	}
	views, err := view.New(sub, r)
	if err != nil {
		return nil, fmt.Errorf("kernel: views: %w", err)
	}

	users := repositories.NewUserRepository(db)
	products := repositories.NewProductRepository(db)
	provider := security.NewProvider(users)

	hub := ws.NewHub()
	pool := workerpool.New(config.Int("EVENT_WORKERS", 4))
	bus := event.NewBus()
	bus.UsePool(pool)
	events.Subscribe(bus, hub)

	schema, err := appgql.NewSchema(products)
	if err != nil {
		return nil, fmt.Errorf("kernel: graphql schema: %w", err)
	}

	if err := middleware.SetTrustedProxies(config.Get("TRUSTED_PROXIES", "")); err != nil {
		return nil, fmt.Errorf("kernel: %w", err)
	}
	limiter := middleware.NewRateLimiter(config.Int("LOGIN_RATE_LIMIT", 10), time.Minute)

	routes.Register(r, routes.Web{
		Engine: ctx.NewEngine(views, r),
		GroceryList: controllers.NewGroceryListController(provider, products,
			func() orm.Manager { return orm.NewSession(db) }, asyncEvents{bus}),
		Auth:       controllers.NewAuthController(provider, services.NewAuthService(users)),
		Live:       controllers.NewLiveController(hub),
		GraphQL:    gql.Handler(schema),
		Metrics:    metrics.Handler(),
		LoginLimit: onlyPost(limiter.Middleware),
		API:        middleware.CORS(middleware.APICORSOptions(config.Get("CORS_ALLOWED_ORIGINS", ""))),
	})

	return &Kernel{
		Router:  r,
		Hub:     hub,
		Bus:     bus,
		limiter: limiter,
		pool:    pool,
		handler: otelhttp.NewHandler(r.Handler(), "grocerylist"),
	}, nil
}

// Handler is the root http.Handler.
func (k *Kernel) Handler() http.Handler { return k.handler }

// Run drives the background loops (live feed hub, limiter eviction) until
// ctx is done, then drains pending event listeners.
func (k *Kernel) Run(ctx context.Context) {
	go k.limiter.Evict(ctx)
	k.Hub.Run(ctx)
	k.pool.Shutdown()
}

// asyncEvents hands flushed changes to the bus without holding the response.
type asyncEvents struct{ bus *event.Bus }

func (a asyncEvents) Fire(ctx context.Context, name string, payload interface{}) {
	a.bus.FireAsync(context.WithoutCancel(ctx), name, payload)
}

// onlyPost applies mw to credential submissions, not to showing the form.
func onlyPost(mw router.Middleware) router.Middleware {
	return func(next http.Handler) http.Handler {
		limited := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				limited.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
