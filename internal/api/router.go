// Package api is the HTTP surface of the ordering service.
//
// Routes:
//
//	GET  /healthz                 store ping, no session required
//	GET  /restaurants             all restaurants
//	GET  /restaurants/:id/menu    menu of one restaurant
//	GET  /orders                  all orders, newest first
//	POST /orders                  submit an order
//	GET  /orders/:id              one order
//
// Every route except /healthz requires the session cookie to be present.
// Errors are returned as {"error": "...", "field": "..."}.
package api

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/roach88/zwiggato/internal/catalog"
	"github.com/roach88/zwiggato/internal/order"
)

// DefaultSessionCookie is the cookie set by the upstream session service.
const DefaultSessionCookie = "zwiggato_session"

// CatalogReader lists catalog rows. *store.Store implements it.
type CatalogReader interface {
	ListRestaurants(ctx context.Context) ([]catalog.Restaurant, error)
	ListMenu(ctx context.Context, restaurantID int64) ([]catalog.MenuItem, error)
}

// OrderSubmitter accepts orders. *ledger.Ledger implements it.
type OrderSubmitter interface {
	Submit(ctx context.Context, sub order.Submission) (order.Order, error)
}

// OrderReader reads orders. *ledger.Reader implements it.
type OrderReader interface {
	List(ctx context.Context) ([]order.Order, error)
	Get(ctx context.Context, id int64) (order.Order, error)
}

// Pinger reports store health. *store.Store implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of the router.
type Deps struct {
	Catalog CatalogReader
	Ledger  OrderSubmitter
	Orders  OrderReader
	Health  Pinger

	// SessionCookie names the cookie every non-health route requires.
	// Empty disables the check.
	SessionCookie string

	Logger *slog.Logger
}

// NewRouter builds the gin engine. The caller picks the gin mode.
func NewRouter(deps Deps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &handlers{deps: deps, logger: logger}

	r := gin.New()
	r.Use(RequestID(), AccessLog(logger), Recovery(logger))
	r.NoRoute(func(c *gin.Context) {
		writeError(c, notFound("route not found"), logger)
	})

	r.GET("/healthz", h.health)

	authed := r.Group("/", RequireSession(deps.SessionCookie))
	{
		restaurants := authed.Group("/restaurants")
		restaurants.GET("", h.listRestaurants)
		restaurants.GET("/:id/menu", h.listMenu)

		orders := authed.Group("/orders")
		orders.GET("", h.listOrders)
		orders.POST("", h.createOrder)
		orders.GET("/:id", h.getOrder)
	}

	return r
}
