package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Deps are the services and settings the router needs.
type Deps struct {
	Orders      Orders
	Catalog     Catalog
	Logger      *slog.Logger
	CORSOrigins []string
	// DB is pinged by /health. Nil skips the check.
	DB Pinger
}

func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(CORS(d.CORSOrigins))
	r.Use(Identity)

	r.NotFound(NotFoundHandler().ServeHTTP)
	r.MethodNotAllowed(MethodNotAllowedHandler().ServeHTTP)

	r.Get("/health", HandleHealth(d.DB))

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", HandlePlaceOrder(d.Orders, logger))
		r.Get("/", HandleListOrders(d.Orders, logger))
		r.Get("/{orderID}", HandleGetOrder(d.Orders, logger))
		r.Put("/{orderID}", HandleUpdateOrderStatus(d.Orders, logger))
	})

	r.Route("/products", func(r chi.Router) {
		r.Post("/", HandleCreateProduct(d.Catalog, logger))
		r.Get("/", HandleListProducts(d.Catalog, logger))
		r.Get("/{productID}", HandleGetProduct(d.Catalog, logger))
		r.Put("/{productID}", HandleUpdateProduct(d.Catalog, logger))
		r.Delete("/{productID}", HandleDeleteProduct(d.Catalog, logger))
	})

	return r
}
