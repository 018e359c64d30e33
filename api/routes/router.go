package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/acctbay/storefront-backend/api/controllers"
	"github.com/acctbay/storefront-backend/api/middleware"
	"github.com/acctbay/storefront-backend/internal/auth"
	cartsvc "github.com/acctbay/storefront-backend/internal/cart"
	checkoutsvc "github.com/acctbay/storefront-backend/internal/checkout"
	ordersvc "github.com/acctbay/storefront-backend/internal/orders"
	productsvc "github.com/acctbay/storefront-backend/internal/products"
	reviewsvc "github.com/acctbay/storefront-backend/internal/reviews"
	settingsvc "github.com/acctbay/storefront-backend/internal/settings"
	statsvc "github.com/acctbay/storefront-backend/internal/stats"
	"github.com/acctbay/storefront-backend/pkg/config"
	"github.com/acctbay/storefront-backend/pkg/db"
	"github.com/acctbay/storefront-backend/pkg/logger"
	"github.com/acctbay/storefront-backend/pkg/redis"
)

// Deps bundles everything the router wires into handlers.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    *redis.Client
	Auth     auth.Service
	Products productsvc.Service
	Cart     cartsvc.Service
	Checkout checkoutsvc.Service
	Orders   ordersvc.Service
	Reviews  reviewsvc.Service
	Settings settingsvc.Service
	Stats    *statsvc.Service

	// MetricsHandler serves the Prometheus scrape endpoint when set.
	MetricsHandler http.Handler
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	otpPolicy := middleware.NewAuthRateLimitPolicy(
		"otp",
		cfg.AuthRateLimit.OTPWindow,
		cfg.AuthRateLimit.OTPIPLimit,
		cfg.AuthRateLimit.OTPEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.DB, d.Redis))
	})

	if d.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", d.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(otpPolicy, d.Redis, logg)).Post("/request-code", controllers.AuthRequestCode(d.Auth, logg))
			r.With(middleware.AuthRateLimit(otpPolicy, d.Redis, logg)).Post("/verify-code", controllers.AuthVerifyCode(d.Auth, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(d.Auth, logg))
				r.Post("/sign-out", controllers.AuthSignOut(d.Auth, logg))
				r.Get("/me", controllers.AuthMe(logg))
			})
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductsList(d.Products, logg))
			r.Get("/featured", controllers.ProductsFeatured(d.Products, logg))
			r.Get("/{slug}", controllers.ProductBySlug(d.Products, logg))
			r.Get("/{productId}/variants", controllers.ProductVariants(d.Products, logg))
			r.Get("/{productId}/reviews", controllers.ProductReviews(d.Reviews, logg))
		})

		r.Get("/reviews", controllers.ReviewsList(d.Reviews, logg))
		r.Get("/settings", controllers.SettingsAll(d.Settings, logg))
		r.Get("/stats", controllers.SiteStats(d.Stats, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(d.Auth, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(d.Cart, logg))
				r.Delete("/", controllers.CartClear(d.Cart, logg))
				r.Post("/items", controllers.CartAddItem(d.Cart, logg))
				r.Patch("/items/{itemId}", controllers.CartUpdateItem(d.Cart, logg))
				r.Delete("/items/{itemId}", controllers.CartRemoveItem(d.Cart, logg))
			})

			r.Post("/checkout", controllers.Checkout(d.Checkout, logg))
			r.Post("/checkout/buy-now", controllers.CheckoutBuyNow(d.Checkout, logg))
			r.Get("/orders", controllers.OrdersList(d.Orders, logg))
			r.Post("/reviews", controllers.ReviewSubmit(d.Reviews, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(d.Auth, logg))
		r.Use(middleware.RequireAdmin(logg))

		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.AdminCreateProduct(d.Products, logg))
			r.Put("/{productId}", controllers.AdminUpdateProduct(d.Products, logg))
			r.Delete("/{productId}", controllers.AdminDeleteProduct(d.Products, logg))
			r.Post("/{productId}/variants", controllers.AdminCreateVariant(d.Products, logg))
		})
		r.Route("/variants", func(r chi.Router) {
			r.Put("/{variantId}", controllers.AdminUpdateVariant(d.Products, logg))
			r.Delete("/{variantId}", controllers.AdminDeleteVariant(d.Products, logg))
		})
		r.Delete("/reviews/{reviewId}", controllers.AdminDeleteReview(d.Reviews, logg))
		r.Route("/settings", func(r chi.Router) {
			r.Put("/{key}", controllers.AdminUpsertSetting(d.Settings, logg))
			r.Delete("/{key}", controllers.AdminDeleteSetting(d.Settings, logg))
		})
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminOrdersList(d.Orders, logg))
			r.Patch("/{orderId}", controllers.AdminUpdateOrderStatus(d.Orders, logg))
		})
	})

	return r
}
