package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nikhilmehra04/stylehub-backend/api/controllers"
	"github.com/nikhilmehra04/stylehub-backend/api/middleware"
	addresssvc "github.com/nikhilmehra04/stylehub-backend/internal/addresses"
	cartsvc "github.com/nikhilmehra04/stylehub-backend/internal/cart"
	ordersvc "github.com/nikhilmehra04/stylehub-backend/internal/orders"
	paymentsvc "github.com/nikhilmehra04/stylehub-backend/internal/payments"
	productsvc "github.com/nikhilmehra04/stylehub-backend/internal/products"
	vtonsvc "github.com/nikhilmehra04/stylehub-backend/internal/vton"
	wishlistsvc "github.com/nikhilmehra04/stylehub-backend/internal/wishlist"
	"github.com/nikhilmehra04/stylehub-backend/pkg/config"
	"github.com/nikhilmehra04/stylehub-backend/pkg/enums"
	"github.com/nikhilmehra04/stylehub-backend/pkg/logger"
	pkgredis "github.com/nikhilmehra04/stylehub-backend/pkg/redis"
)

// Services bundles everything the router wires into handlers.
type Services struct {
	Products  productsvc.Service
	Cart      cartsvc.Service
	Orders    ordersvc.Service
	Payments  paymentsvc.Service
	Addresses addresssvc.Service
	Wishlist  wishlistsvc.Service
	Vton      vtonsvc.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *pkgredis.Client,
	deps map[string]controllers.Pinger,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps))
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ProductList(svcs.Products, logg))
		r.Get("/{productID}", controllers.ProductGet(svcs.Products, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore(redisClient), logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartList(svcs.Cart, logg))
			r.Post("/items", controllers.CartAddItem(svcs.Cart, logg))
			r.Put("/items/{variantID}", controllers.CartUpdateItem(svcs.Cart, logg))
			r.Delete("/items/{variantID}", controllers.CartRemoveItem(svcs.Cart, logg))
			r.Delete("/", controllers.CartClear(svcs.Cart, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.OrderCreate(svcs.Orders, logg))
			r.Get("/", controllers.OrderList(svcs.Orders, logg))
			r.Get("/{orderID}", controllers.OrderGet(svcs.Orders, logg))
			r.Post("/{orderID}/cancel", controllers.OrderCancel(svcs.Orders, logg))

			r.Route("/{orderID}/payments", func(r chi.Router) {
				r.Post("/", controllers.PaymentInitiate(svcs.Payments, logg))
				r.Post("/verify", controllers.PaymentVerify(svcs.Payments, logg))
				r.Get("/", controllers.PaymentStatus(svcs.Payments, logg))
			})
		})

		r.Route("/addresses", func(r chi.Router) {
			r.Get("/", controllers.AddressList(svcs.Addresses, logg))
			r.Post("/", controllers.AddressCreate(svcs.Addresses, logg))
			r.Put("/{addressID}", controllers.AddressUpdate(svcs.Addresses, logg))
			r.Delete("/{addressID}", controllers.AddressDelete(svcs.Addresses, logg))
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", controllers.WishlistList(svcs.Wishlist, logg))
			r.Post("/", controllers.WishlistAdd(svcs.Wishlist, logg))
			r.Delete("/{productID}", controllers.WishlistRemove(svcs.Wishlist, logg))
		})

		r.Route("/vton", func(r chi.Router) {
			r.Post("/upload-url", controllers.VtonUploadURL(svcs.Vton, logg))
			r.Post("/images", controllers.VtonSaveImage(svcs.Vton, logg))
			r.Get("/images", controllers.VtonListImages(svcs.Vton, logg))
			r.Delete("/images/{imageID}", controllers.VtonDeleteImage(svcs.Vton, logg))
			r.With(middleware.RateLimit(rateLimiter(redisClient), cfg.Vton.GenerateLimit, cfg.Vton.GenerateLimitWin, logg)).
				Post("/generate", controllers.VtonGenerate(svcs.Vton, logg))
			r.Get("/jobs/{jobID}", controllers.VtonStatus(svcs.Vton, logg))
			r.Get("/history", controllers.VtonHistory(svcs.Vton, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))
		r.Patch("/orders/{orderID}/status", controllers.AdminOrderUpdateStatus(svcs.Orders, logg))
	})

	return r
}

// idempotencyStore keeps a typed nil redis client from masquerading as a
// usable store behind the interface.
func idempotencyStore(client *pkgredis.Client) pkgredis.IdempotencyStore {
	if client == nil {
		return nil
	}
	return client
}

func rateLimiter(client *pkgredis.Client) middleware.RateLimiter {
	if client == nil {
		return nil
	}
	return client
}
