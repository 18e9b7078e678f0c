package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/handlers"
	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/orders"
	"github.com/example/storefront/internal/registration"
)

// Deps are the collaborators the route table needs.
type Deps struct {
	DB           *gorm.DB
	Config       *config.Config
	Sessions     *session.Store
	Registration *registration.Service
	Orders       *orders.Service
}

// Register wires up all HTTP routes.
func Register(app *fiber.App, d Deps) {
	authHandler := handlers.NewAuthHandler(d.DB, d.Sessions, d.Registration, d.Config.JWTSecret, d.Config.TokenExpires)
	catalogHandler := handlers.NewCatalogHandler(d.DB)
	cartHandler := handlers.NewCartHandler(d.DB)
	orderHandler := handlers.NewOrderHandler(d.DB, d.Orders)
	profileHandler := handlers.NewProfileHandler(d.DB)
	adminHandler := handlers.NewAdminHandler(d.DB, d.Orders)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/verify", authHandler.Verify)
	auth.Post("/resend", authHandler.Resend)
	auth.Post("/login", authHandler.Login)

	// Public catalog
	api.Get("/categories", catalogHandler.ListCategories)
	api.Get("/categories/:id", catalogHandler.GetCategory)
	api.Get("/brands", catalogHandler.ListBrands)
	api.Get("/brands/:id", catalogHandler.GetBrand)
	api.Get("/products", catalogHandler.ListProducts)
	api.Get("/products/:id", catalogHandler.GetProduct)
	api.Get("/memberships", profileHandler.ListMemberships)

	// Protected routes
	protected := api.Group("", middleware.AuthMiddleware(d.Config.JWTSecret))

	protected.Get("/profile", profileHandler.GetProfile)
	protected.Put("/profile", profileHandler.UpdateProfile)
	protected.Get("/profile/points", profileHandler.ListPointsHistory)
	protected.Get("/profile/addresses", profileHandler.ListAddresses)
	protected.Post("/profile/addresses", profileHandler.CreateAddress)
	protected.Put("/profile/addresses/:id", profileHandler.UpdateAddress)
	protected.Delete("/profile/addresses/:id", profileHandler.DeleteAddress)

	protected.Get("/cart", cartHandler.GetCart)
	protected.Post("/cart/items", cartHandler.AddCartItem)
	protected.Put("/cart/items/:id", cartHandler.UpdateCartItem)
	protected.Delete("/cart/items/:id", cartHandler.RemoveCartItem)

	protected.Get("/wishlist", cartHandler.GetWishlist)
	protected.Post("/wishlist/items", cartHandler.AddWishlistItem)
	protected.Delete("/wishlist/items/:id", cartHandler.RemoveWishlistItem)

	protected.Post("/orders", orderHandler.CreateOrder)
	protected.Get("/orders", orderHandler.ListOrders)
	protected.Get("/orders/:id", orderHandler.GetOrder)

	// Staff console
	admin := api.Group("/admin",
		middleware.AuthMiddleware(d.Config.JWTSecret),
		middleware.RequireStaff(middleware.GormStaffLookup(d.DB)),
	)
	admin.Get("/dashboard", adminHandler.DashboardStats)
	admin.Get("/orders", adminHandler.ListAllOrders)
	admin.Put("/orders/:id/status", adminHandler.UpdateOrderStatus)
	admin.Get("/customers", adminHandler.ListCustomers)
	admin.Post("/memberships", adminHandler.CreateMembership)
	admin.Put("/memberships/:id", adminHandler.UpdateMembership)

	admin.Post("/categories", catalogHandler.CreateCategory)
	admin.Put("/categories/:id", catalogHandler.UpdateCategory)
	admin.Delete("/categories/:id", catalogHandler.DeleteCategory)
	admin.Post("/brands", catalogHandler.CreateBrand)
	admin.Put("/brands/:id", catalogHandler.UpdateBrand)
	admin.Delete("/brands/:id", catalogHandler.DeleteBrand)
	admin.Post("/products", catalogHandler.CreateProduct)
	admin.Put("/products/:id", catalogHandler.UpdateProduct)
	admin.Delete("/products/:id", catalogHandler.DeleteProduct)
}
