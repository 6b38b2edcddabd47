package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/tillpoint/internal/config"
	"github.com/example/tillpoint/internal/handlers"
	"github.com/example/tillpoint/internal/middleware"
	"github.com/example/tillpoint/internal/pos"
	"github.com/example/tillpoint/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config, erp *services.ERPService, notify *services.NotifyService) {
	registry := pos.NewRegistry()

	authHandler := handlers.NewAuthHandler(db, cfg)
	catalogHandler := handlers.NewCatalogHandler(db)
	productHandler := handlers.NewProductHandler(db)
	customerHandler := handlers.NewCustomerHandler(db)
	saleHandler := handlers.NewSaleHandler(db, cfg.DefaultCurrency)
	posHandler := handlers.NewPOSHandler(db, registry, saleHandler, erp, notify)
	healthHandler := handlers.NewHealthHandler(db)

	app.Get("/health", healthHandler.Health)

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)
	auth.Post("/revoke", authHandler.Revoke)

	// Protected routes
	protected := api.Group("", middleware.AuthMiddleware(cfg))

	categories := protected.Group("/categories")
	categories.Get("/", catalogHandler.ListCategories)
	categories.Post("/", middleware.RequireRole("admin", "manager"), catalogHandler.CreateCategory)
	categories.Get("/:id", catalogHandler.GetCategory)
	categories.Put("/:id", middleware.RequireRole("admin", "manager"), catalogHandler.UpdateCategory)
	categories.Delete("/:id", middleware.RequireRole("admin", "manager"), catalogHandler.DeleteCategory)

	brands := protected.Group("/brands")
	brands.Get("/", catalogHandler.ListBrands)
	brands.Post("/", middleware.RequireRole("admin", "manager"), catalogHandler.CreateBrand)
	brands.Get("/:id", catalogHandler.GetBrand)
	brands.Put("/:id", middleware.RequireRole("admin", "manager"), catalogHandler.UpdateBrand)
	brands.Delete("/:id", middleware.RequireRole("admin", "manager"), catalogHandler.DeleteBrand)

	products := protected.Group("/products")
	products.Get("/", productHandler.ListProducts)
	products.Post("/", middleware.RequireRole("admin", "manager"), productHandler.CreateProduct)
	products.Get("/:id", productHandler.GetProduct)
	products.Put("/:id", middleware.RequireRole("admin", "manager"), productHandler.UpdateProduct)
	products.Get("/:id/stock-history", productHandler.StockHistory)

	customers := protected.Group("/customers")
	customers.Get("/", customerHandler.ListCustomers)
	customers.Post("/", customerHandler.CreateCustomer)
	customers.Get("/:id", customerHandler.GetCustomer)
	customers.Put("/:id", customerHandler.UpdateCustomer)

	sales := protected.Group("/sales")
	sales.Get("/", saleHandler.ListSales)
	sales.Post("/", saleHandler.CreateSale)
	sales.Get("/statistics", saleHandler.Statistics)
	sales.Get("/:id", saleHandler.GetSale)

	heldOrders := protected.Group("/held-orders")
	heldOrders.Get("/", saleHandler.ListHeldOrders)
	heldOrders.Get("/:id", saleHandler.GetHeldOrder)
	heldOrders.Delete("/:id", saleHandler.DeleteHeldOrder)

	posSessions := protected.Group("/pos/sessions")
	posSessions.Post("/", posHandler.OpenSession)
	posSessions.Get("/:id", posHandler.GetSession)
	posSessions.Delete("/:id", posHandler.CloseSession)
	posSessions.Post("/:id/items", posHandler.AddItem)
	posSessions.Post("/:id/items/:productId/increment", posHandler.IncrementItem)
	posSessions.Post("/:id/items/:productId/decrement", posHandler.DecrementItem)
	posSessions.Put("/:id/items/:productId", posHandler.SetQuantity)
	posSessions.Delete("/:id/items/:productId", posHandler.RemoveItem)
	posSessions.Post("/:id/reconcile", posHandler.Reconcile)
	posSessions.Post("/:id/hold", posHandler.Hold)
	posSessions.Post("/:id/resume", posHandler.Resume)
	posSessions.Post("/:id/checkout", posHandler.Checkout)
}
