package router

import (
	"database/sql"

	"restaurant_backend/internal/cache"
	"restaurant_backend/internal/handlers"
	"restaurant_backend/internal/middleware"
	"restaurant_backend/internal/repositories"
	"restaurant_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// Options carries the pluggable pieces chosen from configuration.
type Options struct {
	Policy services.ReservationPolicy
	// Idempotency is nil when Redis is not configured.
	Idempotency cache.IdempotencyStore
}

// Setup initializes the routing for the application.
func Setup(engine *gin.Engine, db *sql.DB, opts Options) {
	// Repositories
	authRepo := repositories.NewAuthRepository(db)
	inventoryRepo := repositories.NewInventoryRepository(db)
	inventoryMvRepo := repositories.NewInventoryMovementRepository(db)
	bomRepo := repositories.NewBOMRepository(db)
	catalogRepo := repositories.NewCatalogRepository(db)
	orderRepo := repositories.NewOrderRepository(db)
	wasteRepo := repositories.NewWasteRepository(db)
	saleRepo := repositories.NewSaleRepository(db)
	outboxRepo := repositories.NewOutboxRepository(db)
	tx := repositories.NewTransactor(db)

	// Services
	resolver := services.NewBOMResolver(bomRepo, catalogRepo)
	checker := services.NewAvailabilityChecker(resolver, inventoryRepo, catalogRepo)
	stock := services.NewStockEngine(resolver, checker, inventoryRepo, inventoryMvRepo)
	ledger := services.NewSaleLedger(saleRepo)
	notifier := services.NewOrderNotifier(outboxRepo)

	authService := services.NewAuthService(authRepo, tx)
	orderService := services.NewOrderService(orderRepo, catalogRepo, stock, checker, opts.Policy, ledger, notifier, tx, db)
	inventoryService := services.NewInventoryService(inventoryRepo, inventoryMvRepo, bomRepo, catalogRepo, tx, db)
	wasteService := services.NewWasteService(wasteRepo, catalogRepo, tx)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	orderHandler := handlers.NewOrderHandler(orderService)
	inventoryHandler := handlers.NewInventoryHandler(inventoryService)
	wasteHandler := handlers.NewWasteHandler(wasteService)

	Register(engine, Handlers{
		Auth:      authHandler,
		Order:     orderHandler,
		Inventory: inventoryHandler,
		Waste:     wasteHandler,
	}, opts.Idempotency)
}

// Handlers groups the HTTP handlers mounted under /api/v1.
type Handlers struct {
	Auth      *handlers.AuthHandler
	Order     *handlers.OrderHandler
	Inventory *handlers.InventoryHandler
	Waste     *handlers.WasteHandler
}

// Register mounts every route. It is split from Setup so tests can mount handlers over fakes.
func Register(engine *gin.Engine, h Handlers, idempotency cache.IdempotencyStore) {
	apiV1 := engine.Group("/api/v1")

	SetupPublicAuthRoutes(apiV1.Group("/auth"), h.Auth)

	authenticated := apiV1.Group("")
	authenticated.Use(middleware.AuthMiddleware())
	{
		SetupAuthenticatedAuthRoutes(authenticated.Group("/auth"), h.Auth)
		SetupOrderRoutes(authenticated, h.Order, idempotency)
		SetupInventoryRoutes(authenticated, h.Inventory)
		SetupRecipeRoutes(authenticated, h.Inventory)
		SetupWasteRoutes(authenticated, h.Waste)
	}
}
