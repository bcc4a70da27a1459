package router

import (
	"restaurant_backend/internal/cache"
	"restaurant_backend/internal/handlers"
	"restaurant_backend/internal/middleware"
	"restaurant_backend/internal/models"

	"github.com/gin-gonic/gin"
)

// SetupPublicAuthRoutes mounts routes reachable without a token.
func SetupPublicAuthRoutes(group *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	group.POST("/login", authHandler.LoginUser)
}

// SetupAuthenticatedAuthRoutes mounts profile and staff registration routes.
func SetupAuthenticatedAuthRoutes(group *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	group.GET("/me", authHandler.GetCurrentUser)
	group.POST("/register", middleware.RoleAuthMiddleware(models.RoleAdmin), authHandler.RegisterUser)
}

// SetupOrderRoutes sets up the order routes.
func SetupOrderRoutes(authenticatedGroup *gin.RouterGroup, orderHandler *handlers.OrderHandler, idempotency cache.IdempotencyStore) {
	orderRoutes := authenticatedGroup.Group("/orders")
	orderRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleStaff))
	{
		orderRoutes.POST("", middleware.IdempotencyMiddleware(idempotency), orderHandler.CreateOrder)
		orderRoutes.GET("", orderHandler.GetOrders)
		orderRoutes.GET("/:id", orderHandler.GetOrderByID)
		orderRoutes.PATCH("/:id/status", orderHandler.UpdateOrderStatus)
		orderRoutes.PATCH("/:id/paid", orderHandler.UpdateOrderPaid)
	}

	availabilityRoutes := authenticatedGroup.Group("/availability")
	availabilityRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleStaff))
	{
		availabilityRoutes.GET("/:kind/:id", orderHandler.CheckAvailability)
	}
}

// SetupInventoryRoutes sets up ingredient administration. Writes other than restock are Admin only.
func SetupInventoryRoutes(authenticatedGroup *gin.RouterGroup, inventoryHandler *handlers.InventoryHandler) {
	inventoryRoutes := authenticatedGroup.Group("/inventory")
	inventoryRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleStaff))
	admin := middleware.RoleAuthMiddleware(models.RoleAdmin)
	{
		inventoryRoutes.GET("", inventoryHandler.ListItems)
		inventoryRoutes.GET("/low-stock", inventoryHandler.LowStock)
		inventoryRoutes.GET("/out-of-stock", inventoryHandler.OutOfStock)
		inventoryRoutes.GET("/movements", inventoryHandler.GetInventoryMovements)
		inventoryRoutes.GET("/:id", inventoryHandler.GetItem)
		inventoryRoutes.POST("", admin, inventoryHandler.CreateItem)
		inventoryRoutes.PUT("/:id", admin, inventoryHandler.UpdateItem)
		inventoryRoutes.DELETE("/:id", admin, inventoryHandler.DeleteItem)
		inventoryRoutes.POST("/:id/restock", inventoryHandler.Restock)
		inventoryRoutes.POST("/:id/adjust", admin, inventoryHandler.AdjustStock)
	}
}

// SetupRecipeRoutes sets up BOM maintenance for meals and drinks.
func SetupRecipeRoutes(authenticatedGroup *gin.RouterGroup, inventoryHandler *handlers.InventoryHandler) {
	recipeRoutes := authenticatedGroup.Group("/recipes")
	recipeRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleStaff))
	admin := middleware.RoleAuthMiddleware(models.RoleAdmin)
	{
		recipeRoutes.GET("/:kind/:id", inventoryHandler.ListIngredients)
		recipeRoutes.POST("/:kind/:id", admin, inventoryHandler.AddIngredient)
	}
	authenticatedGroup.DELETE("/recipe-ingredients/:ingredientId", admin, inventoryHandler.RemoveIngredient)
}

// SetupWasteRoutes sets up waste recording and reports.
func SetupWasteRoutes(authenticatedGroup *gin.RouterGroup, wasteHandler *handlers.WasteHandler) {
	wasteRoutes := authenticatedGroup.Group("/waste")
	wasteRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleStaff))
	{
		wasteRoutes.POST("", wasteHandler.RecordWaste)
		wasteRoutes.GET("", wasteHandler.ListWaste)
		wasteRoutes.GET("/recent", wasteHandler.RecentWaste)
		wasteRoutes.GET("/total-cost", wasteHandler.TotalWasteCost)
		wasteRoutes.GET("/stats", wasteHandler.WasteStats)
	}
}
