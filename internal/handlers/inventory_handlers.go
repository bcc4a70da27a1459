package handlers

import (
	"net/http"

	"restaurant_backend/internal/models"
	"restaurant_backend/internal/services"
	"restaurant_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// InventoryHandler exposes ingredient administration and recipe (BOM) maintenance.
type InventoryHandler struct {
	inventoryService services.InventoryService
}

// NewInventoryHandler creates a new InventoryHandler.
func NewInventoryHandler(is services.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventoryService: is}
}

func (h *InventoryHandler) CreateItem(c *gin.Context) {
	var req services.CreateInventoryItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationFailed(c, err.Error())
		return
	}
	item, err := h.inventoryService.CreateItem(req)
	if err != nil {
		respondServiceError(c, err, "Failed to create inventory item.")
		return
	}
	c.JSON(http.StatusCreated, item)
}

// ListItems returns active items, optionally filtered by name and category.
func (h *InventoryHandler) ListItems(c *gin.Context) {
	var filters models.InventoryFilters
	if name := c.Query("name"); name != "" {
		filters.Name = &name
	}
	if category := c.Query("category"); category != "" {
		cat := models.InventoryCategory(category)
		filters.Category = &cat
	}
	items, err := h.inventoryService.ListItems(filters)
	if err != nil {
		respondServiceError(c, err, "Failed to fetch inventory.")
		return
	}
	respondItems(c, items)
}

func (h *InventoryHandler) GetItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	item, err := h.inventoryService.GetItem(id)
	if err != nil {
		respondServiceError(c, err, "Failed to fetch inventory item.")
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *InventoryHandler) UpdateItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.UpdateInventoryItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationFailed(c, err.Error())
		return
	}
	item, err := h.inventoryService.UpdateItem(id, req)
	if err != nil {
		respondServiceError(c, err, "Failed to update inventory item.")
		return
	}
	c.JSON(http.StatusOK, item)
}

// DeleteItem soft deletes an inventory item.
func (h *InventoryHandler) DeleteItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.inventoryService.DeactivateItem(id); err != nil {
		respondServiceError(c, err, "Failed to delete inventory item.")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *InventoryHandler) LowStock(c *gin.Context) {
	items, err := h.inventoryService.ListLowStock()
	if err != nil {
		respondServiceError(c, err, "Failed to fetch low stock items.")
		return
	}
	respondItems(c, items)
}

func (h *InventoryHandler) OutOfStock(c *gin.Context) {
	items, err := h.inventoryService.ListOutOfStock()
	if err != nil {
		respondServiceError(c, err, "Failed to fetch out of stock items.")
		return
	}
	respondItems(c, items)
}

func (h *InventoryHandler) Restock(c *gin.Context) {
	h.changeStock(c, h.inventoryService.Restock, "Failed to restock inventory item.")
}

func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	h.changeStock(c, h.inventoryService.AdjustStock, "Failed to adjust inventory item.")
}

func (h *InventoryHandler) changeStock(c *gin.Context, apply func(int64, services.StockChangeRequest) (*models.InventoryItem, error), message string) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.StockChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationFailed(c, err.Error())
		return
	}
	req.Actor = actorFromContext(c)
	item, err := apply(id, req)
	if err != nil {
		respondServiceError(c, err, message)
		return
	}
	c.JSON(http.StatusOK, item)
}

// ListIngredients returns the recipe of a meal or drink.
func (h *InventoryHandler) ListIngredients(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ingredients, err := h.inventoryService.ListIngredients(c.Param("kind"), id)
	if err != nil {
		respondServiceError(c, err, "Failed to fetch recipe.")
		return
	}
	if ingredients == nil {
		ingredients = []models.Ingredient{}
	}
	c.JSON(http.StatusOK, ingredients)
}

func (h *InventoryHandler) AddIngredient(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.AddIngredientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationFailed(c, err.Error())
		return
	}
	ingredient, err := h.inventoryService.AddIngredient(c.Param("kind"), id, req)
	if err != nil {
		respondServiceError(c, err, "Failed to add recipe ingredient.")
		return
	}
	c.JSON(http.StatusCreated, ingredient)
}

func (h *InventoryHandler) RemoveIngredient(c *gin.Context) {
	id, ok := pathID(c, "ingredientId")
	if !ok {
		return
	}
	if err := h.inventoryService.RemoveIngredient(id); err != nil {
		respondServiceError(c, err, "Failed to remove recipe ingredient.")
		return
	}
	c.Status(http.StatusNoContent)
}

func respondItems(c *gin.Context, items []models.InventoryItem) {
	if items == nil {
		items = []models.InventoryItem{}
	}
	c.JSON(http.StatusOK, items)
}
