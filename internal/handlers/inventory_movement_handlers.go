package handlers

import (
	"net/http"

	"restaurant_backend/internal/models"
	"restaurant_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// GetInventoryMovements lists the stock audit trail, filtered by item, order or movement type.
func (h *InventoryHandler) GetInventoryMovements(c *gin.Context) {
	var filters models.MovementFilters
	if raw := c.Query("inventory_item_id"); raw != "" {
		id, err := utils.StrToInt64(raw)
		if err != nil {
			utils.RespondValidationFailed(c, "invalid inventory_item_id")
			return
		}
		filters.InventoryItemID = &id
	}
	if raw := c.Query("order_id"); raw != "" {
		id, err := utils.StrToInt64(raw)
		if err != nil {
			utils.RespondValidationFailed(c, "invalid order_id")
			return
		}
		filters.OrderID = &id
	}
	if movementType := c.Query("movement_type"); movementType != "" {
		switch movementType {
		case models.MovementTypeReservation, models.MovementTypeCompensation,
			models.MovementTypeRestock, models.MovementTypeAdjustment:
			filters.MovementType = &movementType
		default:
			utils.RespondValidationFailed(c, "unknown movement_type "+movementType)
			return
		}
	}
	var ok bool
	if filters.Page, ok = queryPage(c, "page", 1); !ok {
		return
	}
	if filters.PageSize, ok = queryPage(c, "page_size", 20); !ok {
		return
	}

	movements, total, err := h.inventoryService.GetMovements(filters)
	if err != nil {
		respondServiceError(c, err, "Failed to fetch inventory movements.")
		return
	}
	if movements == nil {
		movements = []models.InventoryMovement{}
	}
	c.JSON(http.StatusOK, gin.H{
		"data":      movements,
		"total":     total,
		"page":      filters.Page,
		"page_size": filters.PageSize,
	})
}
