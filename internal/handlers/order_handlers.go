package handlers

import (
	"net/http"
	"strconv"

	"restaurant_backend/internal/models"
	"restaurant_backend/internal/services"
	"restaurant_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// OrderHandler holds the order service.
type OrderHandler struct {
	orderService services.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(os services.OrderService) *OrderHandler {
	return &OrderHandler{orderService: os}
}

// CreateOrder validates, reserves stock for and persists a new order.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req services.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "CreateOrder: Failed to bind JSON")
		utils.RespondValidationFailed(c, err.Error())
		return
	}
	req.Actor = actorFromContext(c)

	order, err := h.orderService.CreateOrder(req)
	if err != nil {
		respondServiceError(c, err, "Failed to create order.")
		return
	}
	c.JSON(http.StatusCreated, order)
}

// GetOrders lists orders filtered by status, paid flag and date.
func (h *OrderHandler) GetOrders(c *gin.Context) {
	var filters models.OrderFilters
	if status := c.Query("status"); status != "" {
		filters.Status = &status
	}
	if date := c.Query("date"); date != "" {
		filters.Date = &date
	}
	if paidStr := c.Query("paid"); paidStr != "" {
		paid, err := strconv.ParseBool(paidStr)
		if err != nil {
			utils.RespondValidationFailed(c, "paid must be true or false")
			return
		}
		filters.Paid = &paid
	}
	var ok bool
	if filters.Page, ok = queryPage(c, "page", 1); !ok {
		return
	}
	if filters.PageSize, ok = queryPage(c, "page_size", 10); !ok {
		return
	}

	orders, totalCount, err := h.orderService.GetOrders(filters)
	if err != nil {
		respondServiceError(c, err, "Failed to fetch orders.")
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	c.JSON(http.StatusOK, gin.H{
		"data":      orders,
		"total":     totalCount,
		"page":      filters.Page,
		"page_size": filters.PageSize,
	})
}

// GetOrderByID returns one order with its lines.
func (h *OrderHandler) GetOrderByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	order, err := h.orderService.GetOrderByID(id)
	if err != nil {
		respondServiceError(c, err, "Failed to fetch order.")
		return
	}
	c.JSON(http.StatusOK, order)
}

// UpdateOrderStatus moves an order along its lifecycle.
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationFailed(c, err.Error())
		return
	}
	req.Actor = actorFromContext(c)

	order, err := h.orderService.UpdateOrderStatus(id, req)
	if err != nil {
		respondServiceError(c, err, "Failed to update order status.")
		return
	}
	c.JSON(http.StatusOK, order)
}

// UpdateOrderPaid sets the paid flag; the first switch to paid records the sale.
func (h *OrderHandler) UpdateOrderPaid(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.UpdateOrderPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationFailed(c, err.Error())
		return
	}
	order, err := h.orderService.UpdateOrderPaid(id, *req.Paid)
	if err != nil {
		respondServiceError(c, err, "Failed to update payment.")
		return
	}
	c.JSON(http.StatusOK, order)
}

// CheckAvailability answers whether quantity portions of a product can be made now.
func (h *OrderHandler) CheckAvailability(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	quantity := 1
	if raw := c.Query("quantity"); raw != "" {
		q, err := strconv.Atoi(raw)
		if err != nil {
			utils.RespondValidationFailed(c, "quantity must be an integer")
			return
		}
		quantity = q
	}
	kind := c.Param("kind")

	available, err := h.orderService.CheckAvailability(kind, id, quantity)
	if err != nil {
		respondServiceError(c, err, "Failed to check availability.")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"kind":       kind,
		"product_id": id,
		"quantity":   quantity,
		"available":  available,
	})
}
