package handlers

import (
	"net/http"
	"strconv"
	"time"

	"restaurant_backend/internal/models"
	"restaurant_backend/internal/services"
	"restaurant_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// WasteHandler exposes waste (merma) recording and reporting.
type WasteHandler struct {
	wasteService services.WasteService
}

// NewWasteHandler creates a new WasteHandler.
func NewWasteHandler(ws services.WasteService) *WasteHandler {
	return &WasteHandler{wasteService: ws}
}

// RecordWaste registers discarded goods. The author defaults to the caller's username.
func (h *WasteHandler) RecordWaste(c *gin.Context) {
	var req services.RecordWasteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationFailed(c, err.Error())
		return
	}
	if utils.IsEmpty(req.Author) {
		if actor := actorFromContext(c); actor != nil {
			req.Author = actor.Username
		}
	}

	record, err := h.wasteService.RecordWaste(req)
	if err != nil {
		respondServiceError(c, err, "Failed to record waste.")
		return
	}
	c.JSON(http.StatusCreated, record)
}

// ListWaste filters by kind, author and date range (from/to as YYYY-MM-DD, to inclusive).
func (h *WasteHandler) ListWaste(c *gin.Context) {
	var filters models.WasteFilters
	if kind := c.Query("kind"); kind != "" {
		k := models.WasteKind(kind)
		filters.Kind = &k
	}
	if author := c.Query("registered_by"); author != "" {
		filters.RegisteredBy = &author
	}
	from, to, ok := dateRange(c)
	if !ok {
		return
	}
	filters.From, filters.To = from, to
	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			utils.RespondValidationFailed(c, "limit must be a positive integer")
			return
		}
		filters.Limit = limit
	}

	records, err := h.wasteService.ListWaste(filters)
	if err != nil {
		respondServiceError(c, err, "Failed to fetch waste records.")
		return
	}
	if records == nil {
		records = []models.WasteRecord{}
	}
	c.JSON(http.StatusOK, records)
}

// RecentWaste returns the ten latest records.
func (h *WasteHandler) RecentWaste(c *gin.Context) {
	records, err := h.wasteService.RecentWaste()
	if err != nil {
		respondServiceError(c, err, "Failed to fetch waste records.")
		return
	}
	if records == nil {
		records = []models.WasteRecord{}
	}
	c.JSON(http.StatusOK, records)
}

// TotalWasteCost sums waste cost over a date range; both bounds are required.
func (h *WasteHandler) TotalWasteCost(c *gin.Context) {
	from, to, ok := dateRange(c)
	if !ok {
		return
	}
	if from == nil || to == nil {
		utils.RespondValidationFailed(c, "from and to are required")
		return
	}
	total, err := h.wasteService.TotalWasteCost(*from, *to)
	if err != nil {
		respondServiceError(c, err, "Failed to compute waste cost.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"from": from, "to": to, "total_cost": total})
}

// WasteStats aggregates count and cost per kind.
func (h *WasteHandler) WasteStats(c *gin.Context) {
	stats, err := h.wasteService.WasteStats()
	if err != nil {
		respondServiceError(c, err, "Failed to aggregate waste.")
		return
	}
	if stats == nil {
		stats = []models.WasteStats{}
	}
	c.JSON(http.StatusOK, stats)
}

// dateRange reads optional from/to days. to is moved to the end of its day.
func dateRange(c *gin.Context) (*time.Time, *time.Time, bool) {
	var from, to *time.Time
	if raw := c.Query("from"); raw != "" {
		t, err := utils.ParseDate(raw)
		if err != nil {
			utils.RespondValidationFailed(c, err.Error())
			return nil, nil, false
		}
		from = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := utils.ParseDate(raw)
		if err != nil {
			utils.RespondValidationFailed(c, err.Error())
			return nil, nil, false
		}
		end := t.Add(24*time.Hour - time.Nanosecond)
		to = &end
	}
	return from, to, true
}
