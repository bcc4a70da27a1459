package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryCategory groups raw ingredients for listing and reporting.
type InventoryCategory string

const (
	CategoryVegetables InventoryCategory = "VEGETABLES"
	CategoryFruits     InventoryCategory = "FRUITS"
	CategoryMeat       InventoryCategory = "MEAT"
	CategoryFish       InventoryCategory = "FISH"
	CategoryDairy      InventoryCategory = "DAIRY"
	CategoryGrains     InventoryCategory = "GRAINS"
	CategorySpices     InventoryCategory = "SPICES"
	CategoryBeverages  InventoryCategory = "BEVERAGES"
	CategoryAlcohol    InventoryCategory = "ALCOHOL"
	CategoryOils       InventoryCategory = "OILS"
	CategoryCondiments InventoryCategory = "CONDIMENTS"
	CategoryFrozen     InventoryCategory = "FROZEN"
	CategoryCanned     InventoryCategory = "CANNED"
	CategoryBakery     InventoryCategory = "BAKERY"
	CategoryCleaning   InventoryCategory = "CLEANING"
	CategoryPackaging  InventoryCategory = "PACKAGING"
	CategoryOther      InventoryCategory = "OTHER"
)

var inventoryCategories = map[InventoryCategory]bool{
	CategoryVegetables: true, CategoryFruits: true, CategoryMeat: true, CategoryFish: true,
	CategoryDairy: true, CategoryGrains: true, CategorySpices: true, CategoryBeverages: true,
	CategoryAlcohol: true, CategoryOils: true, CategoryCondiments: true, CategoryFrozen: true,
	CategoryCanned: true, CategoryBakery: true, CategoryCleaning: true, CategoryPackaging: true,
	CategoryOther: true,
}

// Valid reports whether c is one of the known categories.
func (c InventoryCategory) Valid() bool {
	return inventoryCategories[c]
}

// InventoryItem is a raw ingredient tracked by the stock ledger.
type InventoryItem struct {
	ID           int64             `json:"id" db:"id"`
	Name         string            `json:"name" db:"name" binding:"required"`
	Description  *string           `json:"description,omitempty" db:"description"`
	CurrentStock decimal.Decimal   `json:"current_stock" db:"current_stock"`
	MinimumStock decimal.Decimal   `json:"minimum_stock" db:"minimum_stock"`
	Unit         string            `json:"unit" db:"unit" binding:"required"`
	CostPerUnit  decimal.Decimal   `json:"cost_per_unit" db:"cost_per_unit"`
	Category     InventoryCategory `json:"category" db:"category" binding:"required"`
	Supplier     *string           `json:"supplier,omitempty" db:"supplier"`
	Active       bool              `json:"active" db:"active"`
	Version      int64             `json:"version" db:"version"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at" db:"updated_at"`
}

// ReduceStock debits amount, flooring the result at zero. Non-positive amounts are ignored.
func (i *InventoryItem) ReduceStock(amount decimal.Decimal) {
	if !amount.IsPositive() {
		return
	}
	i.CurrentStock = i.CurrentStock.Sub(amount)
	if i.CurrentStock.IsNegative() {
		i.CurrentStock = decimal.Zero
	}
}

// AddStock credits amount. Non-positive amounts are ignored.
func (i *InventoryItem) AddStock(amount decimal.Decimal) {
	if !amount.IsPositive() {
		return
	}
	i.CurrentStock = i.CurrentStock.Add(amount)
}

func (i *InventoryItem) IsLowStock() bool {
	return i.CurrentStock.LessThanOrEqual(i.MinimumStock)
}

func (i *InventoryItem) IsOutOfStock() bool {
	return !i.CurrentStock.IsPositive()
}

// Movement types written to inventory_movements.
const (
	MovementTypeReservation  = "reservation"
	MovementTypeCompensation = "compensation"
	MovementTypeRestock      = "restock"
	MovementTypeAdjustment   = "adjustment"
)

// InventoryMovement is an audit row for every change to an ingredient's stock.
type InventoryMovement struct {
	ID              int64           `json:"id" db:"id"`
	InventoryItemID int64           `json:"inventory_item_id" db:"inventory_item_id"`
	OrderID         *int64          `json:"order_id,omitempty" db:"order_id"`
	StaffID         *int64          `json:"staff_id,omitempty" db:"staff_id"`
	MovementType    string          `json:"movement_type" db:"movement_type"`
	QuantityChanged decimal.Decimal `json:"quantity_changed" db:"quantity_changed"`
	Reason          *string         `json:"reason,omitempty" db:"reason"`
	MovementDate    time.Time       `json:"movement_date" db:"movement_date"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	ItemName        string          `json:"item_name,omitempty"`
}

// MovementFilters narrows GetMovements.
type MovementFilters struct {
	InventoryItemID *int64  `form:"inventory_item_id"`
	OrderID         *int64  `form:"order_id"`
	MovementType    *string `form:"movement_type"`
	Page            int     `form:"page"`
	PageSize        int     `form:"page_size"`
}

// InventoryFilters narrows inventory listings.
type InventoryFilters struct {
	Name     *string            `form:"name"`
	Category *InventoryCategory `form:"category"`
}

// NewNullString returns nil for an empty string.
func NewNullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
