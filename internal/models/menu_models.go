package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductKind identifies which catalog a line item or availability check refers to.
type ProductKind string

const (
	ProductKindMeal      ProductKind = "MEAL"
	ProductKindDrink     ProductKind = "DRINK"
	ProductKindPromotion ProductKind = "PROMOTION"
)

func (k ProductKind) Valid() bool {
	switch k {
	case ProductKindMeal, ProductKindDrink, ProductKindPromotion:
		return true
	}
	return false
}

// HasRecipe reports whether products of this kind carry BOM rows.
func (k ProductKind) HasRecipe() bool {
	return k == ProductKindMeal || k == ProductKindDrink
}

type Meal struct {
	ID          int64           `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Description *string         `json:"description,omitempty" db:"description"`
	Cost        decimal.Decimal `json:"cost" db:"cost"`
	Available   bool            `json:"available" db:"available"`
}

type Drink struct {
	ID          int64           `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Description *string         `json:"description,omitempty" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Available   bool            `json:"available" db:"available"`
}

// Promotion bundles meals and drinks under a single combo price.
type Promotion struct {
	ID         int64           `json:"id" db:"id"`
	Name       string          `json:"name" db:"name"`
	ComboPrice decimal.Decimal `json:"combo_price" db:"combo_price"`
	Active     bool            `json:"active" db:"active"`
	MealIDs    []int64         `json:"meal_ids"`
	DrinkIDs   []int64         `json:"drink_ids"`
}

// Ingredient is a BOM edge: how much of an inventory item one portion of a meal or drink consumes.
type Ingredient struct {
	ID              int64           `json:"id" db:"id"`
	ProductKind     ProductKind     `json:"product_kind" db:"product_kind"`
	ProductID       int64           `json:"product_id" db:"product_id"`
	InventoryItemID int64           `json:"inventory_item_id" db:"inventory_item_id"`
	QuantityNeeded  decimal.Decimal `json:"quantity_needed" db:"quantity_needed"`
	Notes           *string         `json:"notes,omitempty" db:"notes"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	InventoryItem   *InventoryItem  `json:"inventory_item,omitempty"`
}

// TotalQuantityNeeded scales the per-portion quantity.
func (i Ingredient) TotalQuantityNeeded(portions int) decimal.Decimal {
	return i.QuantityNeeded.Mul(decimal.NewFromInt(int64(portions)))
}

// Requirement is a resolved BOM row for one portion of a product.
type Requirement struct {
	InventoryItemID    int64           `json:"inventory_item_id"`
	Name               string          `json:"name"`
	Unit               string          `json:"unit"`
	QuantityPerPortion decimal.Decimal `json:"quantity_per_portion"`
}

// Product is an entry of the on-hand product ledger used by waste recording.
type Product struct {
	ID       int64           `json:"id" db:"id"`
	Name     string          `json:"name" db:"name"`
	Quantity decimal.Decimal `json:"quantity" db:"quantity"`
	Unit     string          `json:"unit" db:"unit"`
	Cost     decimal.Decimal `json:"cost" db:"cost"`
}
