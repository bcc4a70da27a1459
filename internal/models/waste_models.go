package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type WasteKind string

const (
	WasteKindProduct WasteKind = "PRODUCT"
	WasteKindMeal    WasteKind = "MEAL"
	WasteKindDrink   WasteKind = "DRINK"
)

func (k WasteKind) Valid() bool {
	return k == WasteKindProduct || k == WasteKindMeal || k == WasteKindDrink
}

// WasteRecord (merma) captures discarded goods and their cost.
type WasteRecord struct {
	ID           int64           `json:"id" db:"id"`
	Kind         WasteKind       `json:"kind" db:"kind"`
	ItemID       int64           `json:"item_id" db:"item_id"`
	ItemName     string          `json:"item_name" db:"item_name"`
	Quantity     decimal.Decimal `json:"quantity" db:"quantity"`
	Unit         string          `json:"unit" db:"unit"`
	UnitCost     decimal.Decimal `json:"unit_cost" db:"unit_cost"`
	TotalCost    decimal.Decimal `json:"total_cost" db:"total_cost"`
	Reason       string          `json:"reason" db:"reason"`
	RegisteredBy string          `json:"registered_by" db:"registered_by"`
	RegisteredAt time.Time       `json:"registered_at" db:"registered_at"`
}

// WasteFilters narrows waste listings. All fields are optional.
type WasteFilters struct {
	Kind         *WasteKind `form:"kind"`
	RegisteredBy *string    `form:"registered_by"`
	From         *time.Time `form:"from"`
	To           *time.Time `form:"to"`
	Limit        int        `form:"limit"`
}

// WasteStats aggregates waste per kind.
type WasteStats struct {
	Kind      WasteKind       `json:"kind"`
	Count     int             `json:"count"`
	TotalCost decimal.Decimal `json:"total_cost"`
}
