package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale is one entry of the sale ledger, written once per paid order.
type Sale struct {
	ID           int64           `json:"id" db:"id"`
	OrderID      int64           `json:"order_id" db:"order_id"`
	CustomerName string          `json:"customer_name" db:"customer_name"`
	TotalAmount  decimal.Decimal `json:"total_amount" db:"total_amount"`
	SaleDate     time.Time       `json:"sale_date" db:"sale_date"`
	Items        []SaleItem      `json:"items"`
}

type SaleItem struct {
	ID        int64           `json:"id" db:"id"`
	SaleID    int64           `json:"sale_id" db:"sale_id"`
	Name      string          `json:"name" db:"name"`
	Kind      ProductKind     `json:"kind" db:"kind"`
	Quantity  int             `json:"quantity" db:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price" db:"unit_price"`
}
