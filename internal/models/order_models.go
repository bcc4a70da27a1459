package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPreparing OrderStatus = "PREPARING"
	OrderStatusReady     OrderStatus = "READY"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Terminal reports whether no further transitions leave this status.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

type OrderType string

const (
	OrderTypeDineIn   OrderType = "DINE_IN"
	OrderTypeTakeaway OrderType = "TAKEAWAY"
)

func (t OrderType) Valid() bool {
	return t == OrderTypeDineIn || t == OrderTypeTakeaway
}

// Order is a customer or employee order. TotalCost is trusted as supplied by the caller.
type Order struct {
	ID                int64           `json:"id" db:"id"`
	Status            OrderStatus     `json:"status" db:"status"`
	Paid              bool            `json:"paid" db:"paid"`
	TotalCost         decimal.Decimal `json:"total_cost" db:"total_cost"`
	OrderType         OrderType       `json:"order_type" db:"order_type"`
	TableNumber       *int            `json:"table_number,omitempty" db:"table_number"`
	CustomerFirstName *string         `json:"customer_first_name,omitempty" db:"customer_first_name"`
	CustomerLastName  *string         `json:"customer_last_name,omitempty" db:"customer_last_name"`
	CustomerPhone     *string         `json:"customer_phone,omitempty" db:"customer_phone"`
	CustomerEmail     *string         `json:"customer_email,omitempty" db:"customer_email"`
	EmployeeID        *int64          `json:"employee_id,omitempty" db:"employee_id"`
	EmployeeName      *string         `json:"employee_name,omitempty" db:"employee_name"`
	EmployeeRole      *string         `json:"employee_role,omitempty" db:"employee_role"`
	OrderDate         time.Time       `json:"order_date" db:"order_date"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
	Meals             []OrderLine     `json:"meals"`
	Drinks            []OrderLine     `json:"drinks"`
	Promotions        []OrderLine     `json:"promotions"`
}

// LineCount is the number of line items across all kinds.
func (o *Order) LineCount() int {
	return len(o.Meals) + len(o.Drinks) + len(o.Promotions)
}

// Lines returns every line item tagged with its kind, meals first.
func (o *Order) Lines() []OrderLine {
	lines := make([]OrderLine, 0, o.LineCount())
	lines = append(lines, o.Meals...)
	lines = append(lines, o.Drinks...)
	lines = append(lines, o.Promotions...)
	return lines
}

// IsEmployeeOrder reports whether the order was placed by staff rather than a customer.
func (o *Order) IsEmployeeOrder() bool {
	return o.EmployeeID != nil
}

// CustomerName joins first and last name, falling back to the employee name.
func (o *Order) CustomerName() string {
	name := ""
	if o.CustomerFirstName != nil {
		name = *o.CustomerFirstName
	}
	if o.CustomerLastName != nil && *o.CustomerLastName != "" {
		if name != "" {
			name += " "
		}
		name += *o.CustomerLastName
	}
	if name == "" && o.EmployeeName != nil {
		name = *o.EmployeeName
	}
	return name
}

// OrderLine is an immutable line item of an order.
type OrderLine struct {
	ID          int64           `json:"id" db:"id"`
	OrderID     int64           `json:"order_id" db:"order_id"`
	Kind        ProductKind     `json:"kind" db:"product_kind"`
	ProductID   int64           `json:"product_id" db:"product_id"`
	ProductName string          `json:"product_name" db:"product_name"`
	Quantity    int             `json:"quantity" db:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price" db:"unit_price"`
}

// OrderFilters defines the available filters for querying orders.
type OrderFilters struct {
	Status   *string `form:"status"`
	Paid     *bool   `form:"paid"`
	Date     *string `form:"date"` // YYYY-MM-DD
	Page     int     `form:"page"`
	PageSize int     `form:"page_size"`
}
