package services

import (
	"errors"
	"fmt"
	"time"

	"restaurant_backend/internal/models"
	"restaurant_backend/internal/repositories"
	"restaurant_backend/pkg/utils"
)

// SaleLedger records a paid order as a sale.
type SaleLedger interface {
	RecordSale(executor repositories.SQLExecutor, order *models.Order) (*models.Sale, error)
	GetSaleByOrderID(orderID int64) (*models.Sale, error)
}

type saleLedger struct {
	saleRepo repositories.SaleRepository
}

// NewSaleLedger creates a new SaleLedger.
func NewSaleLedger(saleRepo repositories.SaleRepository) SaleLedger {
	return &saleLedger{saleRepo: saleRepo}
}

// RecordSale writes one sale with an item per order line. Meal and drink lines carry the price
// captured on the order line and promotions carry their combo price.
func (l *saleLedger) RecordSale(executor repositories.SQLExecutor, order *models.Order) (*models.Sale, error) {
	sale := models.Sale{
		OrderID:      order.ID,
		CustomerName: order.CustomerName(),
		TotalAmount:  order.TotalCost,
		SaleDate:     time.Now(),
		Items:        make([]models.SaleItem, 0, order.LineCount()),
	}
	for _, line := range order.Lines() {
		sale.Items = append(sale.Items, models.SaleItem{
			Name:      line.ProductName,
			Kind:      line.Kind,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}

	if _, err := l.saleRepo.CreateSale(executor, &sale); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: sale for order %d", ErrDuplicate, order.ID)
		}
		return nil, persistenceError(fmt.Sprintf("recording sale for order %d", order.ID), err)
	}
	utils.LogInfo("Sale recorded", map[string]interface{}{
		"order_id": order.ID, "sale_id": sale.ID, "total_amount": sale.TotalAmount.String(),
	})
	return &sale, nil
}

func (l *saleLedger) GetSaleByOrderID(orderID int64) (*models.Sale, error) {
	sale, err := l.saleRepo.GetSaleByOrderID(orderID)
	if err != nil {
		return nil, notFoundOr(ErrOrderNotFound, fmt.Sprintf("sale for order %d", orderID), err)
	}
	return sale, nil
}
