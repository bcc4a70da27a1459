package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"restaurant_backend/internal/models"
)

// SaleRepository persists the sale ledger.
type SaleRepository interface {
	CreateSale(executor SQLExecutor, sale *models.Sale) (int64, error)
	GetSaleByOrderID(orderID int64) (*models.Sale, error)
}

type saleRepository struct {
	db *sql.DB
}

// NewSaleRepository creates a new instance of SaleRepository.
func NewSaleRepository(db *sql.DB) SaleRepository {
	return &saleRepository{db: db}
}

// CreateSale inserts the sale header and its items. The order_id column is unique; a second sale
// for the same order inserts nothing and fails with ErrDuplicateKey without aborting the
// surrounding transaction.
func (r *saleRepository) CreateSale(executor SQLExecutor, sale *models.Sale) (int64, error) {
	err := executor.QueryRow(
		`INSERT INTO sales (order_id, customer_name, total_amount, sale_date) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (order_id) DO NOTHING
		 RETURNING id`,
		sale.OrderID, sale.CustomerName, sale.TotalAmount, sale.SaleDate,
	).Scan(&sale.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%w: sale for order %d", ErrDuplicateKey, sale.OrderID)
		}
		return 0, classifyWriteError(err, fmt.Sprintf("creating sale for order %d", sale.OrderID))
	}

	for i := range sale.Items {
		item := &sale.Items[i]
		item.SaleID = sale.ID
		err := executor.QueryRow(
			`INSERT INTO sale_items (sale_id, name, kind, quantity, unit_price) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			item.SaleID, item.Name, string(item.Kind), item.Quantity, item.UnitPrice,
		).Scan(&item.ID)
		if err != nil {
			return 0, classifyWriteError(err, fmt.Sprintf("creating sale item for sale %d", sale.ID))
		}
	}
	return sale.ID, nil
}

func (r *saleRepository) GetSaleByOrderID(orderID int64) (*models.Sale, error) {
	var sale models.Sale
	err := r.db.QueryRow(
		`SELECT id, order_id, customer_name, total_amount, sale_date FROM sales WHERE order_id = $1`, orderID,
	).Scan(&sale.ID, &sale.OrderID, &sale.CustomerName, &sale.TotalAmount, &sale.SaleDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting sale for order %d: %v", ErrDatabaseError, orderID, err)
	}

	rows, err := r.db.Query(`SELECT id, sale_id, name, kind, quantity, unit_price FROM sale_items WHERE sale_id = $1 ORDER BY id`, sale.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: getting items for sale %d: %v", ErrDatabaseError, sale.ID, err)
	}
	defer rows.Close()

	sale.Items = []models.SaleItem{}
	for rows.Next() {
		var item models.SaleItem
		var kind string
		if err := rows.Scan(&item.ID, &item.SaleID, &item.Name, &kind, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, fmt.Errorf("%w: scanning sale item: %v", ErrDatabaseError, err)
		}
		item.Kind = models.ProductKind(kind)
		sale.Items = append(sale.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating sale items: %v", ErrDatabaseError, err)
	}
	return &sale, nil
}
