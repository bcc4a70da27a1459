package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"restaurant_backend/internal/models"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// InventoryRepository defines the interface for ingredient stock persistence.
type InventoryRepository interface {
	CreateItem(executor SQLExecutor, item *models.InventoryItem) (int64, error)
	UpdateItem(executor SQLExecutor, item *models.InventoryItem) error
	GetItemByID(executor SQLExecutor, id int64) (*models.InventoryItem, error)
	GetItemsByIDs(executor SQLExecutor, ids []int64) (map[int64]*models.InventoryItem, error)
	// LockItems takes row locks on the given items in ascending id order.
	LockItems(executor SQLExecutor, ids []int64) (map[int64]*models.InventoryItem, error)
	// AdjustStock adds delta to current_stock, flooring the result at zero, and returns the new level.
	AdjustStock(executor SQLExecutor, id int64, delta decimal.Decimal) (decimal.Decimal, error)
	SetActive(executor SQLExecutor, id int64, active bool) error
	ListItems(filters models.InventoryFilters) ([]models.InventoryItem, error)
	ListLowStock() ([]models.InventoryItem, error)
	ListOutOfStock() ([]models.InventoryItem, error)
}

type inventoryRepository struct {
	db *sql.DB
}

// NewInventoryRepository creates a new instance of InventoryRepository.
func NewInventoryRepository(db *sql.DB) InventoryRepository {
	return &inventoryRepository{db: db}
}

const inventoryColumns = `id, name, description, current_stock, minimum_stock, unit, cost_per_unit,
	category, supplier, active, version, created_at, updated_at`

func scanInventoryItem(s scanner) (*models.InventoryItem, error) {
	var item models.InventoryItem
	var category string
	if err := s.Scan(
		&item.ID, &item.Name, &item.Description, &item.CurrentStock, &item.MinimumStock, &item.Unit,
		&item.CostPerUnit, &category, &item.Supplier, &item.Active, &item.Version,
		&item.CreatedAt, &item.UpdatedAt,
	); err != nil {
		return nil, err
	}
	item.Category = models.InventoryCategory(category)
	return &item, nil
}

func (r *inventoryRepository) CreateItem(executor SQLExecutor, item *models.InventoryItem) (int64, error) {
	query := `INSERT INTO inventory_items
	          (name, description, current_stock, minimum_stock, unit, cost_per_unit, category, supplier, active, version, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, 1, $9, $9)
	          RETURNING id`
	currentTime := time.Now()
	err := executor.QueryRow(query,
		item.Name, item.Description, item.CurrentStock, item.MinimumStock, item.Unit,
		item.CostPerUnit, string(item.Category), item.Supplier, currentTime,
	).Scan(&item.ID)
	if err != nil {
		return 0, classifyWriteError(err, "creating inventory item")
	}
	item.Active = true
	item.Version = 1
	item.CreatedAt = currentTime
	item.UpdatedAt = currentTime
	return item.ID, nil
}

// UpdateItem writes descriptive fields and stock levels guarded by the version the caller read.
func (r *inventoryRepository) UpdateItem(executor SQLExecutor, item *models.InventoryItem) error {
	query := `UPDATE inventory_items
	          SET name = $1, description = $2, current_stock = $3, minimum_stock = $4, unit = $5,
	              cost_per_unit = $6, category = $7, supplier = $8, version = version + 1, updated_at = $9
	          WHERE id = $10 AND version = $11`
	currentTime := time.Now()
	result, err := executor.Exec(query,
		item.Name, item.Description, item.CurrentStock, item.MinimumStock, item.Unit,
		item.CostPerUnit, string(item.Category), item.Supplier, currentTime, item.ID, item.Version,
	)
	if err != nil {
		return classifyWriteError(err, fmt.Sprintf("updating inventory item %d", item.ID))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: checking rows affected for inventory item %d: %v", ErrDatabaseError, item.ID, err)
	}
	if rows == 0 {
		var exists bool
		if err := executor.QueryRow(`SELECT EXISTS(SELECT 1 FROM inventory_items WHERE id = $1)`, item.ID).Scan(&exists); err != nil {
			return fmt.Errorf("%w: checking inventory item %d: %v", ErrDatabaseError, item.ID, err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrOptimisticLock
	}
	item.Version++
	item.UpdatedAt = currentTime
	return nil
}

func (r *inventoryRepository) GetItemByID(executor SQLExecutor, id int64) (*models.InventoryItem, error) {
	query := `SELECT ` + inventoryColumns + ` FROM inventory_items WHERE id = $1`
	item, err := scanInventoryItem(executor.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting inventory item %d: %v", ErrDatabaseError, id, err)
	}
	return item, nil
}

func (r *inventoryRepository) GetItemsByIDs(executor SQLExecutor, ids []int64) (map[int64]*models.InventoryItem, error) {
	query := `SELECT ` + inventoryColumns + ` FROM inventory_items WHERE id = ANY($1) ORDER BY id`
	return r.queryItemMap(executor, query, ids)
}

func (r *inventoryRepository) LockItems(executor SQLExecutor, ids []int64) (map[int64]*models.InventoryItem, error) {
	query := `SELECT ` + inventoryColumns + ` FROM inventory_items WHERE id = ANY($1) ORDER BY id FOR UPDATE`
	return r.queryItemMap(executor, query, ids)
}

func (r *inventoryRepository) queryItemMap(executor SQLExecutor, query string, ids []int64) (map[int64]*models.InventoryItem, error) {
	items := make(map[int64]*models.InventoryItem, len(ids))
	if len(ids) == 0 {
		return items, nil
	}
	rows, err := executor.Query(query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("%w: querying inventory items: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		item, err := scanInventoryItem(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning inventory item: %v", ErrDatabaseError, err)
		}
		items[item.ID] = item
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating inventory items: %v", ErrDatabaseError, err)
	}
	return items, nil
}

func (r *inventoryRepository) AdjustStock(executor SQLExecutor, id int64, delta decimal.Decimal) (decimal.Decimal, error) {
	var newStock decimal.Decimal
	query := `UPDATE inventory_items
	          SET current_stock = GREATEST(current_stock + $1, 0), version = version + 1, updated_at = $2
	          WHERE id = $3
	          RETURNING current_stock`
	err := executor.QueryRow(query, delta, time.Now(), id).Scan(&newStock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, ErrNotFound
		}
		return decimal.Zero, fmt.Errorf("%w: adjusting stock for inventory item %d: %v", ErrDatabaseError, id, err)
	}
	return newStock, nil
}

func (r *inventoryRepository) SetActive(executor SQLExecutor, id int64, active bool) error {
	result, err := executor.Exec(
		`UPDATE inventory_items SET active = $1, version = version + 1, updated_at = $2 WHERE id = $3`,
		active, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("%w: setting active=%t on inventory item %d: %v", ErrDatabaseError, active, id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: checking rows affected for inventory item %d: %v", ErrDatabaseError, id, err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *inventoryRepository) ListItems(filters models.InventoryFilters) ([]models.InventoryItem, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + inventoryColumns + ` FROM inventory_items WHERE active = TRUE`)

	var args []interface{}
	argCount := 1
	if filters.Name != nil && *filters.Name != "" {
		queryBuilder.WriteString(fmt.Sprintf(" AND name ILIKE $%d", argCount))
		args = append(args, "%"+*filters.Name+"%")
		argCount++
	}
	if filters.Category != nil {
		queryBuilder.WriteString(fmt.Sprintf(" AND category = $%d", argCount))
		args = append(args, string(*filters.Category))
	}
	queryBuilder.WriteString(" ORDER BY name")
	return r.listItems(queryBuilder.String(), args...)
}

func (r *inventoryRepository) ListLowStock() ([]models.InventoryItem, error) {
	return r.listItems(`SELECT ` + inventoryColumns + ` FROM inventory_items
		WHERE active = TRUE AND current_stock <= minimum_stock ORDER BY current_stock, name`)
}

func (r *inventoryRepository) ListOutOfStock() ([]models.InventoryItem, error) {
	return r.listItems(`SELECT ` + inventoryColumns + ` FROM inventory_items
		WHERE active = TRUE AND current_stock <= 0 ORDER BY name`)
}

func (r *inventoryRepository) listItems(query string, args ...interface{}) ([]models.InventoryItem, error) {
	items := []models.InventoryItem{}
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: listing inventory items: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		item, err := scanInventoryItem(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning inventory item: %v", ErrDatabaseError, err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating inventory items: %v", ErrDatabaseError, err)
	}
	return items, nil
}
