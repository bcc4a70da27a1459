package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"restaurant_backend/internal/models"
)

// InventoryMovementRepository defines the interface for inventory movement-related database operations.
type InventoryMovementRepository interface {
	CreateMovement(executor SQLExecutor, movement *models.InventoryMovement) (int64, error)
	GetMovements(filters models.MovementFilters) ([]models.InventoryMovement, int, error)
	// ListOrderMovements returns the movements of one type written for an order, oldest first.
	ListOrderMovements(executor SQLExecutor, orderID int64, movementType string) ([]models.InventoryMovement, error)
}

type inventoryMovementRepository struct {
	db *sql.DB
}

// NewInventoryMovementRepository creates a new instance of InventoryMovementRepository.
func NewInventoryMovementRepository(db *sql.DB) InventoryMovementRepository {
	return &inventoryMovementRepository{db: db}
}

func (r *inventoryMovementRepository) CreateMovement(executor SQLExecutor, movement *models.InventoryMovement) (int64, error) {
	query := `INSERT INTO inventory_movements
	          (inventory_item_id, order_id, staff_id, movement_type, quantity_changed, reason, movement_date, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          RETURNING id`
	currentTime := time.Now()
	if movement.MovementDate.IsZero() {
		movement.MovementDate = currentTime
	}
	movement.CreatedAt = currentTime

	err := executor.QueryRow(query,
		movement.InventoryItemID, movement.OrderID, movement.StaffID, movement.MovementType,
		movement.QuantityChanged, movement.Reason, movement.MovementDate, currentTime,
	).Scan(&movement.ID)
	if err != nil {
		return 0, classifyWriteError(err, "creating inventory movement")
	}
	return movement.ID, nil
}

func (r *inventoryMovementRepository) GetMovements(filters models.MovementFilters) ([]models.InventoryMovement, int, error) {
	movements := []models.InventoryMovement{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT
	    im.id, im.inventory_item_id, im.order_id, im.staff_id, im.movement_type, im.quantity_changed,
	    im.reason, im.movement_date, im.created_at, ii.name,
	    COUNT(*) OVER() AS total_count
	  FROM inventory_movements im
	  JOIN inventory_items ii ON im.inventory_item_id = ii.id`)

	var conditions []string
	var args []interface{}
	argCount := 1

	if filters.InventoryItemID != nil {
		conditions = append(conditions, fmt.Sprintf("im.inventory_item_id = $%d", argCount))
		args = append(args, *filters.InventoryItemID)
		argCount++
	}
	if filters.OrderID != nil {
		conditions = append(conditions, fmt.Sprintf("im.order_id = $%d", argCount))
		args = append(args, *filters.OrderID)
		argCount++
	}
	if filters.MovementType != nil && *filters.MovementType != "" {
		conditions = append(conditions, fmt.Sprintf("im.movement_type = $%d", argCount))
		args = append(args, *filters.MovementType)
		argCount++
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(conditions, " AND "))
	}

	page, pageSize := filters.Page, filters.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	queryBuilder.WriteString(" ORDER BY im.movement_date DESC, im.id DESC")
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1))
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.Query(queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: getting inventory movements: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var movement models.InventoryMovement
		if err := rows.Scan(
			&movement.ID, &movement.InventoryItemID, &movement.OrderID, &movement.StaffID, &movement.MovementType,
			&movement.QuantityChanged, &movement.Reason, &movement.MovementDate, &movement.CreatedAt,
			&movement.ItemName, &totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning inventory movement: %v", ErrDatabaseError, err)
		}
		movements = append(movements, movement)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating inventory movements: %v", ErrDatabaseError, err)
	}

	return movements, totalCount, nil
}

func (r *inventoryMovementRepository) ListOrderMovements(executor SQLExecutor, orderID int64, movementType string) ([]models.InventoryMovement, error) {
	movements := []models.InventoryMovement{}
	rows, err := executor.Query(`SELECT id, inventory_item_id, order_id, staff_id, movement_type, quantity_changed,
	    reason, movement_date, created_at
	  FROM inventory_movements
	  WHERE order_id = $1 AND movement_type = $2
	  ORDER BY id`, orderID, movementType)
	if err != nil {
		return nil, fmt.Errorf("%w: getting %s movements for order %d: %v", ErrDatabaseError, movementType, orderID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var movement models.InventoryMovement
		if err := rows.Scan(
			&movement.ID, &movement.InventoryItemID, &movement.OrderID, &movement.StaffID, &movement.MovementType,
			&movement.QuantityChanged, &movement.Reason, &movement.MovementDate, &movement.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scanning inventory movement: %v", ErrDatabaseError, err)
		}
		movements = append(movements, movement)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating inventory movements: %v", ErrDatabaseError, err)
	}
	return movements, nil
}
