package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"restaurant_backend/internal/models"
)

// OrderRepository defines the interface for order-related database operations.
type OrderRepository interface {
	CreateOrder(executor SQLExecutor, order *models.Order) (int64, error)
	CreateOrderLine(executor SQLExecutor, line *models.OrderLine) (int64, error)
	GetOrderByID(executor SQLExecutor, orderID int64) (*models.Order, error)
	// LockOrder reads the order header and holds a row lock until the transaction ends.
	LockOrder(executor SQLExecutor, orderID int64) (*models.Order, error)
	GetOrderLines(executor SQLExecutor, orderID int64) ([]models.OrderLine, error)
	GetOrders(filters models.OrderFilters) ([]models.Order, int, error)
	UpdateOrderStatus(executor SQLExecutor, orderID int64, newStatus models.OrderStatus, updatedAt time.Time) error
	// SetPaid flips the paid flag only when it differs from paid. It reports whether a row changed.
	SetPaid(executor SQLExecutor, orderID int64, paid bool) (bool, error)
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository.
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `o.id, o.status, o.paid, o.total_cost, o.order_type, o.table_number,
	o.customer_first_name, o.customer_last_name, o.customer_phone, o.customer_email,
	o.employee_id, o.employee_name, o.employee_role, o.order_date, o.updated_at`

func scanOrder(s scanner, extra ...interface{}) (*models.Order, error) {
	var o models.Order
	var status, orderType string
	var tableNumber sql.NullInt64
	dest := []interface{}{
		&o.ID, &status, &o.Paid, &o.TotalCost, &orderType, &tableNumber,
		&o.CustomerFirstName, &o.CustomerLastName, &o.CustomerPhone, &o.CustomerEmail,
		&o.EmployeeID, &o.EmployeeName, &o.EmployeeRole, &o.OrderDate, &o.UpdatedAt,
	}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	o.Status = models.OrderStatus(status)
	o.OrderType = models.OrderType(orderType)
	if tableNumber.Valid {
		n := int(tableNumber.Int64)
		o.TableNumber = &n
	}
	return &o, nil
}

func (r *orderRepository) CreateOrder(executor SQLExecutor, order *models.Order) (int64, error) {
	query := `INSERT INTO orders
	          (status, paid, total_cost, order_type, table_number, customer_first_name, customer_last_name,
	           customer_phone, customer_email, employee_id, employee_name, employee_role, order_date, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	          RETURNING id`
	var tableNumber sql.NullInt64
	if order.TableNumber != nil {
		tableNumber = sql.NullInt64{Int64: int64(*order.TableNumber), Valid: true}
	}
	err := executor.QueryRow(query,
		string(order.Status), order.Paid, order.TotalCost, string(order.OrderType), tableNumber,
		order.CustomerFirstName, order.CustomerLastName, order.CustomerPhone, order.CustomerEmail,
		order.EmployeeID, order.EmployeeName, order.EmployeeRole, order.OrderDate, order.UpdatedAt,
	).Scan(&order.ID)
	if err != nil {
		return 0, classifyWriteError(err, "creating order")
	}
	return order.ID, nil
}

func (r *orderRepository) CreateOrderLine(executor SQLExecutor, line *models.OrderLine) (int64, error) {
	query := `INSERT INTO order_lines (order_id, product_kind, product_id, product_name, quantity, unit_price)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING id`
	err := executor.QueryRow(query,
		line.OrderID, string(line.Kind), line.ProductID, line.ProductName, line.Quantity, line.UnitPrice,
	).Scan(&line.ID)
	if err != nil {
		return 0, classifyWriteError(err, fmt.Sprintf("creating order line for order %d", line.OrderID))
	}
	return line.ID, nil
}

func (r *orderRepository) GetOrderByID(executor SQLExecutor, orderID int64) (*models.Order, error) {
	return r.getOrder(executor, `SELECT `+orderColumns+` FROM orders o WHERE o.id = $1`, orderID)
}

func (r *orderRepository) LockOrder(executor SQLExecutor, orderID int64) (*models.Order, error) {
	return r.getOrder(executor, `SELECT `+orderColumns+` FROM orders o WHERE o.id = $1 FOR UPDATE`, orderID)
}

func (r *orderRepository) getOrder(executor SQLExecutor, query string, orderID int64) (*models.Order, error) {
	order, err := scanOrder(executor.QueryRow(query, orderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting order by ID %d: %v", ErrDatabaseError, orderID, err)
	}
	return order, nil
}

func (r *orderRepository) GetOrderLines(executor SQLExecutor, orderID int64) ([]models.OrderLine, error) {
	lines := []models.OrderLine{}
	query := `SELECT id, order_id, product_kind, product_id, product_name, quantity, unit_price
	          FROM order_lines WHERE order_id = $1 ORDER BY id`
	rows, err := executor.Query(query, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: getting lines for order %d: %v", ErrDatabaseError, orderID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var line models.OrderLine
		var kind string
		if err := rows.Scan(&line.ID, &line.OrderID, &kind, &line.ProductID, &line.ProductName, &line.Quantity, &line.UnitPrice); err != nil {
			return nil, fmt.Errorf("%w: scanning order line: %v", ErrDatabaseError, err)
		}
		line.Kind = models.ProductKind(kind)
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating order lines: %v", ErrDatabaseError, err)
	}
	return lines, nil
}

func (r *orderRepository) GetOrders(filters models.OrderFilters) ([]models.Order, int, error) {
	orders := []models.Order{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + orderColumns + `, COUNT(*) OVER() AS total_count FROM orders o`)

	var conditions []string
	var args []interface{}
	argCounter := 1

	if filters.Status != nil && *filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("o.status = $%d", argCounter))
		args = append(args, *filters.Status)
		argCounter++
	}
	if filters.Paid != nil {
		conditions = append(conditions, fmt.Sprintf("o.paid = $%d", argCounter))
		args = append(args, *filters.Paid)
		argCounter++
	}
	if filters.Date != nil && *filters.Date != "" {
		parsedDate, err := time.Parse("2006-01-02", *filters.Date)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid date filter format: %s, expected YYYY-MM-DD", *filters.Date)
		}
		startOfDay := time.Date(parsedDate.Year(), parsedDate.Month(), parsedDate.Day(), 0, 0, 0, 0, parsedDate.Location())
		conditions = append(conditions, fmt.Sprintf("o.order_date >= $%d AND o.order_date < $%d", argCounter, argCounter+1))
		args = append(args, startOfDay, startOfDay.AddDate(0, 0, 1))
		argCounter += 2
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY o.order_date DESC")

	if filters.PageSize > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d", argCounter))
		args = append(args, filters.PageSize)
		argCounter++
		if filters.Page > 0 {
			queryBuilder.WriteString(fmt.Sprintf(" OFFSET $%d", argCounter))
			args = append(args, (filters.Page-1)*filters.PageSize)
		}
	}

	rows, err := r.db.Query(queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: querying orders: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		o, err := scanOrder(rows, &totalCount)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: scanning order: %v", ErrDatabaseError, err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating orders: %v", ErrDatabaseError, err)
	}
	return orders, totalCount, nil
}

func (r *orderRepository) UpdateOrderStatus(executor SQLExecutor, orderID int64, newStatus models.OrderStatus, updatedAt time.Time) error {
	query := `UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := executor.Exec(query, string(newStatus), updatedAt, orderID)
	if err != nil {
		return fmt.Errorf("%w: updating order status for ID %d: %v", ErrDatabaseError, orderID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for order status update ID %d: %v", ErrDatabaseError, orderID, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *orderRepository) SetPaid(executor SQLExecutor, orderID int64, paid bool) (bool, error) {
	query := `UPDATE orders SET paid = $1, updated_at = $2 WHERE id = $3 AND paid <> $1`
	result, err := executor.Exec(query, paid, time.Now(), orderID)
	if err != nil {
		return false, fmt.Errorf("%w: updating paid flag for order %d: %v", ErrDatabaseError, orderID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: getting rows affected for paid update on order %d: %v", ErrDatabaseError, orderID, err)
	}
	return rowsAffected > 0, nil
}
